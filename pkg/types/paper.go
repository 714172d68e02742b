// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// YearCount records the citations a paper received in one calendar year.
type YearCount struct {
	Year         int `json:"year" yaml:"year"`
	CitedByCount int `json:"cited_by_count" yaml:"cited_by_count"`
}

// Paper holds bibliographic metadata for a candidate paper. Everything except
// Score is intrinsic to the paper and immutable once fetched; Score is the
// similarity to one specific query and is never persisted.
type Paper struct {
	// Hash is the content-addressed identifier derived from the paper's
	// bibliographic identity (see internal/paperid).
	Hash string `json:"hash" yaml:"hash"`

	// OpenAlexID is the OpenAlex work ID (e.g. "W2741809807").
	OpenAlexID string `json:"openalex_id,omitempty" yaml:"openalex_id,omitempty"`

	// DOI is the bare DOI without the https://doi.org/ prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Authors  []string `json:"authors" yaml:"authors"`

	// PublicationDate is the publication or preprint date.
	PublicationDate time.Time `json:"publication_date" yaml:"publication_date"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	IsOA  bool   `json:"is_oa" yaml:"is_oa"`
	OAURL string `json:"oa_url,omitempty" yaml:"oa_url,omitempty"`

	CitedByCount int `json:"cited_by_count" yaml:"cited_by_count"`

	// FWCI is the field-weighted citation impact (1.0 = field average).
	FWCI float64 `json:"fwci" yaml:"fwci"`

	// CitationPercentile is the normalized citation percentile in [0, 100].
	CitationPercentile float64 `json:"citation_percentile" yaml:"citation_percentile"`
	IsTop1Percent      bool    `json:"is_top_1_percent" yaml:"is_top_1_percent"`
	IsTop10Percent     bool    `json:"is_top_10_percent" yaml:"is_top_10_percent"`

	// CountsByYear lists citations per year, most recent first.
	CountsByYear []YearCount `json:"counts_by_year,omitempty" yaml:"counts_by_year,omitempty"`

	LandingURL string `json:"landing_url,omitempty" yaml:"landing_url,omitempty"`
	PDFURL     string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Score is the cosine similarity to the query that produced this paper.
	Score float64 `json:"score" yaml:"score"`
}

// Year returns the publication year, or 0 when the date is unknown.
func (p Paper) Year() int {
	if p.PublicationDate.IsZero() {
		return 0
	}
	return p.PublicationDate.Year()
}

// CitationsIn returns the citation count recorded for year, and whether the
// year is present in CountsByYear.
func (p Paper) CitationsIn(year int) (int, bool) {
	for _, c := range p.CountsByYear {
		if c.Year == year {
			return c.CitedByCount, true
		}
	}
	return 0, false
}

// EmbeddingText is the text embedded into the vector store for this paper.
func (p Paper) EmbeddingText() string {
	if p.Abstract == "" {
		return p.Title
	}
	return p.Title + "\n\n" + p.Abstract
}

// SummaryLength is the rune limit for the summary stored with a delivered
// paper.
const SummaryLength = 280

// Excerpt returns the abstract, or the title when there is none, cut at a
// word boundary to at most maxRunes runes.
func (p Paper) Excerpt(maxRunes int) string {
	text := p.Abstract
	if text == "" {
		text = p.Title
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
