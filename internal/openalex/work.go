// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package openalex

import (
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-recommender/internal/paperid"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// selectFields limits responses to the fields mapped into types.Paper.
const selectFields = "id,doi,title,publication_date,publication_year,authorships," +
	"abstract_inverted_index,open_access,primary_location,best_oa_location," +
	"cited_by_count,fwci,citation_normalized_percentile,counts_by_year"

type worksResponse struct {
	Meta    meta   `json:"meta"`
	Results []work `json:"results"`
}

type meta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type work struct {
	ID                    string              `json:"id"`
	DOI                   string              `json:"doi"`
	Title                 string              `json:"title"`
	PublicationDate       string              `json:"publication_date"`
	PublicationYear       int                 `json:"publication_year"`
	Authorships           []authorship        `json:"authorships"`
	AbstractInvertedIndex map[string][]int    `json:"abstract_inverted_index"`
	OpenAccess            openAccess          `json:"open_access"`
	PrimaryLocation       *location           `json:"primary_location"`
	BestOALocation        *location           `json:"best_oa_location"`
	CitedByCount          int                 `json:"cited_by_count"`
	FWCI                  *float64            `json:"fwci"`
	CitationPercentile    *citationPercentile `json:"citation_normalized_percentile"`
	CountsByYear          []yearCount         `json:"counts_by_year"`
}

type authorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

type location struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	Source         *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type citationPercentile struct {
	Value        float64 `json:"value"`
	IsInTop1Pct  bool    `json:"is_in_top_1_percent"`
	IsInTop10Pct bool    `json:"is_in_top_10_percent"`
}

type yearCount struct {
	Year         int `json:"year"`
	CitedByCount int `json:"cited_by_count"`
}

// shortID trims the https://openalex.org/ prefix from a work ID.
func shortID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// toPaper maps an OpenAlex work into a Paper and derives its hash.
func (w work) toPaper() types.Paper {
	p := types.Paper{
		OpenAlexID:   shortID(w.ID),
		Title:        strings.TrimSpace(w.Title),
		Abstract:     reconstructAbstract(w.AbstractInvertedIndex),
		IsOA:         w.OpenAccess.IsOA,
		OAURL:        w.OpenAccess.OAURL,
		CitedByCount: w.CitedByCount,
	}
	if w.DOI != "" {
		p.DOI = strings.ToLower(strings.TrimPrefix(w.DOI, "https://doi.org/"))
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
	}

	if w.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
			p.PublicationDate = t
		}
	}
	if p.PublicationDate.IsZero() && w.PublicationYear > 0 {
		p.PublicationDate = time.Date(w.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	if w.PrimaryLocation != nil {
		p.LandingURL = w.PrimaryLocation.LandingPageURL
		p.PDFURL = w.PrimaryLocation.PDFURL
		if w.PrimaryLocation.Source != nil {
			p.Venue = w.PrimaryLocation.Source.DisplayName
		}
	}
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		p.PDFURL = w.BestOALocation.PDFURL
	}

	if w.FWCI != nil {
		p.FWCI = *w.FWCI
	}
	if w.CitationPercentile != nil {
		p.CitationPercentile = w.CitationPercentile.Value * 100
		p.IsTop1Percent = w.CitationPercentile.IsInTop1Pct
		p.IsTop10Percent = w.CitationPercentile.IsInTop10Pct
	}

	for _, c := range w.CountsByYear {
		p.CountsByYear = append(p.CountsByYear, types.YearCount{Year: c.Year, CitedByCount: c.CitedByCount})
	}
	sort.Slice(p.CountsByYear, func(i, j int) bool {
		return p.CountsByYear[i].Year > p.CountsByYear[j].Year
	})

	p.Hash = paperid.Hash(p)
	return p
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index, which maps
// each word to its positions, back to plain text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}
	maxPos := -1
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			maxPos = max(maxPos, pos)
		}
	}
	words := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos >= 0 {
				words[pos] = word
			}
		}
	}
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
