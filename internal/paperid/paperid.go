// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paperid derives stable, content-addressed paper identifiers from
// bibliographic identity (DOI, arXiv ID, OpenAlex ID or title and year).
package paperid

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeOpenAlex
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeOpenAlex:
		return "openalex"
	default:
		return "unknown"
	}
}

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
// The version suffix is not captured so all versions share one identity.
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5})(?:v\d+)?$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// openAlexPattern matches work IDs with or without the https://openalex.org/ prefix.
var openAlexPattern = regexp.MustCompile(`^(?:https://openalex\.org/)?(W\d+)$`)

// Classify determines the identifier type and returns the normalized form.
// DOIs are lowercased and stripped of resolver prefixes.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	doi := identifier
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	if doiPattern.MatchString(doi) {
		return TypeDOI, strings.ToLower(doi)
	}

	if m := openAlexPattern.FindStringSubmatch(identifier); m != nil {
		return TypeOpenAlex, m[1]
	}

	return TypeUnknown, identifier
}

// Identity returns the canonical identity string for a paper, preferring
// DOI, then arXiv ID, then OpenAlex ID, then normalized title and year.
func Identity(p types.Paper) string {
	if p.DOI != "" {
		if t, norm := Classify(p.DOI); t == TypeDOI {
			return "doi:" + norm
		}
	}
	if p.LandingURL != "" {
		if i := strings.Index(p.LandingURL, "arxiv.org/abs/"); i >= 0 {
			if t, norm := Classify(p.LandingURL[i+len("arxiv.org/abs/"):]); t == TypeArxiv {
				return "arxiv:" + norm
			}
		}
	}
	if p.OpenAlexID != "" {
		if t, norm := Classify(p.OpenAlexID); t == TypeOpenAlex {
			return "openalex:" + norm
		}
	}
	return fmt.Sprintf("title:%s|%d", NormalizeTitle(p.Title), p.Year())
}

// Hash returns the content-addressed identifier: the first 32 hex characters
// of SHA-256 over Identity(p).
func Hash(p types.Paper) string {
	h := sha256.Sum256([]byte(Identity(p)))
	return fmt.Sprintf("%x", h[:16])
}

// pointNamespace scopes vector store point IDs derived from paper hashes.
var pointNamespace = uuid.MustParse("6f1c2f0e-8a0b-4f4e-9d55-3c1f8f7f5a10")

// PointID maps a paper hash to the UUID used as its vector store point ID.
func PointID(hash string) string {
	return uuid.NewSHA1(pointNamespace, []byte(hash)).String()
}

// NormalizeTitle returns a lowercased, punctuation-stripped version of the title.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
