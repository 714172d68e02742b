// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package paperid

import (
	"testing"
	"time"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType IdentifierType
		wantNorm string
	}{
		{"arxiv bare", "2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv prefixed", "arXiv:2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv versioned", "2301.07041v3", TypeArxiv, "2301.07041"},
		{"doi bare", "10.1145/1234567.1234568", TypeDOI, "10.1145/1234567.1234568"},
		{"doi resolver url", "https://doi.org/10.1038/NATURE14539", TypeDOI, "10.1038/nature14539"},
		{"doi scheme", "doi:10.1000/xyz123", TypeDOI, "10.1000/xyz123"},
		{"openalex bare", "W2741809807", TypeOpenAlex, "W2741809807"},
		{"openalex url", "https://openalex.org/W2741809807", TypeOpenAlex, "W2741809807"},
		{"unknown", "hello-world", TypeUnknown, "hello-world"},
		{"whitespace", "  10.1000/abc  ", TypeDOI, "10.1000/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotNorm := Classify(tt.input)
			if gotType != tt.wantType {
				t.Errorf("Classify(%q) type = %v, want %v", tt.input, gotType, tt.wantType)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("Classify(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestIdentityPrecedence(t *testing.T) {
	date := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		paper types.Paper
		want  string
	}{
		{
			"doi wins over openalex",
			types.Paper{DOI: "10.1000/ABC", OpenAlexID: "https://openalex.org/W1", Title: "X"},
			"doi:10.1000/abc",
		},
		{
			"arxiv landing page",
			types.Paper{LandingURL: "https://arxiv.org/abs/2301.07041v2", OpenAlexID: "W1"},
			"arxiv:2301.07041",
		},
		{
			"openalex fallback",
			types.Paper{OpenAlexID: "https://openalex.org/W42", Title: "X"},
			"openalex:W42",
		},
		{
			"title and year fallback",
			types.Paper{Title: "Deep Learning: A Review!", PublicationDate: date},
			"title:deep learning a review|2021",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identity(tt.paper); got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashStableAcrossSources(t *testing.T) {
	a := types.Paper{DOI: "https://doi.org/10.1000/ABC", Title: "One title", OpenAlexID: "W1"}
	b := types.Paper{DOI: "10.1000/abc", Title: "Another title", OpenAlexID: "W2"}

	if Hash(a) != Hash(b) {
		t.Errorf("hashes differ for the same DOI: %s vs %s", Hash(a), Hash(b))
	}
	if len(Hash(a)) != 32 {
		t.Errorf("hash length = %d, want 32", len(Hash(a)))
	}
	if Hash(a) == Hash(types.Paper{DOI: "10.1000/abd"}) {
		t.Error("different DOIs produced the same hash")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if PointID("abc") != PointID("abc") {
		t.Error("PointID is not deterministic")
	}
	if PointID("abc") == PointID("abd") {
		t.Error("PointID collides for different hashes")
	}
}
