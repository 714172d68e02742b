// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-recommender/internal/secrets"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

func TestLoadConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { loadedSecrets = nil })

	path := filepath.Join(t.TempDir(), "paper-recommender.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  backend: claude
  model: claude-sonnet-4-5-20250929
retrieval:
  min_replacement_score: 0.5
metadata:
  cache_ttl: 24h
store:
  data_dir: /var/lib/recommender
`), 0o644))

	viper.Reset()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
	loadedSecrets = map[string]string{secrets.AnthropicAPIKey: "sk-test"}

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, types.LLMClaude, cfg.LLM.Backend)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 0.5, cfg.Retrieval.MinReplacementScore)
	assert.Equal(t, 24*time.Hour, cfg.Metadata.CacheTTL)
	assert.Equal(t, "/var/lib/recommender", cfg.Store.DataDir)

	// Unset keys keep their defaults.
	assert.Equal(t, 20, cfg.Retrieval.BaseDepth)
	assert.Equal(t, 100, cfg.Retrieval.FilterDepth)
	assert.Equal(t, 10, cfg.Retrieval.ReplacementPool)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestReadProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: Protein design
description: |
  Generative models for de novo protein backbones.
tags: [proteins, diffusion]
`), 0o644))

	pf, err := readProjectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Protein design", pf.Title)
	assert.Equal(t, "Generative models for de novo protein backbones.\n", pf.Description)
	assert.Equal(t, []string{"proteins", "diffusion"}, pf.Tags)

	_, err = readProjectFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("title: [unclosed"), 0o644))
	_, err = readProjectFile(bad)
	assert.Error(t, err)
}

func TestPaperLine(t *testing.T) {
	tests := []struct {
		name  string
		paper types.Paper
		want  string
	}{
		{
			name: "full",
			paper: types.Paper{
				Authors:         []string{"A. Author", "B. Author"},
				PublicationDate: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
				Venue:           "Nature",
				CitedByCount:    42,
				FWCI:            1.734,
			},
			want: "A. Author et al. · 2022 · Nature · 42 citations · FWCI 1.73",
		},
		{
			name:  "sparse",
			paper: types.Paper{Authors: []string{"Solo"}},
			want:  "Solo · 0 citations · FWCI 0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paperLine(tt.paper))
		})
	}
}
