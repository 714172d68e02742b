// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/feedback"
	"github.com/pdiddy/paper-recommender/internal/filter"
	"github.com/pdiddy/paper-recommender/internal/llm"
	"github.com/pdiddy/paper-recommender/internal/openalex"
	"github.com/pdiddy/paper-recommender/internal/pipeline"
	"github.com/pdiddy/paper-recommender/internal/qc"
	"github.com/pdiddy/paper-recommender/internal/retrieve"
	"github.com/pdiddy/paper-recommender/internal/scope"
	"github.com/pdiddy/paper-recommender/internal/store"
	"github.com/pdiddy/paper-recommender/internal/vector"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      types.Config
	store    *store.Store
	vectors  vector.Store
	pipeline *pipeline.Pipeline
	feedback *feedback.Engine
}

// openStore opens only the relational store, for commands that manage
// projects without touching the recommendation stack.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.DataDir)
}

// newApp wires every component from configuration.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	vs, err := vector.New(cfg.Vector)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := vs.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
		vs.Close()
		st.Close()
		return nil, err
	}

	judge, err := llm.NewJudge(cfg.LLM)
	if err != nil {
		vs.Close()
		st.Close()
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		vs.Close()
		st.Close()
		return nil, err
	}

	meta := openalex.New(cfg.Metadata, logger.Named("openalex"))
	retriever := retrieve.New(st, vs, embedder, meta, cfg.Retrieval,
		retrieve.WithLogger(logger.Named("retrieve")),
		retrieve.WithCacheTTL(cfg.Metadata.CacheTTL))

	p := pipeline.New(pipeline.Deps{
		Store:      st,
		Classifier: scope.NewClassifier(judge),
		QC:         qc.NewEngine(judge),
		Extractor:  filter.NewExtractor(judge),
		Retriever:  retriever,
		Logger:     logger.Named("pipeline"),
	})

	logger.Debug("components ready",
		zap.String("llm", string(cfg.LLM.Backend)),
		zap.String("embedding", string(cfg.Embedding.Backend)),
		zap.String("vector", string(cfg.Vector.Backend)),
		zap.String("data_dir", cfg.Store.DataDir))

	return &app{
		cfg:      cfg,
		store:    st,
		vectors:  vs,
		pipeline: p,
		feedback: feedback.New(st, retriever, cfg.Retrieval, logger.Named("feedback")),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.vectors.Close(), a.store.Close())
}

// requireProject returns a friendly error for an unknown project ID.
func requireProject(ctx context.Context, st *store.Store, id string) (types.Project, error) {
	p, err := st.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Project{}, fmt.Errorf("project %s not found (see `paper-recommender project list`)", id)
	}
	return p, err
}
