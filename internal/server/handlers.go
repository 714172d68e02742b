// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/feedback"
	"github.com/pdiddy/paper-recommender/internal/pipeline"
	"github.com/pdiddy/paper-recommender/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type createProjectRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=10000"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=64"`
}

type updateProjectRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,min=1,max=10000"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,required,max=64"`
}

type recommendRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

type moreRequest struct {
	Cursor pipeline.Cursor `json:"cursor"`
}

type ratingRequest struct {
	PaperHash string `json:"paper_hash" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// decode reads a JSON body into v and validates it. It writes the error
// response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag()+"="+fe.Param())
		} else {
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// storeError maps store errors to responses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	s.logger.Error("store request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.projects.CreateProject(r.Context(), strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), req.Tags)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.projects.ListProjects(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ps)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.projects.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if err := s.projects.UpdateProject(r.Context(), p); err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) projectPapers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if _, err := s.projects.GetProject(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	pps, err := s.projects.ProjectPapers(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pps)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var req recommendRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.projects.GetProject(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	s.stream(w, r, s.recommender.Run(r.Context(), pipeline.Request{ProjectID: id, Query: req.Query}))
}

func (s *Server) loadMore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var req moreRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.validate.Var(req.Cursor.Keywords, "min=1,dive,required"); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "cursor.keywords "+validationMessage(err))
		return
	}
	if _, err := s.projects.GetProject(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	s.stream(w, r, s.recommender.LoadMore(r.Context(), id, req.Cursor))
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.rater.Rate(r.Context(), feedback.Rating{
		ProjectID: chi.URLParam(r, "projectID"),
		PaperHash: req.PaperHash,
		Value:     req.Rating,
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, feedback.ErrInvalidRating):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, feedback.ErrReplacementSearch):
		s.logger.Error("replacement search failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "replacement_search_failed",
			"rating saved; replacement search failed: "+err.Error())
	default:
		s.storeError(w, err)
	}
}
