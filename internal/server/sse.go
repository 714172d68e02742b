// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"iter"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/metrics"
	"github.com/pdiddy/paper-recommender/internal/pipeline"
)

// stream writes events as Server-Sent Events, one frame per event with the
// event kind as the SSE event name. It returns when the sequence ends or the
// client goes away; breaking the range stops the pipeline.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, events iter.Seq[pipeline.Event]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	id := 0
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encoding event", zap.String("kind", string(ev.Kind)), zap.Error(err))
			return
		}
		id++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Kind, data); err != nil {
			s.logger.Debug("client disconnected", zap.Error(err))
			return
		}
		flusher.Flush()
		if r.Context().Err() != nil {
			s.logger.Debug("client disconnected", zap.Error(r.Context().Err()))
			return
		}
	}
}
