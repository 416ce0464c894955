package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vinayprograms/reverie/bus"
	"github.com/vinayprograms/reverie/compose"
	"github.com/vinayprograms/reverie/errors"
	"github.com/vinayprograms/reverie/memory"
)

// actionRequest is the POST /action body. Pointers distinguish absent
// fields from zero values.
type actionRequest struct {
	Prompt     string   `json:"prompt"`
	Tags       []string `json:"tags"`
	Emotion    *string  `json:"emotion"`
	Importance *int     `json:"importance"`
	Source     string   `json:"source"`
}

type actionResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Key    string `json:"key"`
}

// StreamItem is one element of GET /stream.
type StreamItem struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.InvalidInput("invalid request body", errors.WithCause(err)))
		return
	}

	rec := &memory.Record{
		ID:         s.newID(),
		Prompt:     req.Prompt,
		Tags:       req.Tags,
		Importance: memory.DefaultImportance,
		Source:     req.Source,
	}
	if req.Emotion != nil {
		rec.Emotion = *req.Emotion
	}
	if req.Importance != nil {
		rec.Importance = *req.Importance
	}
	if err := rec.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	key, err := s.store.Save(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.RecordSaved(key, rec.ID)

	if s.bus != nil {
		ev := bus.MemorySaved{Key: key, Record: rec.Clone()}
		if err := bus.PublishMemorySaved(r.Context(), s.bus, s.tracer, ev); err != nil {
			s.requestLogger(r).Warn("publish failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	writeJSON(w, http.StatusOK, actionResponse{Status: "saved", ID: rec.ID, Key: key})
}

func (s *Server) handleReflect(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reflection": compose.Reflection(memory.Records(entries)),
	})
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, errors.ErrCodeNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Memory not found"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"interpretation": compose.Interpretation(entry.Record),
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ScanAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]StreamItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, StreamItem{
			ID:        e.Key,
			Timestamp: e.Record.TimestampOrUnknown(),
			Summary:   compose.StreamSummary(e.Record),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]StreamItem{"stream": items})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ScanAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"insight": compose.Insight(memory.Records(entries)),
	})
}

func (s *Server) handleDream(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ScanAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rng, release := s.randSource()
	dream := compose.Dream(memory.Records(entries), rng)
	release()
	writeJSON(w, http.StatusOK, map[string]string{"dream": dream})
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMemories(w, entries)
}

func (s *Server) handleAllMemories(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ScanAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMemories(w, entries)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeMemories(w http.ResponseWriter, entries []memory.Entry) {
	if entries == nil {
		entries = []memory.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string][]memory.Entry{"memories": entries})
}

// parseLimit reads ?limit=N. Absent means memory.DefaultListLimit.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return memory.DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.InvalidInput("limit must be a positive integer",
			errors.WithMetadata("limit", raw))
	}
	return n, nil
}
