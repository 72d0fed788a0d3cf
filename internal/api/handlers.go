package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/streed/meetnotes/internal/constants"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
)

func (s *APIServer) handleReceiveData(w http.ResponseWriter, r *http.Request) {
	writeRaw := func(status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Error("Failed to encode JSON response: %v", err)
		}
	}

	var req struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == nil {
		writeRaw(http.StatusBadRequest, embeddings.ReceiveDataResponse{Error: "No 'content' field in JSON data"})
		return
	}

	embedding, err := s.services.Notes.Embed(r.Context(), *req.Content)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrEmptyContent) {
			status = http.StatusBadRequest
		}
		writeRaw(status, embeddings.ReceiveDataResponse{Error: "Error generating embedding: " + err.Error()})
		return
	}
	writeRaw(http.StatusOK, embeddings.ReceiveDataResponse{Content: *req.Content, Embedding: embedding})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":       "ok",
		"timestamp":    time.Now().Format(time.RFC3339),
		"version":      version,
		"embedder":     s.services.Notes.EmbedderName(),
		"auto_tagging": s.services.Tags.IsAvailable(),
	}

	if _, err := s.services.Notes.Stats(); err != nil {
		health["status"] = "unhealthy"
		health["store_error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.fail(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.fail(w, err)
		return
	}

	notes, err := s.services.Notes.List(limit, offset)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, notes)
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.services.Notes.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	tags := parseTags(req.Tags)
	if req.AutoTag && s.services.Tags.IsAvailable() {
		suggested, err := s.services.Tags.SuggestForText(r.Context(), req.Content)
		if err != nil {
			logger.Warn("Auto-tagging failed, storing note without suggestions: %v", err)
		} else {
			tags = models.MergeTags(tags, suggested)
		}
	}

	note, err := s.services.Notes.Add(r.Context(), req.Content, tags)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, note)
}

func (s *APIServer) handleSimilarNotes(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryFloat(r, "threshold", s.cfg.BacklinkThreshold)
	if err != nil {
		s.fail(w, err)
		return
	}
	limit, err := queryInt(r, "limit", s.cfg.BacklinkLimit)
	if err != nil {
		s.fail(w, err)
		return
	}

	similar, err := s.services.Notes.Similar(mux.Vars(r)["id"], threshold, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, similar)
}

func (s *APIServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.services.Tags.GetAll()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tags)
}

func (s *APIServer) handleUpdateNoteTags(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	note, err := s.services.Notes.ApplyTags(mux.Vars(r)["id"], parseTags(req.Tags), req.Overwrite)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.services.Tags.SuggestForNote(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"note_id": mux.Vars(r)["id"],
		"tags":    tags,
	})
}

func (s *APIServer) handleAutoTag(w http.ResponseWriter, r *http.Request) {
	var req AutoTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ids := req.NoteIDs
	if req.All {
		notes, err := s.services.Notes.List(0, 0)
		if err != nil {
			s.fail(w, err)
			return
		}
		ids = ids[:0]
		for _, n := range notes {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("note_ids or all is required"))
		return
	}

	results, err := s.services.Tags.AutoTag(r.Context(), ids, req.Apply, req.Overwrite)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"applied": req.Apply,
	})
}

func (s *APIServer) handleUpdateBacklinks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("dry_run") == constants.BoolTrue {
		plan, err := s.services.Notes.PreviewBacklinks()
		if err != nil {
			s.fail(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, plan)
		return
	}

	result, err := s.services.Notes.RefreshBacklinks()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleGraphData(w http.ResponseWriter, r *http.Request) {
	graph, err := s.services.Notes.Graph()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, graph)
}

func (s *APIServer) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	embedding, err := s.services.Notes.Embed(r.Context(), req.Content)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"embedder":   s.services.Notes.EmbedderName(),
		"dimensions": len(embedding),
		"embedding":  embedding,
	})
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Notes.Stats()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := map[string]interface{}{
		"debug_mode":           s.cfg.Debug,
		"embedding_provider":   s.cfg.EmbeddingProvider,
		"embedding_model":      s.cfg.EmbeddingModel,
		"backlink_threshold":   s.cfg.BacklinkThreshold,
		"backlink_limit":       s.cfg.BacklinkLimit,
		"auto_backlinks":       s.cfg.AutoBacklinks,
		"auto_tagging_enabled": s.cfg.EnableAutoTagging,
		"max_auto_tags":        s.cfg.MaxAutoTags,
		"store_path":           s.cfg.GetStorePath(),
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *APIServer) handleDocs(w http.ResponseWriter, r *http.Request) {
	docs := `# meetnotes API

## Base URL
http://localhost:5000/api/v1

## Endpoints

GET  /notes?limit=&offset=          List notes
POST /notes                         Add a summary {"content", "tags", "auto_tag"}
GET  /notes/{id}                    Get a note
GET  /notes/{id}/similar            Similar notes (?threshold=&limit=)
PUT  /notes/{id}/tags               Set tags {"tags", "overwrite"}
GET  /tags                          Tags with note counts
POST /auto-tag/suggest/{id}         Suggest tags for a note
POST /auto-tag/apply                Suggest and apply {"note_ids", "all", "apply", "overwrite"}
POST /backlinks                     Recompute all backlinks (?dry_run=true to preview)
GET  /graph                         Notes and backlink edges
POST /embed                         Embed text {"content"}
GET  /stats                         Store statistics
GET  /config                        Effective configuration
GET  /health                        Health check

POST /receive-data                  {"content"} -> {"content", "embedding"}
`
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(docs))
}
