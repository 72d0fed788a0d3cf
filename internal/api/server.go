package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/streed/meetnotes/internal/config"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/services"
)

const version = "1.0.0"

type APIServer struct {
	cfg      *config.Config
	services *services.Services
	server   *http.Server
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CreateNoteRequest struct {
	Content string `json:"content"`
	Tags    string `json:"tags"`
	AutoTag bool   `json:"auto_tag"`
}

type EmbedRequest struct {
	Content string `json:"content"`
}

type UpdateTagsRequest struct {
	Tags      string `json:"tags"`
	Overwrite bool   `json:"overwrite"`
}

type AutoTagRequest struct {
	NoteIDs   []string `json:"note_ids,omitempty"`
	All       bool     `json:"all"`
	Apply     bool     `json:"apply"`
	Overwrite bool     `json:"overwrite"`
}

func NewAPIServer(cfg *config.Config, svc *services.Services) *APIServer {
	return &APIServer{cfg: cfg, services: svc}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	// Embedding endpoint used by the remote provider; plain JSON, no envelope
	router.HandleFunc("/receive-data", s.handleReceiveData).Methods("POST")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Notes endpoints
	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/{id}", s.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id}/similar", s.handleSimilarNotes).Methods("GET")

	// Tags endpoints
	api.HandleFunc("/tags", s.handleListTags).Methods("GET")
	api.HandleFunc("/notes/{id}/tags", s.handleUpdateNoteTags).Methods("PUT")
	api.HandleFunc("/auto-tag/suggest/{id}", s.handleSuggestTags).Methods("POST")
	api.HandleFunc("/auto-tag/apply", s.handleAutoTag).Methods("POST")

	// Backlinks and graph
	api.HandleFunc("/backlinks", s.handleUpdateBacklinks).Methods("POST")
	api.HandleFunc("/graph", s.handleGraphData).Methods("GET")

	api.HandleFunc("/embed", s.handleEmbed).Methods("POST")

	// Statistics and info endpoints
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/config", s.handleConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/docs", s.handleDocs).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return c.Handler(router)
}

func (s *APIServer) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP API server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.LogRequest(r.Method, r.URL.Path, r.RemoteAddr)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.LogResponse(r.Method, r.URL.Path, rec.status, time.Since(start).String())
	})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: statusCode < 400,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrEmptyContent),
		errors.Is(err, apperrors.ErrInvalidNoteID),
		errors.Is(err, apperrors.ErrInvalidNumber):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrDuplicateNote):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrTaggingDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *APIServer) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	s.writeError(w, status, err)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", apperrors.ErrInvalidNumber, name, str)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", apperrors.ErrInvalidNumber, name, str)
	}
	return v, nil
}

func parseTags(tagsStr string) []string {
	if tagsStr == "" {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(tagsStr, ",") {
		cleanTag := strings.TrimSpace(tag)
		if cleanTag != "" {
			tags = append(tags, cleanTag)
		}
	}
	return tags
}
