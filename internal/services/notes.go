package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/streed/meetnotes/internal/backlinks"
	"github.com/streed/meetnotes/internal/embeddings"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
	"github.com/streed/meetnotes/internal/similarity"
	"github.com/streed/meetnotes/internal/store"
)

// NoteInput is one summary to add.
type NoteInput struct {
	Text   string
	Tags   []string
	Source string // file path or request origin, for logging only
}

type ImportResult struct {
	Added   []*models.Note `json:"added"`
	Skipped int            `json:"skipped"`
}

type SimilarNote struct {
	Note  *models.Note `json:"note"`
	Score float64      `json:"score"`
}

type Stats struct {
	Total         int      `json:"total"`
	Embedded      int      `json:"embedded"`
	WithBacklinks int      `json:"with_backlinks"`
	BacklinkEdges int      `json:"backlink_edges"`
	Dimensions    []int    `json:"dimensions"`
	Tags          int      `json:"tags"`
	Embedder      string   `json:"embedder"`
	Threshold     float64  `json:"threshold"`
	Limit         int      `json:"limit"`
	Warnings      []string `json:"warnings,omitempty"`
}

type GraphNode struct {
	ID      string   `json:"id"`
	Preview string   `json:"preview"`
	Tags    []string `json:"tags"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NotesService handles note operations. Every load-modify-save cycle runs
// under mu; embedding happens before the lock is taken.
type NotesService struct {
	mu            sync.Mutex
	store         backlinks.Store
	embedder      embeddings.Provider
	updater       *backlinks.Updater
	autoBacklinks bool
}

func NewNotesService(st backlinks.Store, embedder embeddings.Provider, updater *backlinks.Updater, autoBacklinks bool) *NotesService {
	return &NotesService{
		store:         st,
		embedder:      embedder,
		updater:       updater,
		autoBacklinks: autoBacklinks,
	}
}

func (s *NotesService) EmbedderName() string {
	if s.embedder == nil {
		return ""
	}
	return s.embedder.Name()
}

// Embed runs the configured provider on text.
func (s *NotesService) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyContent
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	return s.embedder.Embed(ctx, text)
}

func (s *NotesService) Add(ctx context.Context, text string, tags []string) (*models.Note, error) {
	result, err := s.AddMany(ctx, []NoteInput{{Text: text, Tags: tags}})
	if err != nil {
		return nil, err
	}
	if len(result.Added) == 0 {
		return nil, apperrors.ErrDuplicateNote
	}
	return result.Added[0], nil
}

// AddMany embeds every input, then adds them with a single load and save.
// Inputs whose text is already stored are skipped.
func (s *NotesService) AddMany(ctx context.Context, inputs []NoteInput) (*ImportResult, error) {
	pending := make([]*models.Note, 0, len(inputs))
	for _, in := range inputs {
		text := in.Text
		if strings.TrimSpace(text) == "" {
			if len(inputs) == 1 {
				return nil, apperrors.ErrEmptyContent
			}
			logger.Warn("Skipping empty summary %s", in.Source)
			continue
		}

		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", describe(in), err)
		}

		note := store.CreateNote(text, embedding)
		if len(in.Tags) > 0 {
			note.Tags = models.MergeTags(nil, in.Tags)
		}
		pending = append(pending, note)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(notes))
	for _, n := range notes {
		existing[n.Text] = true
	}

	result := &ImportResult{Added: []*models.Note{}}
	for _, note := range pending {
		if existing[note.Text] {
			result.Skipped++
			continue
		}
		existing[note.Text] = true
		notes = append(notes, note)
		result.Added = append(result.Added, note)
	}
	result.Skipped += len(inputs) - len(pending)

	if len(result.Added) == 0 {
		return result, nil
	}

	if s.autoBacklinks {
		if _, err := s.updater.UpdateAll(notes); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(notes); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}

	for i, n := range result.Added {
		result.Added[i] = n.Clone()
	}
	logger.Info("Added %d notes (%d skipped)", len(result.Added), result.Skipped)
	return result, nil
}

func describe(in NoteInput) string {
	if in.Source != "" {
		return in.Source
	}
	return "note"
}

// List returns notes in store order starting at offset. limit <= 0 means all.
func (s *NotesService) List(limit, offset int) ([]*models.Note, error) {
	notes, err := s.load()
	if err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(notes) {
		return []*models.Note{}, nil
	}
	notes = notes[offset:]
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

func (s *NotesService) Get(id string) (*models.Note, error) {
	if id == "" {
		return nil, apperrors.ErrInvalidNoteID
	}
	notes, err := s.load()
	if err != nil {
		return nil, err
	}
	note := models.FindByID(notes, id)
	if note == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, id)
	}
	return note, nil
}

func (s *NotesService) load() ([]*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Similar ranks the other embedded notes against the note with the given id.
// A note without an embedding has no similar notes.
func (s *NotesService) Similar(id string, threshold float64, limit int) ([]SimilarNote, error) {
	notes, err := s.load()
	if err != nil {
		return nil, err
	}
	ref := models.FindByID(notes, id)
	if ref == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, id)
	}
	return rank(ref.ID, ref.Embedding, notes, threshold, limit)
}

// SimilarToText embeds text and ranks all embedded notes against it.
func (s *NotesService) SimilarToText(ctx context.Context, text string, threshold float64, limit int) ([]SimilarNote, error) {
	embedding, err := s.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	notes, err := s.load()
	if err != nil {
		return nil, err
	}
	return rank("", embedding, notes, threshold, limit)
}

func rank(refID string, reference []float64, notes []*models.Note, threshold float64, limit int) ([]SimilarNote, error) {
	out := []SimilarNote{}
	if len(reference) == 0 {
		return out, nil
	}

	candidates := make([]similarity.Candidate, 0, len(notes))
	for _, n := range notes {
		if n.HasEmbedding() {
			candidates = append(candidates, similarity.Candidate{ID: n.ID, Embedding: n.Embedding})
		}
	}

	matches, err := similarity.FindTopMatches(refID, reference, candidates, threshold, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		out = append(out, SimilarNote{Note: models.FindByID(notes, m.ID), Score: m.Score})
	}
	return out, nil
}

// RefreshBacklinks recomputes every note's backlinks and saves once.
func (s *NotesService) RefreshBacklinks() (*backlinks.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updater.Run(s.store)
}

// PreviewBacklinks computes what RefreshBacklinks would write without saving.
func (s *NotesService) PreviewBacklinks() (map[string][]similarity.Match, error) {
	notes, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.updater.Plan(notes)
}

// ApplyTags merges tags into a note, or replaces them when overwrite is set.
func (s *NotesService) ApplyTags(id string, tags []string, overwrite bool) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	note := models.FindByID(notes, id)
	if note == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoteNotFound, id)
	}

	if overwrite {
		note.Tags = models.MergeTags(nil, tags)
	} else {
		note.Tags = models.MergeTags(note.Tags, tags)
	}

	if err := s.store.Save(notes); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}
	return note.Clone(), nil
}

func (s *NotesService) Stats() (*Stats, error) {
	notes, err := s.load()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:      len(notes),
		Dimensions: []int{},
		Embedder:   s.EmbedderName(),
		Threshold:  s.updater.Threshold,
		Limit:      s.updater.Limit,
	}
	dims := make(map[int]bool)
	tags := make(map[string]bool)
	for _, n := range notes {
		if n.HasEmbedding() {
			stats.Embedded++
			if !dims[len(n.Embedding)] {
				dims[len(n.Embedding)] = true
				stats.Dimensions = append(stats.Dimensions, len(n.Embedding))
			}
		}
		if len(n.Backlinks) > 0 {
			stats.WithBacklinks++
			stats.BacklinkEdges += len(n.Backlinks)
		}
		for _, t := range n.Tags {
			tags[t] = true
		}
	}
	stats.Tags = len(tags)
	sort.Ints(stats.Dimensions)
	if len(stats.Dimensions) > 1 {
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("notes are embedded with %d different dimensions; backlink updates will fail", len(stats.Dimensions)))
	}
	return stats, nil
}

// Graph returns every note as a node and every backlink as an edge. Edges to
// ids that are no longer stored are dropped.
func (s *NotesService) Graph() (*Graph, error) {
	notes, err := s.load()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(notes))
	for _, n := range notes {
		ids[n.ID] = true
	}

	g := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, n := range notes {
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		g.Nodes = append(g.Nodes, GraphNode{ID: n.ID, Preview: n.Preview(60), Tags: tags})
		for _, target := range n.Backlinks {
			if ids[target] {
				g.Edges = append(g.Edges, GraphEdge{Source: n.ID, Target: target})
			}
		}
	}
	return g, nil
}
