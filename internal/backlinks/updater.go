// Package backlinks recomputes the backlinks of every embedded note.
package backlinks

import (
	"fmt"
	"slices"

	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
	"github.com/streed/meetnotes/internal/similarity"
)

// Store is the persistence the updater runs against.
type Store interface {
	Load() ([]*models.Note, error)
	Save(notes []*models.Note) error
}

type Updater struct {
	Threshold float64
	Limit     int
}

func NewUpdater(threshold float64, limit int) *Updater {
	return &Updater{Threshold: threshold, Limit: limit}
}

// Result summarizes one pass.
type Result struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
	Changed  int `json:"changed"`
}

// Plan computes the backlinks each embedded note would receive, keyed by note
// id, without modifying anything.
func (u *Updater) Plan(notes []*models.Note) (map[string][]similarity.Match, error) {
	candidates := make([]similarity.Candidate, 0, len(notes))
	for _, n := range notes {
		if n.HasEmbedding() {
			candidates = append(candidates, similarity.Candidate{ID: n.ID, Embedding: n.Embedding})
		}
	}

	plan := make(map[string][]similarity.Match, len(candidates))
	for _, c := range candidates {
		matches, err := similarity.FindTopMatches(c.ID, c.Embedding, candidates, u.Threshold, u.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to match note %s: %w", c.ID, err)
		}
		plan[c.ID] = matches
	}
	return plan, nil
}

// UpdateAll replaces the backlinks of every embedded note. All scores are
// computed against the collection as it was before the call; on error no note
// is modified.
func (u *Updater) UpdateAll(notes []*models.Note) ([]*models.Note, error) {
	_, err := u.apply(notes)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (u *Updater) apply(notes []*models.Note) (*Result, error) {
	plan, err := u.Plan(notes)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(notes), Embedded: len(plan)}
	for _, n := range notes {
		matches, ok := plan[n.ID]
		if !ok {
			continue
		}
		links := similarity.IDs(matches)
		if !slices.Equal(n.Backlinks, links) {
			result.Changed++
		}
		n.Backlinks = links
	}
	return result, nil
}

// Run loads the store, updates every note and saves once. Nothing is written
// when any step fails.
func (u *Updater) Run(store Store) (*Result, error) {
	notes, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}

	result, err := u.apply(notes)
	if err != nil {
		return nil, err
	}

	if err := store.Save(notes); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}

	logger.Info("Updated backlinks for %d of %d notes (%d changed)", result.Embedded, result.Total, result.Changed)
	return result, nil
}
