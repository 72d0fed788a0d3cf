package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/streed/meetnotes/internal/autotag"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
)

type TagCount struct {
	Name  string `json:"name"`
	Notes int    `json:"notes"`
}

// TagsService handles tag suggestions and tag listings
type TagsService struct {
	notes   *NotesService
	tagger  autotag.Tagger
	maxTags int
}

func NewTagsService(notes *NotesService, tagger autotag.Tagger, maxTags int) *TagsService {
	return &TagsService{notes: notes, tagger: tagger, maxTags: maxTags}
}

func (s *TagsService) IsAvailable() bool {
	return s.tagger != nil
}

// SuggestForText returns cleaned tag suggestions for arbitrary text.
func (s *TagsService) SuggestForText(ctx context.Context, text string) ([]string, error) {
	if s.tagger == nil {
		return nil, apperrors.ErrTaggingDisabled
	}
	tags, err := s.tagger.SuggestTags(ctx, text)
	if err != nil {
		return nil, err
	}
	return autotag.CleanTags(tags, s.maxTags), nil
}

func (s *TagsService) SuggestForNote(ctx context.Context, id string) ([]string, error) {
	note, err := s.notes.Get(id)
	if err != nil {
		return nil, err
	}
	return s.SuggestForText(ctx, note.Text)
}

// AutoTag suggests tags for each id and, when apply is set, stores them.
// Failures for one note are logged and do not stop the others.
func (s *TagsService) AutoTag(ctx context.Context, ids []string, apply, overwrite bool) (map[string][]string, error) {
	if s.tagger == nil {
		return nil, apperrors.ErrTaggingDisabled
	}

	results := make(map[string][]string)
	for i, id := range ids {
		logger.Debug("Auto-tagging note %d/%d (ID: %s)", i+1, len(ids), id)

		tags, err := s.SuggestForNote(ctx, id)
		if err != nil {
			logger.Error("Failed to auto-tag note %s: %v", id, err)
			continue
		}
		if apply {
			if _, err := s.notes.ApplyTags(id, tags, overwrite); err != nil {
				return results, fmt.Errorf("failed to apply tags to %s: %w", id, err)
			}
		}
		results[id] = tags
	}
	return results, nil
}

// GetAll lists every tag with the number of notes carrying it, most used first.
func (s *TagsService) GetAll() ([]TagCount, error) {
	notes, err := s.notes.List(0, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, n := range notes {
		for _, t := range n.Tags {
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCount{Name: name, Notes: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Notes != out[j].Notes {
			return out[i].Notes > out[j].Notes
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
