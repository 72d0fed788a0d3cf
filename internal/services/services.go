package services

import (
	"github.com/streed/meetnotes/internal/autotag"
	"github.com/streed/meetnotes/internal/backlinks"
	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/logger"
)

// Services contains all the service dependencies
type Services struct {
	Config *config.Config
	Notes  *NotesService
	Tags   *TagsService
}

// NewServices creates a new services container. tagger may be nil when
// auto-tagging is disabled.
func NewServices(
	cfg *config.Config,
	store backlinks.Store,
	embedder embeddings.Provider,
	tagger autotag.Tagger,
) *Services {
	updater := backlinks.NewUpdater(cfg.BacklinkThreshold, cfg.BacklinkLimit)
	notesService := NewNotesService(store, embedder, updater, cfg.AutoBacklinks)
	tagsService := NewTagsService(notesService, tagger, cfg.MaxAutoTags)

	return &Services{
		Config: cfg,
		Notes:  notesService,
		Tags:   tagsService,
	}
}

// Close releases the embedder when it holds resources (the embedding cache).
func (s *Services) Close() error {
	if closer, ok := s.Notes.embedder.(interface{ Close() error }); ok {
		logger.Debug("Closing embedding provider %s", s.Notes.embedder.Name())
		return closer.Close()
	}
	return nil
}
