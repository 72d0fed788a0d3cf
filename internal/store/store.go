// Package store persists the note collection as a single JSON file that is
// always read and written whole.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/streed/meetnotes/internal/constants"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
)

type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string {
	return s.path
}

// Load returns every stored note in file order. A missing or empty file is an
// empty collection.
func (s *JSONStore) Load() ([]*models.Note, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logger.Debug("Store %s does not exist yet, starting empty", s.path)
		return []*models.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []*models.Note{}, nil
	}

	var notes []*models.Note
	if err := json.Unmarshal(trimmed, &notes); err != nil {
		return nil, &apperrors.StorageCorruptionError{Path: s.path, Err: err}
	}
	if err := validate(notes); err != nil {
		return nil, &apperrors.StorageCorruptionError{Path: s.path, Err: err}
	}

	logger.Debug("Loaded %d notes from %s", len(notes), s.path)
	return notes, nil
}

func validate(notes []*models.Note) error {
	seen := make(map[string]int, len(notes))
	for i, note := range notes {
		if note == nil {
			return fmt.Errorf("record %d is null", i)
		}
		if note.ID == "" {
			return fmt.Errorf("record %d has an empty id", i)
		}
		if first, ok := seen[note.ID]; ok {
			return fmt.Errorf("duplicate id %q at records %d and %d", note.ID, first, i)
		}
		seen[note.ID] = i
	}
	return nil
}

// Save replaces the file with the given collection. The previous content
// stays in place until the new file has been fully written.
func (s *JSONStore) Save(notes []*models.Note) error {
	if notes == nil {
		notes = []*models.Note{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", constants.StoreIndentPadding)
	if err := enc.Encode(notes); err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirectoryMode); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), constants.StoreFileMode); err != nil {
		return err
	}

	logger.Debug("Saved %d notes to %s", len(notes), s.path)
	return nil
}

// CreateNote builds a note with a fresh id. It is not persisted.
func CreateNote(text string, embedding []float64) *models.Note {
	return &models.Note{
		ID:        NewNoteID(),
		Embedding: embedding,
		Text:      text,
		Tags:      []string{},
		Backlinks: []string{},
	}
}

func NewNoteID() string {
	return constants.NoteIDPrefix + uuid.NewString()
}

// CreateNote on the store is a convenience for callers holding only a store.
func (s *JSONStore) CreateNote(text string, embedding []float64) *models.Note {
	return CreateNote(text, embedding)
}

func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), constants.AtomicTempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}
