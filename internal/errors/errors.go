package errors

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	// Store errors
	ErrNoteNotFound      = errors.New("note not found")
	ErrDuplicateNote     = errors.New("a note with the same text already exists")
	ErrStorageCorruption = errors.New("note store is corrupted")

	// Validation errors
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrInvalidBoolean   = errors.New("invalid boolean value (use true/false)")
	ErrInvalidNumber    = errors.New("invalid numeric value")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrInvalidNoteID    = errors.New("invalid note ID")

	// Embedding errors
	ErrInvalidEmbeddingLength = errors.New("invalid embedding data length")
	ErrDimensionMismatch      = errors.New("embedding dimension mismatch")
	ErrEmptyEmbedding         = errors.New("provider returned an empty embedding")
	ErrUnknownProvider        = errors.New("unknown embedding provider")

	// Tagging errors
	ErrTaggingDisabled = errors.New("auto-tagging is disabled")
)

// StorageCorruptionError reports a persisted store that exists but cannot be
// read back as a collection of notes.
type StorageCorruptionError struct {
	Path string
	Err  error
}

func (e *StorageCorruptionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageCorruption, e.Path, e.Err)
}

func (e *StorageCorruptionError) Unwrap() error { return e.Err }

func (e *StorageCorruptionError) Is(target error) bool {
	return target == ErrStorageCorruption
}

// DimensionMismatchError reports two embeddings of different lengths being
// compared. IDs are empty when the vectors are not attached to notes.
type DimensionMismatchError struct {
	ReferenceID string
	CandidateID string
	Want        int
	Got         int
}

func (e *DimensionMismatchError) Error() string {
	if e.ReferenceID == "" && e.CandidateID == "" {
		return fmt.Sprintf("%s: %d != %d", ErrDimensionMismatch, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: note %s has %d dimensions, note %s has %d",
		ErrDimensionMismatch, e.ReferenceID, e.Want, e.CandidateID, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
