package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/streed/meetnotes/internal/models"
)

func exportFixture() []*models.Note {
	return []*models.Note{
		{ID: "summary_a", Embedding: []float64{0.5, 0.25}, Text: "Meeting Summary: A & B", Tags: []string{"x"}, Backlinks: []string{"summary_b"}},
		{ID: "summary_b", Text: "no vector yet", Tags: []string{}, Backlinks: []string{}},
	}
}

func TestWriteNotesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNotes(&buf, exportFixture(), "json", true))
	assert.Contains(t, buf.String(), "A & B")

	var decoded []*models.Note
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, []float64{0.5, 0.25}, decoded[0].Embedding)
	assert.Nil(t, decoded[1].Embedding)
}

func TestWriteNotesYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNotes(&buf, exportFixture(), "YAML", true))
	assert.True(t, strings.HasPrefix(buf.String(), "- id: summary_a"), buf.String())

	var decoded []*models.Note
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Meeting Summary: A & B", decoded[0].Text)
	assert.Equal(t, []string{"summary_b"}, decoded[0].Backlinks)
	assert.Equal(t, []float64{0.5, 0.25}, decoded[0].Embedding)
}

func TestWriteNotesWithoutEmbeddings(t *testing.T) {
	notes := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, writeNotes(&buf, notes, "json", false))
	assert.NotContains(t, buf.String(), "embedding")
	// the caller's notes are untouched
	assert.Len(t, notes[0].Embedding, 2)
}

func TestWriteNotesUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeNotes(&buf, exportFixture(), "csv", true))
}
