package models

import (
	"encoding/json"
	"strings"
)

// Note is a stored meeting summary. Field order matches the persisted layout.
//
// Slices use omitzero so that an absent field stays absent and an empty array
// stays an empty array across a load/save cycle. A null tags or backlinks
// field loads as an empty array.
type Note struct {
	ID        string    `json:"id" yaml:"id"`
	Embedding []float64 `json:"embedding,omitzero" yaml:"embedding,omitempty,flow"`
	Text      string    `json:"text" yaml:"text"`
	Tags      []string  `json:"tags,omitzero" yaml:"tags"`
	Backlinks []string  `json:"backlinks,omitzero" yaml:"backlinks"`
}

func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	var aux struct {
		*plain
		Tags      json.RawMessage `json:"tags"`
		Backlinks json.RawMessage `json:"backlinks"`
	}
	aux.plain = (*plain)(n)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if n.Tags, err = decodeStrings(aux.Tags); err != nil {
		return err
	}
	n.Backlinks, err = decodeStrings(aux.Backlinks)
	return err
}

// decodeStrings returns nil for an absent field and an empty slice for null.
func decodeStrings(raw json.RawMessage) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	values := []string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// HasEmbedding reports whether the note takes part in similarity computation.
func (n *Note) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// Clone returns a deep copy so callers can mutate it without touching the
// collection it came from.
func (n *Note) Clone() *Note {
	c := *n
	if n.Embedding != nil {
		c.Embedding = append([]float64{}, n.Embedding...)
	}
	if n.Tags != nil {
		c.Tags = append([]string{}, n.Tags...)
	}
	if n.Backlinks != nil {
		c.Backlinks = append([]string{}, n.Backlinks...)
	}
	return &c
}

// FindByID returns the note with the given id, or nil.
func FindByID(notes []*Note, id string) *Note {
	for _, n := range notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// MergeTags appends the tags not already present, keeping existing order.
func MergeTags(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, tag := range existing {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range extra {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

// Preview returns the text flattened to one line and cut to maxLen runes.
func (n *Note) Preview(maxLen int) string {
	flat := strings.Join(strings.Fields(n.Text), " ")
	runes := []rune(flat)
	if len(runes) <= maxLen {
		return flat
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
