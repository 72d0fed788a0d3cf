package models

import (
	"encoding/json"
	"testing"
)

func TestHasEmbedding(t *testing.T) {
	tests := []struct {
		name string
		note Note
		want bool
	}{
		{"nil embedding", Note{ID: "a"}, false},
		{"empty embedding", Note{ID: "a", Embedding: []float64{}}, false},
		{"with embedding", Note{ID: "a", Embedding: []float64{0.1, 0.2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.note.HasEmbedding(); got != tt.want {
				t.Errorf("HasEmbedding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoteJSONLayout(t *testing.T) {
	note := Note{
		ID:        "summary_1",
		Embedding: []float64{0.5, 1},
		Text:      "Meeting Summary",
		Tags:      []string{},
		Backlinks: []string{"summary_2"},
	}

	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"id":"summary_1","embedding":[0.5,1],"text":"Meeting Summary","tags":[],"backlinks":["summary_2"]}`
	if string(data) != want {
		t.Errorf("unexpected JSON\n got: %s\nwant: %s", data, want)
	}
}

func TestNoteJSONAbsentFieldsStayAbsent(t *testing.T) {
	var note Note
	if err := json.Unmarshal([]byte(`{"id":"x","text":"t"}`), &note); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"id":"x","text":"t"}` {
		t.Errorf("absent fields were materialized: %s", data)
	}
}

func TestNoteJSONNullSlicesLoadEmpty(t *testing.T) {
	var note Note
	if err := json.Unmarshal([]byte(`{"id":"x","text":"t","tags":null,"backlinks":null}`), &note); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if note.Tags == nil || len(note.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty slice", note.Tags)
	}
	if note.Backlinks == nil || len(note.Backlinks) != 0 {
		t.Errorf("Backlinks = %#v, want empty slice", note.Backlinks)
	}

	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"id":"x","text":"t","tags":[],"backlinks":[]}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestNoteJSONRejectsBadTags(t *testing.T) {
	var note Note
	if err := json.Unmarshal([]byte(`{"id":"x","text":"t","tags":"meeting"}`), &note); err == nil {
		t.Error("expected an error for a non-array tags field")
	}
}

func TestClone(t *testing.T) {
	orig := &Note{ID: "a", Embedding: []float64{1}, Tags: []string{"x"}, Backlinks: []string{"b"}}
	c := orig.Clone()
	c.Embedding[0] = 2
	c.Tags[0] = "y"
	c.Backlinks[0] = "c"

	if orig.Embedding[0] != 1 || orig.Tags[0] != "x" || orig.Backlinks[0] != "b" {
		t.Errorf("Clone shares memory with the original: %+v", orig)
	}
}

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"arbitrage", "trading"}, []string{"trading", "backtesting", "arbitrage"})
	want := []string{"arbitrage", "trading", "backtesting"}
	if len(got) != len(want) {
		t.Fatalf("MergeTags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MergeTags()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPreview(t *testing.T) {
	note := Note{Text: "Meeting Summary:\n  Arbitrage   Model\nfor Index"}
	if got := note.Preview(100); got != "Meeting Summary: Arbitrage Model for Index" {
		t.Errorf("Preview(100) = %q", got)
	}
	if got := note.Preview(10); got != "Meeting..." {
		t.Errorf("Preview(10) = %q", got)
	}
}

func TestFindByID(t *testing.T) {
	notes := []*Note{{ID: "a"}, {ID: "b"}}
	if n := FindByID(notes, "b"); n == nil || n.ID != "b" {
		t.Errorf("FindByID(b) = %v", n)
	}
	if n := FindByID(notes, "c"); n != nil {
		t.Errorf("FindByID(c) = %v, want nil", n)
	}
}
