package rag

import (
	"strings"
	"testing"
	"unicode"
)

func prose(words int) string {
	var sb strings.Builder
	for i := 0; i < words; i++ {
		sb.WriteString("lorem ipsum dolor sit amet consectetur ")
	}
	return strings.TrimSpace(sb.String())
}

func TestChunkOrderStrictlyIncreasing(t *testing.T) {
	pieces := ChunkText(prose(200), "doc.txt", ChunkOptions{Size: 100, Overlap: 20})
	if len(pieces) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(pieces))
	}
	for i, p := range pieces {
		if p.Metadata.ChunkOrder != i {
			t.Errorf("chunk %d has order %d", i, p.Metadata.ChunkOrder)
		}
		if p.Metadata.Source != "doc.txt" {
			t.Errorf("chunk %d has source %q", i, p.Metadata.Source)
		}
	}
}

func TestChunkReconstruction(t *testing.T) {
	text := prose(150)
	overlap := 20
	pieces := ChunkText(text, "doc.txt", ChunkOptions{Size: 100, Overlap: overlap})

	var sb strings.Builder
	for i, p := range pieces {
		runes := []rune(p.Content)
		if i == 0 {
			sb.WriteString(p.Content)
			continue
		}
		if len(runes) <= overlap {
			t.Fatalf("chunk %d shorter than overlap: %d runes", i, len(runes))
		}
		sb.WriteString(string(runes[overlap:]))
	}

	if sb.String() != text {
		t.Errorf("concatenated chunks do not reconstruct source text\ngot len %d, want len %d", sb.Len(), len(text))
	}
}

func TestChunkCutsAtWhitespace(t *testing.T) {
	pieces := ChunkText(prose(200), "doc.txt", ChunkOptions{Size: 100, Overlap: 0})
	for i, p := range pieces[:len(pieces)-1] {
		runes := []rune(p.Content)
		last := runes[len(runes)-1]
		if !unicode.IsSpace(last) {
			t.Errorf("chunk %d does not end at whitespace: ...%q", i, string(runes[len(runes)-5:]))
		}
	}
}

func TestChunkNoWhitespaceFallsBackToHardCut(t *testing.T) {
	text := strings.Repeat("x", 350)
	pieces := ChunkText(text, "blob", ChunkOptions{Size: 100, Overlap: 0})
	if len(pieces) != 4 {
		t.Fatalf("got %d chunks, want 4", len(pieces))
	}
	for _, p := range pieces[:3] {
		if len([]rune(p.Content)) != 100 {
			t.Errorf("hard cut chunk has %d runes, want 100", len([]rune(p.Content)))
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if got := ChunkText("", "doc", ChunkOptions{Size: 100}); got != nil {
		t.Errorf("ChunkText(empty) = %v, want nil", got)
	}
	if got := ChunkText("   \n\t ", "doc", ChunkOptions{Size: 100}); got != nil {
		t.Errorf("ChunkText(whitespace) = %v, want nil", got)
	}
}

func TestChunkPagesCarryPageNumbers(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: prose(40)},
		{Number: 2, Text: prose(40)},
	}
	pieces := ChunkPages(pages, "scan.pdf", ChunkOptions{Size: 120, Overlap: 0})
	if len(pieces) < 2 {
		t.Fatalf("expected chunks from both pages, got %d", len(pieces))
	}

	sawPage2 := false
	prev := -1
	for _, p := range pieces {
		if p.Metadata.ChunkOrder <= prev {
			t.Errorf("chunk order not strictly increasing across pages: %d after %d", p.Metadata.ChunkOrder, prev)
		}
		prev = p.Metadata.ChunkOrder
		if p.Metadata.Page == 2 {
			sawPage2 = true
		}
	}
	if !sawPage2 {
		t.Error("no chunk carries page 2 metadata")
	}
}
