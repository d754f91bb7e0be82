package rag

import (
	"strings"
	"unicode"

	"github.com/priyamehta/docintel/internal/models"
)

// boundaryLookback is how far back from the target cut point the chunker
// searches for whitespace to avoid mid-word splits.
const boundaryLookback = 120

type ChunkOptions struct {
	Size    int // target chunk size in characters
	Overlap int // characters shared with the previous chunk
}

func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{Size: 1200, Overlap: 180}
}

// Piece is a chunk of source text plus the metadata stored alongside its
// vector.
type Piece struct {
	Content  string
	Metadata models.ChunkMeta
}

// Page is a unit of input text; PDFs yield one per page, plain text a
// single page numbered 0.
type Page struct {
	Number int
	Text   string
}

// ChunkText splits text into ordered windows. chunk_order is strictly
// increasing across the whole document, even when input spans pages.
func ChunkText(text, source string, opts ChunkOptions) []Piece {
	return ChunkPages([]Page{{Text: text}}, source, opts)
}

func ChunkPages(pages []Page, source string, opts ChunkOptions) []Piece {
	if opts.Size <= 0 {
		opts.Size = DefaultChunkOptions().Size
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}

	var pieces []Piece
	order := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, content := range splitWindows([]rune(page.Text), opts) {
			pieces = append(pieces, Piece{
				Content: content,
				Metadata: models.ChunkMeta{
					Source:     source,
					Page:       page.Number,
					ChunkOrder: order,
				},
			})
			order++
		}
	}
	return pieces
}

// splitWindows produces windows of ~opts.Size runes. Each cut point prefers
// the nearest whitespace within boundaryLookback runes of the target
// boundary; consecutive windows share exactly opts.Overlap runes, so
// concatenating windows with the overlap stripped reconstructs the input.
func splitWindows(runes []rune, opts ChunkOptions) []string {
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + opts.Size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}

		if cut := nearestWhitespace(runes, end, start); cut > start {
			end = cut
		}
		out = append(out, string(runes[start:end]))

		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// nearestWhitespace walks back from target looking for a rune boundary to
// cut after. Returns target unchanged when no whitespace is close enough.
func nearestWhitespace(runes []rune, target, floor int) int {
	limit := target - boundaryLookback
	if limit < floor {
		limit = floor
	}
	for i := target - 1; i > limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return target
}
