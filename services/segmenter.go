package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"krishi-mitra-backend/models"

	"github.com/google/uuid"
)

// Segmenter defaults, in runes (size, min size) and words (overlap).
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultMinChunkSize = 100
)

// Segmenter splits extracted document text into overlapping, sentence-aligned chunks.
type Segmenter struct {
	chunkSize    int
	overlap      int
	minChunkSize int
}

// NewSegmenter creates a segmenter. Non-positive sizes fall back to the defaults.
func NewSegmenter(chunkSize, overlap, minChunkSize int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if minChunkSize < 0 {
		minChunkSize = DefaultMinChunkSize
	}
	return &Segmenter{
		chunkSize:    chunkSize,
		overlap:      overlap,
		minChunkSize: minChunkSize,
	}
}

// Segment returns the chunk texts for rawText in source order.
//
// Units are packed greedily while the chunk stays under chunkSize. When a unit does
// not fit, the chunk is closed and the next one starts with the trailing words of the
// closed chunk (at most overlap words, fewer if needed to keep room for the unit).
// A unit longer than chunkSize on its own is emitted intact. Chunks shorter than
// minChunkSize are dropped.
func (s *Segmenter) Segment(rawText string) []string {
	units := s.units(rawText)
	if len(units) == 0 {
		return []string{}
	}

	var (
		chunks  []string
		current []string
		curLen  int
	)

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
	}

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if len(current) == 0 {
			current = []string{unit}
			curLen = unitLen
			continue
		}
		if curLen+unitLen+1 < s.chunkSize {
			current = append(current, unit)
			curLen += unitLen + 1
			continue
		}

		flush()
		seed := s.overlapWords(current, unitLen)
		current = append(seed, unit)
		curLen = utf8.RuneCountInString(strings.Join(current, " "))
	}
	flush()

	kept := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c) >= s.minChunkSize {
			kept = append(kept, c)
		}
	}
	return kept
}

// Chunks segments a document's text into chunk records. Order restarts at zero for
// every document.
func (s *Segmenter) Chunks(source, rawText string) []models.Chunk {
	texts := s.Segment(rawText)
	out := make([]models.Chunk, len(texts))
	for i, text := range texts {
		out[i] = models.Chunk{
			ChunkID: uuid.NewString(),
			Source:  source,
			Order:   i,
			Text:    text,
		}
	}
	return out
}

// units cleans rawText and splits it into sentence-like units, repairing numeric
// table rows that lack terminal punctuation.
func (s *Segmenter) units(rawText string) []string {
	cleaned := cleanText(rawText)
	if cleaned == "" {
		return nil
	}

	units := splitSentences(cleaned)
	for i, u := range units {
		if looksLikeTableRow(u) && !endsWithTerminal(u) {
			units[i] = u + "."
		}
	}
	return units
}

// overlapWords returns the trailing words of the closed chunk that seed the next one,
// trimmed from the front until the seed plus the incoming unit fits in chunkSize.
func (s *Segmenter) overlapWords(closed []string, unitLen int) []string {
	if s.overlap == 0 {
		return nil
	}
	words := strings.Fields(strings.Join(closed, " "))
	if len(words) > s.overlap {
		words = words[len(words)-s.overlap:]
	}

	seedLen := utf8.RuneCountInString(strings.Join(words, " "))
	for len(words) > 0 && seedLen+unitLen+1 >= s.chunkSize {
		seedLen -= utf8.RuneCountInString(words[0])
		if len(words) > 1 {
			seedLen--
		}
		words = words[1:]
	}

	seed := make([]string, len(words), len(words)+1)
	copy(seed, words)
	return seed
}

// cleanText collapses whitespace and control characters into single spaces.
func cleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences splits on a space that follows '.', '!' or '?'. The input must
// already be whitespace-collapsed.
func splitSentences(text string) []string {
	var units []string
	start := 0
	var prev rune
	for i, r := range text {
		if r == ' ' && isTerminal(prev) {
			units = append(units, text[start:i])
			start = i + 1
		}
		prev = r
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

func looksLikeTableRow(unit string) bool {
	letters, digits := 0, 0
	for _, r := range unit {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters > 10 && digits > 5
}

func endsWithTerminal(unit string) bool {
	r, _ := utf8.DecodeLastRuneInString(unit)
	return isTerminal(r)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
