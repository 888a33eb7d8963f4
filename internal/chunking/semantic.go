package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCohesionThreshold is the minimum word overlap between neighbouring
// sentences for them to stay in one chunk.
const DefaultCohesionThreshold = 0.1

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "his": {}, "its": {}, "that": {}, "this": {},
	"with": {}, "from": {}, "they": {}, "have": {}, "were": {}, "been": {}, "which": {},
	"their": {}, "there": {}, "these": {}, "those": {}, "into": {}, "than": {}, "then": {},
}

// NewSemanticChunker groups consecutive sentences while each sentence shares
// at least threshold (Jaccard) of its content words with the previous one,
// and the chunk stays within maxSize runes.
func NewSemanticChunker(maxSize int, threshold float64) Chunker {
	if maxSize <= 0 {
		maxSize = defaultChunkSize
	}
	if threshold <= 0 {
		threshold = DefaultCohesionThreshold
	}
	return &documentChunker{name: StrategySemantic, split: semanticSplit(maxSize, threshold)}
}

func semanticSplit(maxSize int, threshold float64) splitFunc {
	return func(text string) ([]piece, error) {
		var (
			pieces   []piece
			current  []string
			size     int
			previous map[string]struct{}
		)

		flush := func() {
			if len(current) > 0 {
				pieces = append(pieces, piece{text: strings.Join(current, " ")})
			}
			current, size = nil, 0
		}

		for _, sentence := range splitSentences(text) {
			words := contentWords(sentence)
			n := utf8.RuneCountInString(sentence)

			if len(current) > 0 && (jaccard(previous, words) < threshold || size+1+n > maxSize) {
				flush()
			}
			current = append(current, sentence)
			if size > 0 {
				size++
			}
			size += n
			previous = words
		}
		flush()

		return pieces, nil
	}
}

// splitSentences breaks text after ., ! or ? followed by whitespace, and at
// blank lines.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	emit := func() {
		if s := strings.Join(strings.Fields(b.String()), " "); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)

		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case (r == '.' || r == '!' || r == '?') && (next == 0 || unicode.IsSpace(next)):
			emit()
		case r == '\n' && next == '\n':
			emit()
		}
	}
	emit()

	return sentences
}

func contentWords(sentence string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
