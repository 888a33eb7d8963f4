package chunking

import (
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

var (
	headingPattern     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S`)
	headingLinePattern = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S.*$`)
)

// NewRecursiveTextChunker splits on paragraph, line and word boundaries,
// keeping chunks under size runes with overlap runes shared between
// neighbours.
func NewRecursiveTextChunker(size, overlap int) Chunker {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	return &documentChunker{name: StrategyRecursiveText, split: stringSplit(splitter.SplitText)}
}

// NewSectionChunker splits Markdown along its headings and records the
// nearest heading on each chunk.
func NewSectionChunker(size, overlap int) Chunker {
	return &documentChunker{name: StrategySectionSemantic, split: sectionSplit(size, overlap)}
}

// NewAutoChunker picks the section splitter for documents with Markdown
// headings and the recursive splitter otherwise. Chunks carry the name of
// the strategy actually applied.
func NewAutoChunker(size, overlap int) Chunker {
	section := sectionSplit(size, overlap)
	recursive := stringSplit(textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	).SplitText)

	return &autoChunker{section: section, recursive: recursive}
}

func stringSplit(split func(string) ([]string, error)) splitFunc {
	return func(text string) ([]piece, error) {
		parts, err := split(text)
		if err != nil {
			return nil, err
		}
		pieces := make([]piece, len(parts))
		for i, p := range parts {
			pieces[i] = piece{text: p}
		}
		return pieces, nil
	}
}

func sectionSplit(size, overlap int) splitFunc {
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)

	return func(text string) ([]piece, error) {
		var pieces []piece
		for _, sec := range splitSections(text) {
			parts, err := splitter.SplitText(sec.body)
			if err != nil {
				return nil, err
			}
			for _, p := range parts {
				pieces = append(pieces, piece{text: p, heading: sec.heading})
			}
		}
		return pieces, nil
	}
}

type section struct {
	heading string
	body    string
}

// splitSections cuts text at every Markdown heading line. Text before the
// first heading forms a section with no heading.
func splitSections(text string) []section {
	locs := headingLinePattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []section{{body: text}}
	}

	var sections []section
	if lead := text[:locs[0][0]]; strings.TrimSpace(lead) != "" {
		sections = append(sections, section{body: lead})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		line := text[loc[0]:loc[1]]
		sections = append(sections, section{
			heading: strings.TrimSpace(strings.TrimLeft(line, "#")),
			body:    text[loc[0]:end],
		})
	}
	return sections
}

func hasHeadings(text string) bool {
	return headingPattern.MatchString(text)
}
