package chunking

import (
	"context"
	"fmt"
)

type autoChunker struct {
	section   splitFunc
	recursive splitFunc
}

// ChunkDocuments implements Chunker, choosing a splitter per document.
func (c *autoChunker) ChunkDocuments(ctx context.Context, paths []string) ([]Chunk, error) {
	var chunks []Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := readDocument(path)
		if err != nil {
			return nil, err
		}

		name, split := StrategyRecursiveText, c.recursive
		if hasHeadings(text) {
			name, split = StrategySectionSemantic, c.section
		}

		pieces, err := split(text)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to split %s: %w", StrategyAutoAI, path, err)
		}
		chunks = append(chunks, buildChunks(name, path, pieces)...)
	}
	return chunks, nil
}
