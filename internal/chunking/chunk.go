package chunking

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Chunk is one piece of a source document.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	Index    int    `json:"index"`
	Strategy string `json:"strategy"`
	Heading  string `json:"heading,omitempty"`
}

// Chunker turns a list of text files into an ordered chunk sequence.
// Chunks follow the order of paths, then position within each file.
type Chunker interface {
	ChunkDocuments(ctx context.Context, paths []string) ([]Chunk, error)
}

// piece is a split result before it is bound to a source.
type piece struct {
	text    string
	heading string
}

// splitFunc splits one normalized document.
type splitFunc func(text string) ([]piece, error)

// documentChunker applies a splitFunc to each document in turn.
type documentChunker struct {
	name  string
	split splitFunc
}

// ChunkDocuments implements Chunker.
func (c *documentChunker) ChunkDocuments(ctx context.Context, paths []string) ([]Chunk, error) {
	var chunks []Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := readDocument(path)
		if err != nil {
			return nil, err
		}

		pieces, err := c.split(text)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to split %s: %w", c.name, path, err)
		}
		chunks = append(chunks, buildChunks(c.name, path, pieces)...)
	}
	return chunks, nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return normalize(string(data)), nil
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return norm.NFC.String(text)
}

func buildChunks(strategy, source string, pieces []piece) []Chunk {
	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		text := strings.TrimSpace(p.text)
		if text == "" {
			continue
		}
		index := len(chunks)
		chunks = append(chunks, Chunk{
			ID:       chunkID(source, index, text),
			Text:     text,
			Source:   source,
			Index:    index,
			Strategy: strategy,
			Heading:  p.heading,
		})
	}
	return chunks
}

// chunkID hashes source, index and text; 16 bytes are plenty for uniqueness
// within a task.
func chunkID(source string, index int, text string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
