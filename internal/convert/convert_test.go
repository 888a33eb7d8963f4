package convert

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	pdf := ConverterFunc(func(ctx context.Context, path string) (string, error) { return path + ".md", nil })
	r.Register("PDF", pdf)
	r.Register(".docx", pdf)

	c, ok := r.Lookup("/tmp/x/Report.Pdf")
	require.True(t, ok)
	out, err := c.Convert(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf.md", out)

	_, ok = r.Lookup("/tmp/x/notes.txt")
	assert.False(t, ok)
	_, ok = r.Lookup("/tmp/x/noext")
	assert.False(t, ok)

	assert.Equal(t, []string{".docx", ".pdf"}, r.Extensions())
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		filepath.Join("/tmp/ai_chunking/abc", "paper", "paper.md"),
		OutputPath("/tmp/ai_chunking/abc/paper.pdf"))
	assert.Equal(t,
		filepath.Join("dir", "my.report", "my.report.md"),
		OutputPath("dir/my.report.pdf"))
}
