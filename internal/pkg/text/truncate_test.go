package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "多空...", Truncate("多空信号", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestSplitLines(t *testing.T) {
	in := strings.Repeat("line-0123\n", 10)
	parts := SplitLines(in, 25)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 25)
	}
	assert.Equal(t, strings.TrimRight(in, "\n"), strings.Join(parts, "\n"))

	assert.Equal(t, []string{"short"}, SplitLines("short", 100))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, SplitLines("abcdefghij", 4))
}
