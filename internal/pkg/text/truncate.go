package text

import (
	"strings"
	"unicode/utf8"
)

// Truncate 按字符截断并追加 "..."。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// SplitLines 按行切分长文本，每段不超过 limit 个字节；单行超长时硬切。
func SplitLines(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		return []string{s}
	}
	var (
		out []string
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, strings.TrimRight(buf.String(), "\n"))
			buf.Reset()
		}
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			out = append(out, line[:cut])
			line = line[cut:]
		}
		if buf.Len()+len(line) > limit {
			flush()
		}
		buf.WriteString(line)
	}
	flush()
	return out
}
