// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"strconv"
	"strings"
)

// maxIndent is the deepest list indent Slack produces. Deeper values wrap.
const maxIndent = 4

var (
	orderedLabels = [maxIndent + 1]func(int) string{
		arabicLabel,
		letterLabel,
		romanLabel,
		arabicLabel,
		letterLabel,
	}
	bulletGlyphs = [maxIndent + 1]string{"●", "○", "■", "●", "○"}
)

// Numbering returns the prefix for the index-th (1-based) item of a list with
// the given style and indent. Ordered lists cycle through 1. / a. / i. by
// indent, bullet lists through ● / ○ / ■. Unknown styles render as bullets.
func Numbering(style ListStyle, indent, index int) string {
	if indent < 0 {
		indent = 0
	}
	indent %= maxIndent + 1
	if index < 1 {
		index = 1
	}
	if style == ListOrdered {
		return orderedLabels[indent](index)
	}
	return bulletGlyphs[indent]
}

func arabicLabel(n int) string {
	return strconv.Itoa(n) + "."
}

// letterLabel uses bijective base 26: 1=a, 26=z, 27=aa, 28=ab.
func letterLabel(n int) string {
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('a'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf) + "."
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"},
	{1, "i"},
}

func romanLabel(n int) string {
	var sb strings.Builder
	for _, numeral := range romanNumerals {
		for n >= numeral.value {
			sb.WriteString(numeral.symbol)
			n -= numeral.value
		}
	}
	sb.WriteByte('.')
	return sb.String()
}
