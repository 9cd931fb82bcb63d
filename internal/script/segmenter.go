// internal/script/segmenter.go
package script

import (
	"regexp"
	"strings"
	"unicode"
)

// MinUnitRunes 句子单元至少包含的非空白字符数
const MinUnitRunes = 5

var (
	sentenceTerminators = regexp.MustCompile(`[.!?。！？]+`)
	lineBreaks          = regexp.MustCompile(`\n+`)
)

// Segment 将规范化后的文本切分为句子单元。
// 先按句末标点切分；不超过一个单元时改按换行切分，取单元更多的结果；
// 两者都为空而文本非空时，整段作为一个单元。
func Segment(text string) []string {
	units := SplitSentences(text)
	if len(units) <= 1 {
		if lines := splitAndFilter(lineBreaks, text); len(lines) > len(units) {
			units = lines
		}
	}

	if len(units) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			units = []string{trimmed}
		}
	}
	return units
}

// SplitSentences 按句末标点切分并过滤过短片段
func SplitSentences(text string) []string {
	return splitAndFilter(sentenceTerminators, text)
}

func splitAndFilter(sep *regexp.Regexp, text string) []string {
	var units []string
	for _, piece := range sep.Split(text, -1) {
		piece = strings.TrimSpace(piece)
		if countNonSpace(piece) >= MinUnitRunes {
			units = append(units, piece)
		}
	}
	return units
}

// countNonSpace 统计非空白字符数（按 rune）
func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
