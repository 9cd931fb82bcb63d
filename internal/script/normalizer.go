// internal/script/normalizer.go
package script

import (
	"regexp"
	"strings"
)

// 结构标记：段落标签、场景编号、时间提示、背景音乐与音效标注
var structureMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(오프닝[^)]*\)`),
	regexp.MustCompile(`(?i)\[오프닝[^\]]*\]`),
	regexp.MustCompile(`(?i)\(본론[^)]*\)`),
	regexp.MustCompile(`(?i)\[본론[^\]]*\]`),
	regexp.MustCompile(`(?i)\(결론[^)]*\)`),
	regexp.MustCompile(`(?i)\[결론[^\]]*\]`),
	regexp.MustCompile(`(?i)\(클로징[^)]*\)`),
	regexp.MustCompile(`(?i)\(도입부[^)]*\)`),
	regexp.MustCompile(`(?i)\(마무리[^)]*\)`),
	regexp.MustCompile(`(?i)\(씬\s*\d+[^)]*\)`),
	regexp.MustCompile(`(?i)\[씬\s*\d+[^\]]*\]`),
	regexp.MustCompile(`\(\d+초[^)]*\)`),
	regexp.MustCompile(`(?i)\[배경음악[^\]]*\]`),
	regexp.MustCompile(`(?i)\[효과음[^\]]*\]`),
	// 英文剧本中的同类标注
	regexp.MustCompile(`(?i)[\(\[](?:opening|intro|introduction|body|main|conclusion|closing|outro|ending)\b[^\)\]]*[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]scene\s*\d+[^\)\]]*[\)\]]`),
	regexp.MustCompile(`(?i)\(\d+\s*(?:s|sec|secs|seconds)\b[^)]*\)`),
	regexp.MustCompile(`(?i)\[(?:bgm|music|background\s+music|sfx|sound\s+effects?)\b[^\]]*\]`),
}

var (
	blankLineRun  = regexp.MustCompile(`\n\s*\n\s*\n`)
	horizontalRun = regexp.MustCompile(`[ \t]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize 去除剧本中的结构标注并整理空白，结果幂等。
// 空白合并后可能露出新的标注，整个过程重复到输出不再变化为止。
func Normalize(raw string) string {
	text := normalizePass(raw)
	for {
		next := normalizePass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func normalizePass(raw string) string {
	cleaned := stripMarkers(raw)

	// 替换后可能产生新的三连空行，重复到稳定为止
	for blankLineRun.MatchString(cleaned) {
		cleaned = blankLineRun.ReplaceAllString(cleaned, "\n\n")
	}
	cleaned = horizontalRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// 去掉行尾空白
	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// stripMarkers 删除标注，直到文本不再变化
func stripMarkers(text string) string {
	for {
		stripped := text
		for _, marker := range structureMarkers {
			stripped = marker.ReplaceAllString(stripped, "")
		}
		if stripped == text {
			return text
		}
		text = stripped
	}
}
