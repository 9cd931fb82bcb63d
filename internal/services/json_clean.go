// internal/services/json_clean.go
package services

import (
	"strings"
	"unicode"
)

// 清理JSON字符串，去除前后非JSON内容
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```JSON", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// cleanJSONString 从模型输出中截取第一个完整的 JSON 对象或数组
func cleanJSONString(s string) string {
	s = strings.TrimSpace(jsonNoiseReplacer.Replace(s))
	if s == "" {
		return s
	}

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// 查找第一个 { 或 [，将其之前的内容全部丢弃
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	s = s[start:]

	open, closing := byte('{'), byte('}')
	if s[0] == '[' {
		open, closing = '[', ']'
	}

	// 简单的括号计数匹配
	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		char := s[i]
		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case open:
			balance++
		case closing:
			balance--
			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 没找到匹配的结束符，退回到最后一个结束符
	if end := strings.LastIndexByte(s, closing); end != -1 {
		return strings.TrimSpace(s[:end+1])
	}
	return strings.TrimSpace(s)
}
