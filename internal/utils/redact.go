// internal/utils/redact.go
package utils

import "regexp"

// RedactedMark 替换密钥后的占位文本
const RedactedMark = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{6,}`),
	regexp.MustCompile(`AIza[A-Za-z0-9_\-]{10,}`),
	regexp.MustCompile(`(?i)(key|token|secret)=[^&\s"]+`),
}

// RedactSecrets 去除文本中形如 API 密钥的内容
func RedactSecrets(text string) string {
	for _, pattern := range secretPatterns {
		text = pattern.ReplaceAllString(text, RedactedMark)
	}
	return text
}
