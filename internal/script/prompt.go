// internal/script/prompt.go
package script

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Corphon/SceneForge/internal/models"
)

const (
	// FallbackPrompt 提示词清理后过短时的替代值
	FallbackPrompt = "professional scene, high quality, vibrant colors, 16:9 aspect ratio"

	minPromptLength = 20

	qualityQualifiers = "professional photography, high quality, vibrant colors, " +
		"well-lit, sharp focus, detailed, clean composition, " +
		"16:9 aspect ratio, modern aesthetic, engaging visual"
)

// QualityKeywords 批量优化时保证出现的关键字
var QualityKeywords = []string{
	"high quality",
	"professional",
	"detailed",
	"vibrant colors",
	"16:9 aspect ratio",
}

var (
	runOnComma  = regexp.MustCompile(`[,\s]+,`)
	doubleComma = regexp.MustCompile(`,\s*,`)
)

// Synthesizer 根据主题模板生成图像提示词
type Synthesizer struct {
	templates *TemplateTable
}

// NewSynthesizer 创建提示词合成器，templates 为 nil 时使用内置模板
func NewSynthesizer(templates *TemplateTable) *Synthesizer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Synthesizer{templates: templates}
}

// Templates 当前使用的模板表
func (s *Synthesizer) Templates() *TemplateTable {
	return s.templates
}

// BasePrompt 模板基调 + 循环镜头描述 + 固定质量修饰
func (s *Synthesizer) BasePrompt(topic string, sequence int) string {
	tpl := s.templates.Lookup(topic)
	return collapseSpace(tpl.Base + ", " + tpl.Variant(sequence) + ", " + qualityQualifiers)
}

// Synthesize 生成场景的最终提示词，角色表非空时加上角色前缀
func (s *Synthesizer) Synthesize(topic string, sequence int, roster []models.Character) string {
	prompt := Validate(s.BasePrompt(topic, sequence))
	if prefix := CharacterPrefix(roster); prefix != "" {
		return collapseSpace(prefix + prompt)
	}
	return prompt
}

// CharacterPrefix 构造 "featuring d1, d2, " 形式的角色一致性前缀。
// 描述为空的角色使用 "名称, 角色"，清理后为空的条目被忽略。
func CharacterPrefix(roster []models.Character) string {
	descs := make([]string, 0, len(roster))
	for _, c := range roster {
		desc := c.Description
		if strings.TrimSpace(desc) == "" {
			role := c.Role
			if strings.TrimSpace(role) == "" {
				role = "character"
			}
			desc = c.Name + ", " + role
		}
		desc = collapseSpace(stripNonLatin(desc, ' '))
		if desc != "" {
			descs = append(descs, desc)
		}
	}
	if len(descs) == 0 {
		return ""
	}
	return "featuring " + strings.Join(descs, ", ") + ", "
}

// Validate 去除非拉丁文字并整理标点空白，剩余不足20个字符时返回 FallbackPrompt
func Validate(prompt string) string {
	cleaned := stripNonLatin(prompt, -1)
	cleaned = runOnComma.ReplaceAllString(strings.TrimSpace(cleaned), ",")
	cleaned = collapseSpace(cleaned)
	if utf8.RuneCountInString(cleaned) < minPromptLength {
		return FallbackPrompt
	}
	return cleaned
}

// Improve 去除非拉丁文字并补齐缺失的质量关键字
func Improve(prompt string) string {
	improved := collapseSpace(stripNonLatin(prompt, ' '))
	improved = strings.Trim(doubleComma.ReplaceAllString(improved, ","), ", ")

	for _, keyword := range QualityKeywords {
		if strings.Contains(strings.ToLower(improved), strings.ToLower(keyword)) {
			continue
		}
		if improved == "" {
			improved = keyword
		} else {
			improved += ", " + keyword
		}
	}
	return improved
}

// ImproveAll 批量优化所有场景提示词并重新加上当前角色表的前缀，返回新的场景列表。
// 场景记录的旧前缀会先被去掉，角色表变化后不会叠加两个前缀。
func ImproveAll(scenes []models.Scene, roster []models.Character) []models.Scene {
	prefix := CharacterPrefix(roster)

	out := make([]models.Scene, len(scenes))
	for i, scene := range scenes {
		body := stripCharacterPrefix(scene.ImagePrompt, scene.PromptPrefix, prefix)
		improved := Validate(Improve(body))
		if prefix != "" {
			improved = collapseSpace(prefix + improved)
		}
		scene.ImagePrompt = improved
		scene.PromptPrefix = prefix
		out[i] = scene
	}
	return out
}

// stripCharacterPrefix 去掉提示词开头第一个匹配的前缀
func stripCharacterPrefix(prompt string, prefixes ...string) string {
	for _, p := range prefixes {
		head := strings.TrimSpace(p)
		if head != "" && strings.HasPrefix(prompt, head) {
			return strings.TrimSpace(strings.TrimPrefix(prompt, head))
		}
	}
	return prompt
}

// isNonLatin 非拉丁文字的字母或附加符号。
// 数字、标点和通用的组合附加符号（如 é 的重音）保留。
func isNonLatin(r rune) bool {
	if !unicode.IsLetter(r) && !unicode.IsMark(r) {
		return false
	}
	return !unicode.Is(unicode.Latin, r) && !unicode.Is(unicode.Inherited, r)
}

// stripNonLatin 将非拉丁文字替换为 repl，repl 为负数时直接删除
func stripNonLatin(s string, repl rune) string {
	return strings.Map(func(r rune) rune {
		if isNonLatin(r) {
			return repl
		}
		return r
	}, s)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
