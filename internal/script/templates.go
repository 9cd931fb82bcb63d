// internal/script/templates.go
package script

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template 主题对应的画面基调与镜头描述
type Template struct {
	Keyword  string   `yaml:"keyword" json:"keyword"`
	Base     string   `yaml:"base" json:"base"`
	Variants []string `yaml:"variants" json:"variants"`
}

// Variant 按场景序号循环选取镜头描述，序号从1开始
func (t Template) Variant(sequence int) string {
	if len(t.Variants) == 0 {
		return ""
	}
	idx := (sequence - 1) % len(t.Variants)
	if idx < 0 {
		idx += len(t.Variants)
	}
	return t.Variants[idx]
}

// TemplateTable 有序模板表，首个关键字命中者生效，未命中时使用默认模板
type TemplateTable struct {
	entries  []Template
	fallback Template
}

var defaultTemplate = Template{
	Keyword: "default",
	Base:    "modern lifestyle, everyday scene, professional photography",
	Variants: []string{
		"introduction scene with clear message",
		"main content demonstration",
		"detailed explanation or process",
		"conclusion with positive outcome",
	},
}

var builtinTemplates = []Template{
	{
		Keyword: "공무원",
		Base:    "government office, civil service, professional workspace",
		Variants: []string{
			"person studying at desk with books and laptop",
			"organized study materials and notes spread out",
			"focused person writing exam preparation",
			"celebration of exam success, diploma and certificate",
		},
	},
	{
		Keyword: "다이소",
		Base:    "Daiso store, budget shopping, colorful products",
		Variants: []string{
			"colorful Daiso store interior with product displays",
			"hand holding budget-friendly useful items",
			"organized household products on shelves",
			"satisfied customer with shopping basket",
		},
	},
	{
		Keyword: "운동",
		Base:    "fitness, exercise, gym, healthy lifestyle",
		Variants: []string{
			"person doing stretching exercises",
			"active workout routine in gym",
			"healthy lifestyle and fitness motivation",
			"achievement of fitness goals",
		},
	},
	{
		Keyword: "요리",
		Base:    "cooking, kitchen, food preparation, culinary",
		Variants: []string{
			"fresh ingredients on kitchen counter",
			"cooking process with utensils",
			"delicious finished dish presentation",
			"happy person enjoying homemade food",
		},
	},
	{
		Keyword: "여행",
		Base:    "travel, tourism, destination, adventure",
		Variants: []string{
			"beautiful landscape and scenery",
			"tourist exploring new location",
			"happy traveler with backpack",
			"scenic view of destination",
		},
	},
	{
		Keyword: "재테크",
		Base:    "investment, finance, money management, savings",
		Variants: []string{
			"financial growth graph and charts",
			"saving money in piggy bank",
			"calculating budget and expenses",
			"successful financial planning concept",
		},
	},
	{
		Keyword: "공부",
		Base:    "study, learning, education, academic",
		Variants: []string{
			"student reading books in library",
			"taking notes in notebook",
			"focused learning environment",
			"educational materials and laptop",
		},
	},
}

// DefaultTemplates 内置模板表
func DefaultTemplates() *TemplateTable {
	table, _ := NewTemplateTable(builtinTemplates, defaultTemplate)
	return table
}

// NewTemplateTable 校验并创建模板表
func NewTemplateTable(entries []Template, fallback Template) (*TemplateTable, error) {
	if strings.TrimSpace(fallback.Base) == "" || len(fallback.Variants) == 0 {
		return nil, fmt.Errorf("默认模板必须包含基调和至少一个镜头描述")
	}

	table := &TemplateTable{
		entries:  make([]Template, 0, len(entries)),
		fallback: cloneTemplate(fallback),
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.Keyword) == "" {
			return nil, fmt.Errorf("第%d个模板缺少关键字", i+1)
		}
		if len(entry.Variants) == 0 {
			return nil, fmt.Errorf("模板 %q 缺少镜头描述", entry.Keyword)
		}
		table.entries = append(table.entries, cloneTemplate(entry))
	}
	return table, nil
}

// templateFile YAML 覆盖文件的结构
type templateFile struct {
	Templates []Template `yaml:"templates"`
	Default   *Template  `yaml:"default"`
}

// LoadTemplates 从 YAML 文件加载模板表，未提供 default 时沿用内置默认模板
func LoadTemplates(path string) (*TemplateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板文件失败: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates 解析 YAML 模板定义
func ParseTemplates(data []byte) (*TemplateTable, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析模板文件失败: %w", err)
	}

	fallback := defaultTemplate
	if file.Default != nil {
		fallback = *file.Default
	}
	return NewTemplateTable(file.Templates, fallback)
}

// Lookup 返回第一个关键字出现在主题中的模板
func (t *TemplateTable) Lookup(topic string) Template {
	for _, entry := range t.entries {
		if strings.Contains(topic, entry.Keyword) {
			return entry
		}
	}
	return t.fallback
}

// Entries 返回模板副本，末尾为默认模板
func (t *TemplateTable) Entries() []Template {
	out := make([]Template, 0, len(t.entries)+1)
	for _, entry := range t.entries {
		out = append(out, cloneTemplate(entry))
	}
	return append(out, cloneTemplate(t.fallback))
}

func cloneTemplate(t Template) Template {
	t.Variants = append([]string(nil), t.Variants...)
	return t
}
