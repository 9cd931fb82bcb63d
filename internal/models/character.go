// internal/models/character.go
package models

import (
	"strings"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
)

const (
	NarratorID   = "narrator_default"
	NarratorName = "내레이터"
	NarratorRole = "1인 내레이션"

	narratorFemale      = "A female narrator or presenter, professional, modern style, trustworthy and clear voice, suitable for documentary or educational video."
	narratorMale        = "A male narrator or presenter, professional, modern style, trustworthy and clear voice, suitable for documentary or educational video."
	narratorFemaleLocal = "여성 내레이터 또는 진행자, 전문적이고 현대적인 스타일, 신뢰감 있고 선명한 목소리, 다큐멘터리나 교육 영상에 적합합니다."
	narratorMaleLocal   = "남성 내레이터 또는 진행자, 전문적이고 현대적인 스타일, 신뢰감 있고 선명한 목소리, 다큐멘터리나 교육 영상에 적합합니다."
)

var (
	ErrNarratorProtected  = apperrors.NewConflictError("旁白角色不能删除", nil)
	ErrCharacterNotFound  = apperrors.NewNotFoundError("角色不存在", nil)
	ErrCharacterNameEmpty = apperrors.NewValidationError("角色名称不能为空", nil)
)

// Character 表示反复出现的人物，用于保持各镜头的形象一致
type Character struct {
	ID                   string `json:"id" yaml:"id"`
	Name                 string `json:"name" yaml:"name"`
	Role                 string `json:"role" yaml:"role"`
	Description          string `json:"description" yaml:"description"`                                         // 英文，用于图像提示词
	DescriptionLocalized string `json:"description_localized,omitempty" yaml:"description_localized,omitempty"` // 面向用户的描述
	UserInput            string `json:"user_input,omitempty" yaml:"user_input,omitempty"`
	ImageURL             string `json:"image_url,omitempty" yaml:"image_url,omitempty"` // 参考图，URL 或 data URL
}

// DefaultNarrator 默认旁白
func DefaultNarrator(female bool) Character {
	c := Character{
		ID:                   NarratorID,
		Name:                 NarratorName,
		Role:                 NarratorRole,
		Description:          narratorMale,
		DescriptionLocalized: narratorMaleLocal,
	}
	if female {
		c.Description = narratorFemale
		c.DescriptionLocalized = narratorFemaleLocal
	}
	return c
}

// IsNarrator 判断是否为旁白条目
func IsNarrator(c Character) bool {
	return c.ID == NarratorID || (c.Role == NarratorRole && c.Name == NarratorName)
}

// EnsureNarrator 保证角色表中恰好有一个旁白。
// 缺失时插入到最前面，多余的旁白条目被去掉；缺少本地化描述时按英文描述的性别补全。
func EnsureNarrator(list []Character, female bool) []Character {
	out := make([]Character, 0, len(list)+1)
	seen := false
	for _, c := range list {
		if !IsNarrator(c) {
			out = append(out, c)
			continue
		}
		if seen {
			continue
		}
		seen = true
		if strings.TrimSpace(c.DescriptionLocalized) == "" {
			if strings.Contains(strings.ToLower(c.Description), "female") {
				c.DescriptionLocalized = narratorFemaleLocal
			} else {
				c.DescriptionLocalized = narratorMaleLocal
			}
		}
		out = append(out, c)
	}
	if !seen {
		out = append([]Character{DefaultNarrator(female)}, out...)
	}
	return out
}

// AddCharacter 手动添加角色，描述为空时使用 "名称, 角色, default style"
func AddCharacter(list []Character, c Character) ([]Character, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, ErrCharacterNameEmpty
	}
	if strings.TrimSpace(c.Description) == "" {
		c.Description = c.Name + ", " + c.Role + ", default style"
	}
	out := make([]Character, 0, len(list)+1)
	out = append(out, list...)
	return append(out, c), nil
}

// UpdateCharacter 原地替换同 ID 的角色
func UpdateCharacter(list []Character, updated Character) ([]Character, error) {
	out := make([]Character, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
			return out, nil
		}
	}
	return nil, ErrCharacterNotFound
}

// RemoveCharacter 删除角色，旁白不可删除
func RemoveCharacter(list []Character, id string) ([]Character, error) {
	out := make([]Character, 0, len(list))
	found := false
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
			continue
		}
		if IsNarrator(c) {
			return nil, ErrNarratorProtected
		}
		found = true
	}
	if !found {
		return nil, ErrCharacterNotFound
	}
	return out, nil
}

// FindCharacter 按 ID 查找
func FindCharacter(list []Character, id string) (Character, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}
