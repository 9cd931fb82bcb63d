// internal/models/scene.go
package models

import "strings"

const (
	// DefaultSceneDuration 未指定时长的场景默认 5 秒
	DefaultSceneDuration = 5.0

	TransitionNone = "none"
)

// Scene 表示时间轴上的一个镜头
type Scene struct {
	ID           string       `json:"id" yaml:"id"`
	Sequence     int          `json:"sequence" yaml:"sequence"` // 从1开始连续
	Text         string       `json:"text" yaml:"text"`
	Duration     float64      `json:"duration" yaml:"duration"` // 秒
	StartTime    float64      `json:"start_time" yaml:"start_time"`
	EndTime      float64      `json:"end_time" yaml:"end_time"`
	ImagePrompt  string       `json:"image_prompt" yaml:"image_prompt"`
	PromptPrefix string       `json:"prompt_prefix,omitempty" yaml:"prompt_prefix,omitempty"` // 生成提示词时加上的角色前缀
	ImageStyle   string       `json:"image_style,omitempty" yaml:"image_style,omitempty"`
	ImageURL     string       `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	CharacterID  string       `json:"character_id,omitempty" yaml:"character_id,omitempty"` // 引用角色表，不拥有角色
	Transition   string       `json:"transition" yaml:"transition"`
	Effects      SceneEffects `json:"effects" yaml:"effects"`
}

// SceneEffects 镜头特效
type SceneEffects struct {
	Zoom          bool   `json:"zoom" yaml:"zoom"`
	Pan           bool   `json:"pan" yaml:"pan"`
	KenBurns      bool   `json:"ken_burns" yaml:"ken_burns"`
	TextAnimation string `json:"text_animation" yaml:"text_animation"`
}

// DefaultEffects 新场景的默认特效
func DefaultEffects() SceneEffects {
	return SceneEffects{TextAnimation: "none"}
}

// SceneEdit 场景的部分更新，nil 字段保持不变
type SceneEdit struct {
	Text        *string       `json:"text,omitempty"`
	Duration    *float64      `json:"duration,omitempty"`
	ImagePrompt *string       `json:"image_prompt,omitempty"`
	ImageStyle  *string       `json:"image_style,omitempty"`
	CharacterID *string       `json:"character_id,omitempty"`
	Transition  *string       `json:"transition,omitempty"`
	Effects     *SceneEffects `json:"effects,omitempty"`
}

// Apply 将编辑应用到场景副本上
func (e SceneEdit) Apply(s Scene) Scene {
	if e.Text != nil {
		s.Text = *e.Text
	}
	if e.Duration != nil {
		s.Duration = *e.Duration
	}
	if e.ImagePrompt != nil {
		s.ImagePrompt = *e.ImagePrompt
	}
	if e.ImageStyle != nil {
		s.ImageStyle = *e.ImageStyle
	}
	if e.CharacterID != nil {
		s.CharacterID = *e.CharacterID
	}
	if e.Transition != nil {
		s.Transition = *e.Transition
	}
	if e.Effects != nil {
		s.Effects = *e.Effects
	}
	return s
}

// RawScene 外部导入的场景记录，兼容旧字段名
type RawScene struct {
	ID          string        `json:"id"`
	Sequence    int           `json:"sequence"`
	Text        string        `json:"text"`
	NarrationKo string        `json:"narration_ko"`
	NarrationEn string        `json:"narration_en"`
	Duration    float64       `json:"duration"`
	DurationSec float64       `json:"durationSec"`
	ImagePrompt string        `json:"imagePrompt"`
	Prompt      string        `json:"prompt"`
	ImageStyle  string        `json:"imageStyle"`
	ImageURL    string        `json:"imageUrl"`
	CharacterID string        `json:"characterId"`
	Transition  string        `json:"transition"`
	Effects     *SceneEffects `json:"effects"`
}

// Normalize 转换为 Scene：
// 时长取 duration，其次 durationSec，都没有时为 5 秒；
// 文本取 text，其次 narration_ko、narration_en；提示词取 imagePrompt，其次 prompt。
// 时间轴字段不在这里计算。
func (r RawScene) Normalize() Scene {
	s := Scene{
		ID:          r.ID,
		Sequence:    r.Sequence,
		Text:        firstNonBlank(r.Text, r.NarrationKo, r.NarrationEn),
		Duration:    r.Duration,
		ImagePrompt: firstNonBlank(r.ImagePrompt, r.Prompt),
		ImageStyle:  r.ImageStyle,
		ImageURL:    r.ImageURL,
		CharacterID: r.CharacterID,
		Transition:  r.Transition,
		Effects:     DefaultEffects(),
	}
	if s.Duration <= 0 {
		s.Duration = r.DurationSec
	}
	if s.Duration <= 0 {
		s.Duration = DefaultSceneDuration
	}
	if s.Transition == "" {
		s.Transition = TransitionNone
	}
	if r.Effects != nil {
		s.Effects = *r.Effects
	}
	return s
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
