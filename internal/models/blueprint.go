// internal/models/blueprint.go
package models

import "strings"

const (
	// DefaultTargetDuration 未给出目标时长时按 60 秒处理
	DefaultTargetDuration = 60
	DefaultTopic          = "general"
)

// ScriptBlueprint 剧本生成与场景拆分的创作参数
type ScriptBlueprint struct {
	Topic                 string `json:"topic" yaml:"topic"`
	Title                 string `json:"title,omitempty" yaml:"title,omitempty"`
	TargetDurationSeconds int    `json:"target_duration_seconds" yaml:"target_duration_seconds"`
	Tone                  string `json:"tone,omitempty" yaml:"tone,omitempty"`
	Audience              string `json:"audience,omitempty" yaml:"audience,omitempty"`
	Style                 string `json:"style,omitempty" yaml:"style,omitempty"`
	Format                string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TargetDuration 返回正数目标时长
func (b ScriptBlueprint) TargetDuration() int {
	if b.TargetDurationSeconds <= 0 {
		return DefaultTargetDuration
	}
	return b.TargetDurationSeconds
}

// TopicOrDefault 空主题返回 general
func (b ScriptBlueprint) TopicOrDefault() string {
	if t := strings.TrimSpace(b.Topic); t != "" {
		return t
	}
	return DefaultTopic
}
