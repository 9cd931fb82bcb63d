// internal/models/project.go
package models

import "time"

// Project 一个短视频工作项目：剧本、场景时间轴和角色表
type Project struct {
	ID         string          `json:"id" yaml:"id"`
	Title      string          `json:"title" yaml:"title"`
	Script     string          `json:"script" yaml:"script"`
	Blueprint  ScriptBlueprint `json:"blueprint" yaml:"blueprint"`
	Scenes     []Scene         `json:"scenes" yaml:"scenes"`
	Characters []Character     `json:"characters" yaml:"characters"`
	// ScriptHash 最近一次角色分析所用剧本的 md5
	ScriptHash string    `json:"script_hash,omitempty" yaml:"script_hash,omitempty"`
	Version    int       `json:"version" yaml:"version"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// TotalDuration 时间轴总时长
func (p *Project) TotalDuration() float64 {
	if len(p.Scenes) == 0 {
		return 0
	}
	return p.Scenes[len(p.Scenes)-1].EndTime
}

// Touch 更新修改时间并递增版本
func (p *Project) Touch() {
	p.Version++
	p.UpdatedAt = time.Now()
}

// ProjectSummary 列表视图
type ProjectSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SceneCount int       `json:"scene_count"`
	Version    int       `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary 生成列表摘要
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:         p.ID,
		Title:      p.Title,
		SceneCount: len(p.Scenes),
		Version:    p.Version,
		UpdatedAt:  p.UpdatedAt,
	}
}
