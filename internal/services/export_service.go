// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/script"
)

const (
	ExportFormatJSON = "json"
	ExportFormatYAML = "yaml"

	exportSchemaVersion = "1.0"
	defaultVoice        = "ko-KR-Standard-A"
)

// ExportDocument 交给下游图像/语音/视频生成的完整项目文档
type ExportDocument struct {
	Project    ExportProjectHeader `json:"project" yaml:"project"`
	Script     ExportScript        `json:"script" yaml:"script"`
	Scenes     []ExportScene       `json:"scenes" yaml:"scenes"`
	Characters []models.Character  `json:"characters" yaml:"characters"`
	Summary    ExportSummary       `json:"summary" yaml:"summary"`
}

// ExportProjectHeader 项目信息
type ExportProjectHeader struct {
	ID      string    `json:"id" yaml:"id"`
	Title   string    `json:"title" yaml:"title"`
	Created time.Time `json:"created" yaml:"created"`
	Version string    `json:"version" yaml:"version"`
	// Revision 项目的修改版本号
	Revision int `json:"revision" yaml:"revision"`
}

// ExportScript 剧本原文和创作参数
type ExportScript struct {
	Original string                 `json:"original" yaml:"original"`
	Metadata models.ScriptBlueprint `json:"metadata" yaml:"metadata"`
}

// ExportScene 单个场景
type ExportScene struct {
	ID          string       `json:"id" yaml:"id"`
	Sequence    int          `json:"sequence" yaml:"sequence"`
	Text        string       `json:"text" yaml:"text"`
	Duration    float64      `json:"duration" yaml:"duration"`
	Timing      ExportTiming `json:"timing" yaml:"timing"`
	ImagePrompt string       `json:"image_prompt" yaml:"image_prompt"`
	CharacterID string       `json:"character_id,omitempty" yaml:"character_id,omitempty"`
	Visual      ExportVisual `json:"visual" yaml:"visual"`
	Audio       ExportAudio  `json:"audio" yaml:"audio"`
}

type ExportTiming struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

type ExportVisual struct {
	Prompt     string              `json:"prompt" yaml:"prompt"`
	Style      string              `json:"style,omitempty" yaml:"style,omitempty"`
	ImageURL   string              `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Transition string              `json:"transition" yaml:"transition"`
	Effects    models.SceneEffects `json:"effects" yaml:"effects"`
}

type ExportAudio struct {
	Voice string `json:"voice" yaml:"voice"`
}

// ExportSummary 时间轴汇总
type ExportSummary struct {
	SceneCount    int     `json:"scene_count" yaml:"scene_count"`
	TotalDuration float64 `json:"total_duration" yaml:"total_duration"`
}

// ValidationResult 导出前的校验结果
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	SceneCount    int      `json:"scene_count"`
	TotalDuration float64  `json:"total_duration"`
}

// ExportService 生成项目导出文档
type ExportService struct {
	voice string
}

// NewExportService 创建导出服务
func NewExportService() *ExportService {
	return &ExportService{voice: defaultVoice}
}

// BuildDocument 构造导出文档
func (s *ExportService) BuildDocument(project *models.Project) *ExportDocument {
	title := project.Title
	if title == "" {
		title = project.Blueprint.Title
	}
	if title == "" {
		title = project.Blueprint.Topic
	}
	if title == "" {
		title = "Untitled Project"
	}

	scenes := make([]ExportScene, 0, len(project.Scenes))
	for _, sc := range project.Scenes {
		scenes = append(scenes, ExportScene{
			ID:          sc.ID,
			Sequence:    sc.Sequence,
			Text:        sc.Text,
			Duration:    sc.Duration,
			Timing:      ExportTiming{Start: sc.StartTime, End: sc.EndTime},
			ImagePrompt: sc.ImagePrompt,
			CharacterID: sc.CharacterID,
			Visual: ExportVisual{
				Prompt:     sc.ImagePrompt,
				Style:      sc.ImageStyle,
				ImageURL:   sc.ImageURL,
				Transition: sc.Transition,
				Effects:    sc.Effects,
			},
			Audio: ExportAudio{Voice: s.voice},
		})
	}

	return &ExportDocument{
		Project: ExportProjectHeader{
			ID:       project.ID,
			Title:    title,
			Created:  project.CreatedAt,
			Version:  exportSchemaVersion,
			Revision: project.Version,
		},
		Script: ExportScript{
			Original: project.Script,
			Metadata: project.Blueprint,
		},
		Scenes:     scenes,
		Characters: project.Characters,
		Summary: ExportSummary{
			SceneCount:    len(scenes),
			TotalDuration: script.TotalDuration(project.Scenes),
		},
	}
}

// Export 按格式序列化导出文档，返回内容和 Content-Type
func (s *ExportService) Export(project *models.Project, format string) ([]byte, string, error) {
	doc := s.BuildDocument(project)

	switch strings.ToLower(format) {
	case "", ExportFormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", apperrors.NewProcessingError("序列化JSON失败", err)
		}
		return data, "application/json; charset=utf-8", nil
	case ExportFormatYAML, "yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, "", apperrors.NewProcessingError("序列化YAML失败", err)
		}
		return data, "application/x-yaml; charset=utf-8", nil
	default:
		return nil, "", apperrors.NewValidationError(fmt.Sprintf("不支持的导出格式: %s", format), nil)
	}
}

// Validate 检查项目是否可以导出：至少一个场景，且每个场景都有文本
func (s *ExportService) Validate(project *models.Project) ValidationResult {
	result := ValidationResult{
		Errors:        []string{},
		SceneCount:    len(project.Scenes),
		TotalDuration: script.TotalDuration(project.Scenes),
	}

	if len(project.Scenes) == 0 {
		result.Errors = append(result.Errors, "没有场景")
	}
	for _, sc := range project.Scenes {
		if strings.TrimSpace(sc.Text) == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("场景 %d 的文本为空", sc.Sequence))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
