// internal/services/project_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/script"
	"github.com/Corphon/SceneForge/internal/storage"
	"github.com/Corphon/SceneForge/internal/utils"
)

// 项目变更事件
const (
	EventProjectCreated     = "project.created"
	EventScriptUpdated      = "script.updated"
	EventScenesSynthesized  = "scenes.synthesized"
	EventScenesImported     = "scenes.imported"
	EventSceneAdded         = "scene.added"
	EventSceneUpdated       = "scene.updated"
	EventSceneDeleted       = "scene.deleted"
	EventPromptsImproved    = "prompts.improved"
	EventCharactersAnalyzed = "characters.analyzed"
	EventCharacterAdded     = "character.added"
	EventCharacterUpdated   = "character.updated"
	EventCharacterDeleted   = "character.deleted"
)

// ProjectNotifier 接收项目变更通知
type ProjectNotifier interface {
	NotifyProjectUpdate(event string, project *models.Project)
}

// CreateProjectRequest 创建项目的参数
type CreateProjectRequest struct {
	Title      string                 `json:"title"`
	Script     string                 `json:"script"`
	Blueprint  models.ScriptBlueprint `json:"blueprint"`
	Scenes     []models.RawScene      `json:"scenes"`
	Characters []models.Character     `json:"characters"`
}

// ProjectService 管理项目的剧本、场景和角色。
// 同一项目的修改在项目锁内串行执行，每次修改递增版本号。
type ProjectService struct {
	store          *storage.ProjectStore
	locks          *LockManager
	packer         *script.Packer
	synth          *script.Synthesizer
	characters     *CharacterService
	llm            *LLMService
	notifier       ProjectNotifier
	metrics        *utils.MetricsCollector
	narratorFemale bool
}

// NewProjectService 创建项目服务
func NewProjectService(store *storage.ProjectStore, synth *script.Synthesizer, llmService *LLMService, characters *CharacterService, narratorFemale bool) *ProjectService {
	if synth == nil {
		synth = script.NewSynthesizer(nil)
	}
	return &ProjectService{
		store:          store,
		locks:          NewLockManager(),
		packer:         script.NewPacker(synth),
		synth:          synth,
		characters:     characters,
		llm:            llmService,
		metrics:        utils.GetMetricsCollector(),
		narratorFemale: narratorFemale,
	}
}

// SetNotifier 设置变更通知接收者
func (s *ProjectService) SetNotifier(n ProjectNotifier) {
	s.notifier = n
}

func (s *ProjectService) notify(event string, project *models.Project) {
	if s.notifier != nil {
		s.notifier.NotifyProjectUpdate(event, project)
	}
}

// mutate 在项目锁内读取、修改并保存项目
func (s *ProjectService) mutate(id, event string, fn func(p *models.Project) error) (*models.Project, error) {
	var updated *models.Project
	err := s.locks.ExecuteWithLock(id, func() error {
		project, err := s.store.Load(id)
		if err != nil {
			return err
		}
		if err := fn(project); err != nil {
			return err
		}
		project.Touch()
		if err := s.store.Save(project); err != nil {
			return err
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.GetLogger().Debug("项目已更新", map[string]interface{}{
		"project_id": id,
		"event":      event,
		"version":    updated.Version,
	})
	s.notify(event, updated)
	return updated, nil
}

// CreateProject 创建项目，导入的场景会被规范化并重新计时
func (s *ProjectService) CreateProject(req CreateProjectRequest) (*models.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(req.Blueprint.Title)
	}
	if title == "" {
		title = req.Blueprint.TopicOrDefault()
	}

	characters := make([]models.Character, 0, len(req.Characters))
	for _, c := range req.Characters {
		if c.ID == "" {
			c.ID = NewCharacterID()
		}
		characters = append(characters, c)
	}

	now := time.Now()
	project := &models.Project{
		ID:         "proj_" + uuid.NewString(),
		Title:      title,
		Script:     req.Script,
		Blueprint:  req.Blueprint,
		Scenes:     script.Ingest(req.Scenes),
		Characters: models.EnsureNarrator(characters, s.narratorFemale),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Save(project); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("项目已创建", map[string]interface{}{
		"project_id": project.ID,
		"scenes":     len(project.Scenes),
	})
	s.notify(EventProjectCreated, project)
	return project, nil
}

// GetProject 读取项目
func (s *ProjectService) GetProject(id string) (*models.Project, error) {
	var project *models.Project
	err := s.locks.ExecuteWithReadLock(id, func() error {
		p, err := s.store.Load(id)
		project = p
		return err
	})
	return project, err
}

// ListProjects 项目列表
func (s *ProjectService) ListProjects() ([]models.ProjectSummary, error) {
	return s.store.List()
}

// DeleteProject 删除项目
func (s *ProjectService) DeleteProject(id string) error {
	return s.locks.ExecuteWithLock(id, func() error {
		return s.store.Delete(id)
	})
}

// UpdateScript 替换剧本，blueprint 不为 nil 时一并更新
func (s *ProjectService) UpdateScript(id, text string, blueprint *models.ScriptBlueprint) (*models.Project, error) {
	return s.mutate(id, EventScriptUpdated, func(p *models.Project) error {
		p.Script = text
		if blueprint != nil {
			p.Blueprint = *blueprint
		}
		return nil
	})
}

// GenerateScript 按项目的创作参数生成剧本并保存
func (s *ProjectService) GenerateScript(ctx context.Context, id, request string) (*models.Project, error) {
	project, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.GenerateScript(ctx, project.Blueprint, request)
	if err != nil {
		return nil, err
	}
	return s.UpdateScript(id, text, nil)
}

// SynthesizeScenes 从剧本重新生成全部场景，剧本为空时返回 ErrMissingScript
func (s *ProjectService) SynthesizeScenes(id string) (*models.Project, error) {
	return s.mutate(id, EventScenesSynthesized, func(p *models.Project) error {
		scenes, err := s.packer.FromScript(p.Script, p.Blueprint, p.Characters)
		if err != nil {
			return err
		}
		p.Scenes = scenes
		s.metrics.RecordScenesPacked(len(scenes))
		return nil
	})
}

// ImportScenes 用外部场景记录替换时间轴
func (s *ProjectService) ImportScenes(id string, raw []models.RawScene) (*models.Project, error) {
	return s.mutate(id, EventScenesImported, func(p *models.Project) error {
		p.Scenes = script.Ingest(raw)
		return nil
	})
}

// AddScene 在末尾追加场景，未提供提示词时按模板生成
func (s *ProjectService) AddScene(id string, scene models.Scene) (*models.Project, error) {
	return s.mutate(id, EventSceneAdded, func(p *models.Project) error {
		if strings.TrimSpace(scene.ImagePrompt) == "" {
			scene.ImagePrompt = s.synth.Synthesize(p.Blueprint.TopicOrDefault(), len(p.Scenes)+1, p.Characters)
			scene.PromptPrefix = script.CharacterPrefix(p.Characters)
		}
		scene.ID = ""
		p.Scenes = script.Append(p.Scenes, scene)
		return nil
	})
}

// UpdateScene 编辑场景并重新计时
func (s *ProjectService) UpdateScene(id, sceneID string, edit models.SceneEdit) (*models.Project, error) {
	return s.mutate(id, EventSceneUpdated, func(p *models.Project) error {
		scenes, found := script.Update(p.Scenes, sceneID, edit)
		if !found {
			return apperrors.NewNotFoundError("场景不存在: "+sceneID, nil)
		}
		p.Scenes = scenes
		return nil
	})
}

// DeleteScene 删除场景，重排序号并重新计时
func (s *ProjectService) DeleteScene(id, sceneID string) (*models.Project, error) {
	return s.mutate(id, EventSceneDeleted, func(p *models.Project) error {
		scenes, found := script.Delete(p.Scenes, sceneID)
		if !found {
			return apperrors.NewNotFoundError("场景不存在: "+sceneID, nil)
		}
		p.Scenes = scenes
		return nil
	})
}

// ImprovePrompts 批量优化全部场景的提示词
func (s *ProjectService) ImprovePrompts(id string) (*models.Project, error) {
	return s.mutate(id, EventPromptsImproved, func(p *models.Project) error {
		p.Scenes = script.ImproveAll(p.Scenes, p.Characters)
		return nil
	})
}

// AnalyzeCharacters 分析剧本中的角色并替换角色表。
// 剧本未变化且已有分析结果时跳过，force 为 true 时强制重新分析。
func (s *ProjectService) AnalyzeCharacters(ctx context.Context, id string, force bool) (*models.Project, error) {
	project, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(project.Script) == "" {
		return nil, apperrors.ErrMissingScript
	}
	if !force && project.ScriptHash == ScriptHash(project.Script) {
		return project, nil
	}

	// 模型调用不持有项目锁
	analysis, err := s.characters.Analyze(ctx, project.Script)
	if err != nil {
		return nil, err
	}

	return s.mutate(id, EventCharactersAnalyzed, func(p *models.Project) error {
		if ScriptHash(p.Script) != analysis.ScriptHash {
			return apperrors.NewConflictError("分析期间剧本已被修改，请重新分析", nil)
		}
		p.Characters = analysis.Characters
		p.ScriptHash = analysis.ScriptHash
		p.Scenes = clearMissingCharacterRefs(p.Scenes, p.Characters)
		return nil
	})
}

// AddCharacter 手动添加角色
func (s *ProjectService) AddCharacter(id string, c models.Character) (*models.Project, error) {
	return s.mutate(id, EventCharacterAdded, func(p *models.Project) error {
		c.ID = NewCharacterID()
		characters, err := models.AddCharacter(p.Characters, c)
		if err != nil {
			return err
		}
		p.Characters = characters
		return nil
	})
}

// UpdateCharacter 编辑角色，旁白也可以编辑
func (s *ProjectService) UpdateCharacter(id string, c models.Character) (*models.Project, error) {
	return s.mutate(id, EventCharacterUpdated, func(p *models.Project) error {
		if strings.TrimSpace(c.Name) == "" {
			return models.ErrCharacterNameEmpty
		}
		characters, err := models.UpdateCharacter(p.Characters, c)
		if err != nil {
			return err
		}
		p.Characters = models.EnsureNarrator(characters, s.narratorFemale)
		return nil
	})
}

// DeleteCharacter 删除角色并清除场景中的引用，旁白不可删除
func (s *ProjectService) DeleteCharacter(id, characterID string) (*models.Project, error) {
	return s.mutate(id, EventCharacterDeleted, func(p *models.Project) error {
		characters, err := models.RemoveCharacter(p.Characters, characterID)
		if err != nil {
			return err
		}
		p.Characters = characters
		p.Scenes = clearMissingCharacterRefs(p.Scenes, characters)
		return nil
	})
}

// clearMissingCharacterRefs 清除指向已不存在角色的场景引用
func clearMissingCharacterRefs(scenes []models.Scene, roster []models.Character) []models.Scene {
	out := make([]models.Scene, len(scenes))
	for i, scene := range scenes {
		if scene.CharacterID != "" {
			if _, ok := models.FindCharacter(roster, scene.CharacterID); !ok {
				scene.CharacterID = ""
			}
		}
		out[i] = scene
	}
	return out
}
