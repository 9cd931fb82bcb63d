// internal/api/handlers.go
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/services"
	"github.com/Corphon/SceneForge/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	Projects *services.ProjectService // 项目服务
	Export   *services.ExportService  // 导出服务
	LLM      *services.LLMService     // 文本生成服务
	Hub      *WebSocketManager        // 项目变更推送
	Response *ResponseHelper          // 响应助手
	metrics  *utils.MetricsCollector
}

// NewHandler 创建API处理器，并把 WebSocket 管理器注册为项目变更的接收者
func NewHandler(projects *services.ProjectService, export *services.ExportService, llmService *services.LLMService, hub *WebSocketManager) *Handler {
	if hub != nil {
		projects.SetNotifier(hub)
	}
	return &Handler{
		Projects: projects,
		Export:   export,
		LLM:      llmService,
		Hub:      hub,
		Response: NewResponseHelper(),
		metrics:  utils.GetMetricsCollector(),
	}
}

// GenerateRequest 自由文本生成请求
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

// ScriptRequest 剧本生成请求
type ScriptRequest struct {
	Blueprint models.ScriptBlueprint `json:"blueprint"`
	Request   string                 `json:"request"`
}

// UpdateScriptRequest 替换项目剧本
type UpdateScriptRequest struct {
	Script    *string                 `json:"script" binding:"required"`
	Blueprint *models.ScriptBlueprint `json:"blueprint"`
}

// ImportScenesRequest 导入外部场景
type ImportScenesRequest struct {
	Scenes []models.RawScene `json:"scenes" binding:"required"`
}

// ========================================
// 文本生成
// ========================================

// Generate 自由文本生成
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	text, err := h.LLM.Generate(c.Request.Context(), req.Prompt, req.Model)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"text": text})
}

// GenerateScript 按创作参数生成剧本，不保存
func (h *Handler) GenerateScript(c *gin.Context) {
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	script, err := h.LLM.GenerateScript(c.Request.Context(), req.Blueprint, req.Request)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"script": script}, "剧本生成成功")
}

// ========================================
// 项目
// ========================================

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.CreateProject(req)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, project, "项目创建成功")
}

// ListProjects 项目列表
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.Projects.ListProjects()
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, projects)
}

// GetProject 项目详情
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.Projects.GetProject(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.Projects.DeleteProject(c.Param("id")); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, nil, "项目已删除")
}

// UpdateScript 替换剧本
func (h *Handler) UpdateScript(c *gin.Context) {
	var req UpdateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.UpdateScript(c.Param("id"), *req.Script, req.Blueprint)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "剧本已更新")
}

// GenerateProjectScript 生成并保存项目剧本
func (h *Handler) GenerateProjectScript(c *gin.Context) {
	var req struct {
		Request string `json:"request"`
	}
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Response.BadRequest(c, "请求参数错误", err.Error())
			return
		}
	}

	project, err := h.Projects.GenerateScript(c.Request.Context(), c.Param("id"), req.Request)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "剧本生成成功")
}

// ========================================
// 场景
// ========================================

// SynthesizeScenes 从剧本生成场景
func (h *Handler) SynthesizeScenes(c *gin.Context) {
	start := time.Now()
	project, err := h.Projects.SynthesizeScenes(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.metrics.RecordHistogram("pipeline.synthesis_ms", time.Since(start).Milliseconds())
	h.Response.Success(c, project, "场景生成成功")
}

// ImportScenes 导入外部场景记录
func (h *Handler) ImportScenes(c *gin.Context) {
	var req ImportScenesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.ImportScenes(c.Param("id"), req.Scenes)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "场景导入成功")
}

// AddScene 追加场景
func (h *Handler) AddScene(c *gin.Context) {
	var scene models.Scene
	if err := c.ShouldBindJSON(&scene); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.AddScene(c.Param("id"), scene)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, project, "场景已添加")
}

// UpdateScene 编辑场景
func (h *Handler) UpdateScene(c *gin.Context) {
	var edit models.SceneEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.UpdateScene(c.Param("id"), c.Param("sceneId"), edit)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "场景已更新")
}

// DeleteScene 删除场景
func (h *Handler) DeleteScene(c *gin.Context) {
	project, err := h.Projects.DeleteScene(c.Param("id"), c.Param("sceneId"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "场景已删除")
}

// ImprovePrompts 批量优化提示词
func (h *Handler) ImprovePrompts(c *gin.Context) {
	project, err := h.Projects.ImprovePrompts(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "提示词已优化")
}

// ========================================
// 角色
// ========================================

// AnalyzeCharacters 分析剧本角色，?force=true 时忽略缓存
func (h *Handler) AnalyzeCharacters(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	project, err := h.Projects.AnalyzeCharacters(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "角色分析完成")
}

// AddCharacter 添加角色
func (h *Handler) AddCharacter(c *gin.Context) {
	var character models.Character
	if err := c.ShouldBindJSON(&character); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}

	project, err := h.Projects.AddCharacter(c.Param("id"), character)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, project, "角色已添加")
}

// UpdateCharacter 编辑角色
func (h *Handler) UpdateCharacter(c *gin.Context) {
	var character models.Character
	if err := c.ShouldBindJSON(&character); err != nil {
		h.Response.BadRequest(c, "请求参数错误", err.Error())
		return
	}
	character.ID = c.Param("charId")

	project, err := h.Projects.UpdateCharacter(c.Param("id"), character)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "角色已更新")
}

// DeleteCharacter 删除角色
func (h *Handler) DeleteCharacter(c *gin.Context) {
	project, err := h.Projects.DeleteCharacter(c.Param("id"), c.Param("charId"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, project, "角色已删除")
}

// ========================================
// 导出
// ========================================

// ExportProject 下载项目文档，format=json|yaml
func (h *Handler) ExportProject(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", services.ExportFormatJSON))

	project, err := h.Projects.GetProject(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	data, contentType, err := h.Export.Export(project, format)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	ext := "json"
	if format != services.ExportFormatJSON {
		ext = "yaml"
	}
	h.metrics.IncrementCounter("export." + ext)
	h.Response.DownloadResponse(c, data, project.ID+"."+ext, contentType)
}

// ValidateProject 检查项目是否可以导出
func (h *Handler) ValidateProject(c *gin.Context) {
	project, err := h.Projects.GetProject(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, h.Export.Validate(project))
}

// ========================================
// 状态
// ========================================

// GetLLMStatus 当前文本生成服务状态，不包含密钥
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.Response.Success(c, h.LLM.GetProviderStatus())
}

// GetMetrics 运行指标
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.metrics.GetMetrics())
}

// GetWebSocketStatus WebSocket 连接状态
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.Hub.GetStatus())
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	status := h.LLM.GetProviderStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"provider":  status.Provider,
		"llm_ready": status.Ready,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
