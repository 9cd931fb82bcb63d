// internal/api/router.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneForge/internal/utils"
)

// 调用模型的接口每个IP每分钟的请求上限
const llmRateLimit = 30

// SetupRouter 配置HTTP路由
func SetupRouter(handler *Handler, debugMode bool) *gin.Engine {
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(metricsMiddleware(utils.GetMetricsCollector()))
	r.Use(corsMiddleware())
	if debugMode {
		r.Use(gin.Logger())
	}

	llmLimit := NewRateLimiter(llmRateLimit, time.Minute).Middleware()

	// WebSocket 支持
	r.GET("/ws/projects/:id", handler.ProjectWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)
		api.GET("/llm/status", handler.GetLLMStatus)
		api.GET("/ws/status", handler.GetWebSocketStatus)

		// 直接调用模型
		api.POST("/generate", llmLimit, handler.Generate)
		api.POST("/script", llmLimit, handler.GenerateScript)

		// ===============================
		// 项目相关路由
		// ===============================
		projects := api.Group("/projects")
		{
			projects.GET("", handler.ListProjects)
			projects.POST("", handler.CreateProject)
			projects.GET("/:id", handler.GetProject)
			projects.DELETE("/:id", handler.DeleteProject)

			projects.PUT("/:id/script", handler.UpdateScript)
			projects.POST("/:id/script/generate", llmLimit, handler.GenerateProjectScript)

			scenes := projects.Group("/:id/scenes")
			{
				scenes.POST("", handler.AddScene)
				scenes.POST("/synthesize", handler.SynthesizeScenes)
				scenes.POST("/import", handler.ImportScenes)
				scenes.POST("/improve-prompts", handler.ImprovePrompts)
				scenes.PUT("/:sceneId", handler.UpdateScene)
				scenes.DELETE("/:sceneId", handler.DeleteScene)
			}

			characters := projects.Group("/:id/characters")
			{
				characters.POST("", handler.AddCharacter)
				characters.POST("/analyze", llmLimit, handler.AnalyzeCharacters)
				characters.PUT("/:charId", handler.UpdateCharacter)
				characters.DELETE("/:charId", handler.DeleteCharacter)
			}

			projects.GET("/:id/export", handler.ExportProject)
			projects.POST("/:id/validate", handler.ValidateProject)
		}
	}

	return r
}
