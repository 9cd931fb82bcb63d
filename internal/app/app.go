// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Corphon/SceneForge/internal/api"
	"github.com/Corphon/SceneForge/internal/config"
	"github.com/Corphon/SceneForge/internal/di"
	"github.com/Corphon/SceneForge/internal/llm"
	_ "github.com/Corphon/SceneForge/internal/llm/providers/gemini"
	_ "github.com/Corphon/SceneForge/internal/llm/providers/openai"
	"github.com/Corphon/SceneForge/internal/script"
	"github.com/Corphon/SceneForge/internal/services"
	"github.com/Corphon/SceneForge/internal/storage"
	"github.com/Corphon/SceneForge/internal/utils"
)

const shutdownTimeout = 30 * time.Second

// App 组装好的应用
type App struct {
	Config   *config.Config
	Engine   *llm.Engine
	LLM      *services.LLMService
	Projects *services.ProjectService
	Export   *services.ExportService
	Hub      *api.WebSocketManager
	Router   *gin.Engine
}

// InitServices 按依赖顺序创建所有服务并注册到容器
func InitServices(cfg *config.Config, container *di.Container) (*App, error) {
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	if cfg.LogDir != "" {
		logFile := filepath.Join(cfg.LogDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
		if err := utils.InitLogger(logFile); err != nil {
			logger.Warn("无法写入日志文件，仅输出到控制台", map[string]interface{}{"error": err.Error()})
		}
	}

	// 1. 提示词模板
	templates := script.DefaultTemplates()
	if cfg.PromptTemplatesFile != "" {
		loaded, err := script.LoadTemplates(cfg.PromptTemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("加载提示词模板失败: %w", err)
		}
		templates = loaded
		logger.Info("已加载自定义提示词模板", map[string]interface{}{
			"file":      cfg.PromptTemplatesFile,
			"templates": len(loaded.Entries()),
		})
	}
	synth := script.NewSynthesizer(templates)

	// 2. 调用引擎
	engine := llm.NewEngine(nil, cfg.LLMProvider, cfg.ProviderSettings()...)

	// 3. 存储
	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	store := storage.NewProjectStore(fileStorage)

	// 4. 服务
	llmService := services.NewLLMService(engine)
	characterService := services.NewCharacterService(llmService, cfg.NarratorFemale)
	projectService := services.NewProjectService(store, synth, llmService, characterService, cfg.NarratorFemale)
	exportService := services.NewExportService()
	hub := api.NewWebSocketManager()

	handler := api.NewHandler(projectService, exportService, llmService, hub)
	router := api.SetupRouter(handler, cfg.DebugMode)

	container.Register(di.ServiceEngine, engine)
	container.Register(di.ServiceLLM, llmService)
	container.Register(di.ServiceProjects, projectService)
	container.Register(di.ServiceExport, exportService)
	container.Register(di.ServiceHub, hub)

	logger.Info("服务初始化完成", map[string]interface{}{
		"provider":    cfg.LLMProvider,
		"credentials": len(cfg.Credentials(cfg.LLMProvider)),
		"data_dir":    cfg.DataDir,
	})

	return &App{
		Config:   cfg,
		Engine:   engine,
		LLM:      llmService,
		Projects: projectService,
		Export:   exportService,
		Hub:      hub,
		Router:   router,
	}, nil
}

// Run 启动HTTP服务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.GetLogger().Info("服务器启动", map[string]interface{}{"port": a.Config.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.GetLogger().Info("正在关闭服务器", nil)
		a.Hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("服务器关闭失败: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		utils.GetLogger().Info("服务器已关闭", nil)
	}
	return err
}
