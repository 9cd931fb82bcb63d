// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/SceneForge/internal/app"
	"github.com/Corphon/SceneForge/internal/config"
	"github.com/Corphon/SceneForge/internal/di"
	"github.com/Corphon/SceneForge/internal/utils"
)

func main() {
	log.Println("启动 SceneForge 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("配置加载完成，端口: %s，提供者: %s", cfg.Port, cfg.LLMProvider)

	// 2. 初始化所有服务（按依赖顺序）
	container := di.GetContainer()
	application, err := app.InitServices(cfg, container)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	defer utils.GetLogger().Close()

	// 3. 健康检查
	if missing := container.Missing(di.ServiceEngine, di.ServiceLLM, di.ServiceProjects, di.ServiceExport, di.ServiceHub); len(missing) > 0 {
		log.Fatalf("关键服务未注册: %v", missing)
	}
	log.Printf("服务初始化完成: %v", container.GetNames())

	// 4. 启动服务器，收到中断信号后优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("访问地址: http://localhost:%s/api/health", cfg.Port)
	if err := application.Run(ctx); err != nil {
		log.Fatalf("服务器异常退出: %v", err)
	}
	log.Println("服务器优雅关闭完成")
}
