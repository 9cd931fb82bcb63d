package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Corphon/SceneForge/internal/config"
	"github.com/Corphon/SceneForge/internal/di"
	"github.com/Corphon/SceneForge/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	utils.GetLogger().SetOutput(io.Discard)
	return &config.Config{
		Port:           "0",
		DataDir:        t.TempDir(),
		LogLevel:       "error",
		LLMProvider:    config.ProviderOpenAI,
		OpenAIKeys:     []string{"sk-test"},
		OpenAIModel:    "gpt-4o-mini",
		GeminiModel:    "gemini-1.5-flash",
		NarratorFemale: true,
	}
}

func TestInitServices(t *testing.T) {
	container := di.NewContainer()
	application, err := InitServices(testConfig(t), container)
	if err != nil {
		t.Fatalf("InitServices: %v", err)
	}
	defer application.Hub.Close()

	if missing := container.Missing(di.ServiceEngine, di.ServiceLLM, di.ServiceProjects, di.ServiceExport, di.ServiceHub); len(missing) > 0 {
		t.Errorf("未注册的服务: %v", missing)
	}

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/llm/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"provider":"openai"`) || !strings.Contains(body, `"ready":true`) {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, "sk-test") {
		t.Error("状态接口泄露了密钥")
	}
}

func TestInitServicesWithTemplateFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "templates.yaml")
	data := `templates:
  - keyword: coffee
    base: cozy coffee shop interior
    variants:
      - latte art close-up
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("写入模板失败: %v", err)
	}
	cfg.PromptTemplatesFile = path

	application, err := InitServices(cfg, di.NewContainer())
	if err != nil {
		t.Fatalf("InitServices: %v", err)
	}
	defer application.Hub.Close()

	cfg.PromptTemplatesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := InitServices(cfg, di.NewContainer()); err == nil {
		t.Error("模板文件不存在时应返回错误")
	}
}
