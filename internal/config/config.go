// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Corphon/SceneForge/internal/llm"
	"github.com/Corphon/SceneForge/internal/utils"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	// openAIKeyPrefix OpenAI 密钥的格式前缀，不匹配的密钥在加载时丢弃
	openAIKeyPrefix = "sk-"
)

// Config 存储应用配置。进程启动时加载一次，之后只读。
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool
	LogLevel  string

	// LLM相关配置
	LLMProvider   string
	OpenAIKeys    []string
	GeminiKeys    []string
	OpenAIModel   string
	GeminiModel   string
	OpenAIBaseURL string
	GeminiBaseURL string

	// 场景合成
	PromptTemplatesFile string
	NarratorFemale      bool
}

// Load 从环境变量加载配置，.env 文件可选
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		DebugMode: getEnvBool("DEBUG_MODE", false),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIKeys:    llm.ParseCredentials(getEnvList("OPENAI_API_KEYS", "OPENAI_API_KEY"), openAIKeyPrefix),
		GeminiKeys:    llm.ParseCredentials(getEnvList("GEMINI_API_KEYS", "GEMINI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),

		PromptTemplatesFile: getEnv("PROMPT_TEMPLATES_FILE", ""),
		NarratorFemale:      !strings.EqualFold(getEnv("NARRATOR_GENDER", "female"), "male"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 只记录警告，不返回错误
	if len(config.Credentials(config.LLMProvider)) == 0 {
		utils.GetLogger().Warn("未配置API密钥，文本生成功能不可用", map[string]interface{}{
			"provider": config.LLMProvider,
		})
	}

	return config, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("不支持的LLM提供者: %s", c.LLMProvider)
	}
	if c.Port == "" {
		return fmt.Errorf("端口不能为空")
	}
	return nil
}

// Credentials 返回提供者的密钥副本
func (c *Config) Credentials(provider string) []string {
	var keys []string
	switch provider {
	case ProviderOpenAI:
		keys = c.OpenAIKeys
	case ProviderGemini:
		keys = c.GeminiKeys
	}
	return append([]string(nil), keys...)
}

// ProviderSettings 构造调用引擎使用的提供者配置
func (c *Config) ProviderSettings() []llm.ProviderSettings {
	return []llm.ProviderSettings{
		{
			Name:         ProviderOpenAI,
			DefaultModel: c.OpenAIModel,
			BaseURL:      c.OpenAIBaseURL,
			Pool:         llm.NewCredentialPool(ProviderOpenAI, c.OpenAIKeys),
		},
		{
			Name:         ProviderGemini,
			DefaultModel: c.GeminiModel,
			BaseURL:      c.GeminiBaseURL,
			Pool:         llm.NewCredentialPool(ProviderGemini, c.GeminiKeys),
		},
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvList 按顺序返回第一个非空的环境变量
func getEnvList(keys ...string) string {
	for _, key := range keys {
		if value := getEnv(key, ""); value != "" {
			return value
		}
	}
	return ""
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}
