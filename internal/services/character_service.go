// internal/services/character_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/utils"
)

// MaxAnalysisRunes 角色分析时发送给模型的剧本长度上限
const MaxAnalysisRunes = 3000

const castingDirectorPrompt = `You are a casting director. Analyze the script below and identify the PHYSICAL CHARACTERS who appear effectively in the scenes.

Rules:
1. Extract ONLY characters who are visually present or significantly mentioned.
2. IGNORE the narrator unless they are a specific visible character (e.g., "News Anchor", "Presenter").
3. If there are NO physical characters (e.g., documentary style, scenery only), return an empty list.
4. For each character, provide:
   - name: Character name (in the script's language)
   - role: Role in the story (in the script's language)
   - description: detailed visual description for image generation (English).
     Include age, gender, clothing, appearance, and specific features.

Output JSON format:
{
    "characters": [
        { "name": "...", "role": "...", "description": "..." }
    ]
}`

// CharacterAnalysis 角色分析结果
type CharacterAnalysis struct {
	ScriptHash string             `json:"script_hash"`
	Characters []models.Character `json:"characters"`
}

type characterAnalysisResponse struct {
	Characters []struct {
		Name        string `json:"name"`
		Role        string `json:"role"`
		Description string `json:"description"`
	} `json:"characters"`
}

// CharacterService 从剧本中提取角色
type CharacterService struct {
	llm            *LLMService
	narratorFemale bool
}

// NewCharacterService 创建角色服务
func NewCharacterService(llmService *LLMService, narratorFemale bool) *CharacterService {
	return &CharacterService{llm: llmService, narratorFemale: narratorFemale}
}

// ScriptHash 剧本内容的 md5
func ScriptHash(script string) string {
	sum := md5.Sum([]byte(script))
	return hex.EncodeToString(sum[:])
}

// Analyze 调用模型分析剧本中的角色，结果总是包含恰好一个旁白
func (s *CharacterService) Analyze(ctx context.Context, script string) (*CharacterAnalysis, error) {
	hash := ScriptHash(script)

	var resp characterAnalysisResponse
	prompt := "Script:\n" + truncateRunes(script, MaxAnalysisRunes)
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, castingDirectorPrompt, &resp); err != nil {
		return nil, err
	}

	characters := make([]models.Character, 0, len(resp.Characters)+1)
	for _, c := range resp.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		characters = append(characters, models.Character{
			ID:          NewCharacterID(),
			Name:        name,
			Role:        strings.TrimSpace(c.Role),
			Description: strings.TrimSpace(c.Description),
		})
	}

	if len(characters) == 0 {
		utils.GetLogger().Info("未识别到角色，使用默认旁白", map[string]interface{}{"script_hash": hash})
	}

	characters = models.EnsureNarrator(characters, s.narratorFemale)
	utils.GetLogger().Info("角色分析完成", map[string]interface{}{
		"count":       len(characters),
		"script_hash": hash,
	})

	return &CharacterAnalysis{ScriptHash: hash, Characters: characters}, nil
}

// NewCharacterID 生成角色ID
func NewCharacterID() string {
	return "char_" + uuid.NewString()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
