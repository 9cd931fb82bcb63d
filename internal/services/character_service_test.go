package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Corphon/SceneForge/internal/models"
)

func TestAnalyzeCharacters(t *testing.T) {
	inv := newFakeInvoker(`{"characters": [
		{"name": "민수", "role": "주인공", "description": "young Korean man, 20s, hoodie"},
		{"name": "  ", "role": "x", "description": "ignored"}
	]}`)
	svc := NewCharacterService(NewLLMService(inv), true)

	script := "민수는 다이소에 간다."
	analysis, err := svc.Analyze(context.Background(), script)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.ScriptHash != ScriptHash(script) {
		t.Errorf("hash = %q", analysis.ScriptHash)
	}
	if len(analysis.Characters) != 2 {
		t.Fatalf("角色数 = %d, want 2", len(analysis.Characters))
	}
	if !models.IsNarrator(analysis.Characters[0]) {
		t.Errorf("第一个角色应为旁白: %+v", analysis.Characters[0])
	}
	if !strings.Contains(analysis.Characters[0].Description, "female") {
		t.Errorf("旁白应为女声: %q", analysis.Characters[0].Description)
	}
	minsu := analysis.Characters[1]
	if minsu.Name != "민수" || !strings.HasPrefix(minsu.ID, "char_") {
		t.Errorf("角色 = %+v", minsu)
	}
}

func TestAnalyzeNoCharactersKeepsNarrator(t *testing.T) {
	svc := NewCharacterService(NewLLMService(newFakeInvoker(`{"characters": []}`)), false)
	analysis, err := svc.Analyze(context.Background(), "풍경만 나오는 영상.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(analysis.Characters) != 1 || !models.IsNarrator(analysis.Characters[0]) {
		t.Fatalf("应只有旁白: %+v", analysis.Characters)
	}
	if strings.Contains(analysis.Characters[0].Description, "female") {
		t.Errorf("应为男声旁白: %q", analysis.Characters[0].Description)
	}
}

func TestAnalyzeTruncatesScript(t *testing.T) {
	inv := newFakeInvoker(`{"characters": []}`)
	svc := NewCharacterService(NewLLMService(inv), true)

	long := strings.Repeat("가", MaxAnalysisRunes+500)
	if _, err := svc.Analyze(context.Background(), long); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	prompt := inv.lastRequest().Prompt
	if n := utf8.RuneCountInString(strings.TrimPrefix(prompt, "Script:\n")); n != MaxAnalysisRunes {
		t.Errorf("发送的剧本长度 = %d, want %d", n, MaxAnalysisRunes)
	}
}

func TestScriptHashStable(t *testing.T) {
	if ScriptHash("a") != ScriptHash("a") || ScriptHash("a") == ScriptHash("b") {
		t.Fatal("哈希应只由内容决定")
	}
	if len(ScriptHash("")) != 32 {
		t.Errorf("md5 hex 长度应为 32")
	}
}
