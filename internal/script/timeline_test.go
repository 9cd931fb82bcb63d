package script

import (
	"testing"

	"github.com/Corphon/SceneForge/internal/models"
)

func sampleScenes() []models.Scene {
	return []models.Scene{
		{ID: "a", Sequence: 1, Text: "first", Duration: 3},
		{ID: "b", Sequence: 2, Text: "second", Duration: 4.5},
		{ID: "c", Sequence: 3, Text: "third", Duration: 0},
		{ID: "d", Sequence: 4, Text: "fourth", Duration: 2.5},
	}
}

func TestRetime(t *testing.T) {
	scenes := Retime(sampleScenes())

	wantStart := []float64{0, 3, 7.5, 12.5}
	wantEnd := []float64{3, 7.5, 12.5, 15}
	for i, scene := range scenes {
		if scene.StartTime != wantStart[i] || scene.EndTime != wantEnd[i] {
			t.Errorf("场景%d = [%v, %v], want [%v, %v]", i+1, scene.StartTime, scene.EndTime, wantStart[i], wantEnd[i])
		}
	}
	if scenes[2].Duration != models.DefaultSceneDuration {
		t.Errorf("非正时长应默认为5秒, got %v", scenes[2].Duration)
	}
	assertValidTimeline(t, scenes)
}

func TestRetimeRoundsToOneDecimal(t *testing.T) {
	scenes := Retime([]models.Scene{
		{ID: "a", Sequence: 1, Duration: 0.1},
		{ID: "b", Sequence: 2, Duration: 0.2},
		{ID: "c", Sequence: 3, Duration: 0.3},
	})
	if scenes[1].EndTime != 0.3 || scenes[2].StartTime != 0.3 || scenes[2].EndTime != 0.6 {
		t.Errorf("时间未按一位小数取整: %+v", scenes)
	}
}

func TestRetimeKeepsEndEqualStartPlusDuration(t *testing.T) {
	scenes := Rebuild([]models.Scene{
		{ID: "a", Duration: 2.35},
		{ID: "b", Duration: 1.25},
		{ID: "c", Duration: 0.04},
	})

	wantDuration := []float64{2.4, 1.3, models.DefaultSceneDuration}
	for i, scene := range scenes {
		if scene.Duration != wantDuration[i] {
			t.Errorf("场景%d 时长 = %v, want %v", i+1, scene.Duration, wantDuration[i])
		}
		if scene.EndTime != round1(scene.StartTime+scene.Duration) {
			t.Errorf("场景%d 结束时间 %v != 开始 %v + 时长 %v", i+1, scene.EndTime, scene.StartTime, scene.Duration)
		}
	}
	if scenes[1].StartTime != 2.4 || scenes[1].EndTime != 3.7 {
		t.Errorf("场景2 = [%v, %v], want [2.4, 3.7]", scenes[1].StartTime, scenes[1].EndTime)
	}
	assertValidTimeline(t, scenes)
}

func TestRetimeIsIdempotent(t *testing.T) {
	once := Retime(sampleScenes())
	twice := Retime(once)
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("场景%d 再次计算后变化: %+v -> %+v", i+1, once[i], twice[i])
		}
	}
}

func TestRetimeDoesNotMutateInput(t *testing.T) {
	input := sampleScenes()
	_ = Retime(input)
	if input[1].StartTime != 0 || input[2].Duration != 0 {
		t.Errorf("Retime 修改了入参: %+v", input)
	}
}

func TestDeleteEveryPosition(t *testing.T) {
	base := Rebuild(sampleScenes())
	for _, victim := range base {
		scenes, ok := Delete(base, victim.ID)
		if !ok {
			t.Fatalf("删除 %s 失败", victim.ID)
		}
		if len(scenes) != len(base)-1 {
			t.Fatalf("删除后应有 %d 个场景, got %d", len(base)-1, len(scenes))
		}
		for _, s := range scenes {
			if s.ID == victim.ID {
				t.Errorf("场景 %s 未被删除", victim.ID)
			}
		}
		assertValidTimeline(t, scenes)
	}
	if len(base) != 4 {
		t.Errorf("Delete 修改了入参")
	}
}

func TestDeleteUnknownScene(t *testing.T) {
	scenes, ok := Delete(sampleScenes(), "missing")
	if ok {
		t.Error("不存在的场景应返回 false")
	}
	if len(scenes) != 4 {
		t.Errorf("场景数量不应变化, got %d", len(scenes))
	}
	assertValidTimeline(t, scenes)
}

func TestAppendDefaults(t *testing.T) {
	scenes := Append(Rebuild(sampleScenes()), models.Scene{Text: "new scene"})
	if len(scenes) != 5 {
		t.Fatalf("应有5个场景, got %d", len(scenes))
	}
	last := scenes[4]
	if last.ID == "" || last.Duration != 5 || last.Sequence != 5 || last.StartTime != 15 || last.EndTime != 20 {
		t.Errorf("追加的场景不正确: %+v", last)
	}
	if last.Transition != models.TransitionNone || last.Effects.TextAnimation != "none" {
		t.Errorf("追加场景缺少默认值: %+v", last)
	}
	assertValidTimeline(t, scenes)
}

func TestUpdateDurationRetimes(t *testing.T) {
	base := Rebuild(sampleScenes())
	duration := 10.0
	text := "edited"
	scenes, ok := Update(base, "b", models.SceneEdit{Duration: &duration, Text: &text})
	if !ok {
		t.Fatal("更新失败")
	}
	if scenes[1].Text != "edited" || scenes[1].Duration != 10 {
		t.Errorf("编辑未生效: %+v", scenes[1])
	}
	if scenes[2].StartTime != 13 || scenes[3].EndTime != 20.5 {
		t.Errorf("后续场景未重新计时: %+v", scenes)
	}
	if base[1].Text != "second" {
		t.Error("Update 修改了入参")
	}
	assertValidTimeline(t, scenes)
}

func TestUpdateAllowsShortManualDuration(t *testing.T) {
	duration := 1.0
	scenes, _ := Update(Rebuild(sampleScenes()), "a", models.SceneEdit{Duration: &duration})
	if scenes[0].Duration != 1 || scenes[1].StartTime != 1 {
		t.Errorf("手动时长不应受3秒下限约束: %+v", scenes[0])
	}
}

func TestIngestLegacyFields(t *testing.T) {
	raw := []models.RawScene{
		{ID: "x2", Sequence: 2, NarrationKo: "두 번째 장면", DurationSec: 4, Prompt: "city at night"},
		{ID: "x1", Sequence: 1, Text: "first scene", Duration: 6, ImagePrompt: "sunrise"},
		{NarrationEn: "third scene"},
	}

	scenes := Ingest(raw)
	if len(scenes) != 3 {
		t.Fatalf("应有3个场景, got %d", len(scenes))
	}
	if scenes[0].ID != "x1" || scenes[1].ID != "x2" {
		t.Errorf("应按 sequence 排序: %s, %s", scenes[0].ID, scenes[1].ID)
	}
	if scenes[1].Text != "두 번째 장면" || scenes[1].Duration != 4 || scenes[1].ImagePrompt != "city at night" {
		t.Errorf("旧字段未正确映射: %+v", scenes[1])
	}
	if scenes[2].ID == "" || scenes[2].Text != "third scene" || scenes[2].Duration != 5 {
		t.Errorf("缺省值不正确: %+v", scenes[2])
	}
	if scenes[2].StartTime != 10 || scenes[2].EndTime != 15 {
		t.Errorf("导入后未重新计时: %+v", scenes[2])
	}
	assertValidTimeline(t, scenes)
}

func TestTotalDuration(t *testing.T) {
	if got := TotalDuration(Rebuild(sampleScenes())); got != 15 {
		t.Errorf("TotalDuration = %v, want 15", got)
	}
	if got := TotalDuration(nil); got != 0 {
		t.Errorf("空列表时长应为0, got %v", got)
	}
}
