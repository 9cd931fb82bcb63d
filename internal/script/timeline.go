// internal/script/timeline.go
package script

import (
	"math"
	"sort"

	"github.com/Corphon/SceneForge/internal/models"
)

// 时间轴操作都返回新的场景列表，不修改入参

// Retime 从0开始重新计算开始/结束时间。
// 时长与时间点都保留一位小数，时长不为正（或取整后为0）时按5秒处理。
func Retime(scenes []models.Scene) []models.Scene {
	out := make([]models.Scene, len(scenes))
	cursor := 0.0
	for i, scene := range scenes {
		scene.Duration = round1(scene.Duration)
		if scene.Duration <= 0 {
			scene.Duration = models.DefaultSceneDuration
		}
		scene.StartTime = round1(cursor)
		scene.EndTime = round1(scene.StartTime + scene.Duration)
		cursor = scene.EndTime
		out[i] = scene
	}
	return out
}

// Resequence 将序号重排为 1..N
func Resequence(scenes []models.Scene) []models.Scene {
	out := make([]models.Scene, len(scenes))
	for i, scene := range scenes {
		scene.Sequence = i + 1
		out[i] = scene
	}
	return out
}

// Rebuild 重排序号并重算时间轴
func Rebuild(scenes []models.Scene) []models.Scene {
	return Retime(Resequence(scenes))
}

// Append 在末尾追加场景，未指定时长时为5秒
func Append(scenes []models.Scene, scene models.Scene) []models.Scene {
	if scene.ID == "" {
		scene.ID = NewSceneID()
	}
	if scene.Duration <= 0 {
		scene.Duration = models.DefaultSceneDuration
	}
	if scene.Transition == "" {
		scene.Transition = models.TransitionNone
	}
	if scene.Effects == (models.SceneEffects{}) {
		scene.Effects = models.DefaultEffects()
	}

	out := make([]models.Scene, 0, len(scenes)+1)
	out = append(out, scenes...)
	return Rebuild(append(out, scene))
}

// Update 对指定场景应用编辑；场景不存在时返回重算后的原列表和 false
func Update(scenes []models.Scene, id string, edit models.SceneEdit) ([]models.Scene, bool) {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)

	found := false
	for i := range out {
		if out[i].ID == id {
			out[i] = edit.Apply(out[i])
			found = true
			break
		}
	}
	return Rebuild(out), found
}

// Delete 删除指定场景并重排；场景不存在时返回重算后的原列表和 false
func Delete(scenes []models.Scene, id string) ([]models.Scene, bool) {
	out := make([]models.Scene, 0, len(scenes))
	found := false
	for _, scene := range scenes {
		if scene.ID == id {
			found = true
			continue
		}
		out = append(out, scene)
	}
	return Rebuild(out), found
}

// Ingest 将外部导入的场景记录转换为有效的时间轴。
// 有 sequence 的记录按 sequence 稳定排序，缺失 ID 时自动生成。
func Ingest(raw []models.RawScene) []models.Scene {
	scenes := make([]models.Scene, 0, len(raw))
	for _, r := range raw {
		scene := r.Normalize()
		if scene.ID == "" {
			scene.ID = NewSceneID()
		}
		scenes = append(scenes, scene)
	}
	sortBySequence(scenes)
	return Rebuild(scenes)
}

// sortBySequence 稳定排序，没有 sequence 的记录排在最后
func sortBySequence(scenes []models.Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		return sequenceKey(scenes[i]) < sequenceKey(scenes[j])
	})
}

func sequenceKey(s models.Scene) int {
	if s.Sequence <= 0 {
		return math.MaxInt
	}
	return s.Sequence
}

// TotalDuration 所有场景时长之和
func TotalDuration(scenes []models.Scene) float64 {
	total := 0.0
	for _, scene := range scenes {
		total += scene.Duration
	}
	return round1(total)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
