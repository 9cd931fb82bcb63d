// internal/script/packer.go
package script

import (
	"math"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/models"
)

const (
	// AverageSceneSeconds 估算场景数时假定的平均场景时长
	AverageSceneSeconds = 5
	// MinSceneCount 打包结果的最少场景数（单元足够时）
	MinSceneCount = 3
	// MinSynthesizedDuration 自动生成场景的最短时长
	MinSynthesizedDuration = 3
	// ReadingRate 每秒朗读的字符数
	ReadingRate = 4

	defaultImageStyle = "vibrant"
)

// Packer 将句子单元组合为带时间轴的场景
type Packer struct {
	synth *Synthesizer
	newID func() string
}

// PackerOption 打包器选项
type PackerOption func(*Packer)

// WithIDGenerator 指定场景 ID 生成函数
func WithIDGenerator(fn func() string) PackerOption {
	return func(p *Packer) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// NewPacker 创建打包器，synth 为 nil 时使用内置模板
func NewPacker(synth *Synthesizer, opts ...PackerOption) *Packer {
	if synth == nil {
		synth = NewSynthesizer(nil)
	}
	p := &Packer{
		synth: synth,
		newID: NewSceneID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSceneID 生成场景 ID
func NewSceneID() string {
	return "scene_" + uuid.NewString()
}

// FromScript 规范化、切分并打包剧本，剧本为空时返回 ErrMissingScript
func (p *Packer) FromScript(raw string, blueprint models.ScriptBlueprint, roster []models.Character) ([]models.Scene, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, apperrors.ErrMissingScript
	}
	return p.Pack(Segment(normalized), blueprint, roster), nil
}

// TargetSceneCount max(3, ceil(目标时长 / 5))
func TargetSceneCount(targetSeconds int) int {
	n := int(math.Ceil(float64(targetSeconds) / AverageSceneSeconds))
	if n < MinSceneCount {
		return MinSceneCount
	}
	return n
}

// GroupSize 每个场景合并的单元数
func GroupSize(unitCount, targetSceneCount int) int {
	if targetSceneCount <= 0 {
		return 1
	}
	size := int(math.Ceil(float64(unitCount) / float64(targetSceneCount)))
	if size < 1 {
		return 1
	}
	return size
}

// SceneDuration max(3, ceil(非空白字符数 / 4))
func SceneDuration(text string) float64 {
	d := math.Ceil(float64(countNonSpace(text)) / ReadingRate)
	return math.Max(MinSynthesizedDuration, d)
}

// Pack 按顺序将单元分组生成场景
func (p *Packer) Pack(units []string, blueprint models.ScriptBlueprint, roster []models.Character) []models.Scene {
	if len(units) == 0 {
		return []models.Scene{}
	}

	groupSize := GroupSize(len(units), TargetSceneCount(blueprint.TargetDuration()))
	topic := blueprint.TopicOrDefault()
	prefix := CharacterPrefix(roster)

	scenes := make([]models.Scene, 0, (len(units)+groupSize-1)/groupSize)
	cursor := 0.0
	for i := 0; i < len(units); i += groupSize {
		end := i + groupSize
		if end > len(units) {
			end = len(units)
		}

		text := joinUnits(units[i:end])
		duration := SceneDuration(text)
		sequence := len(scenes) + 1

		scenes = append(scenes, models.Scene{
			ID:           p.newID(),
			Sequence:     sequence,
			Text:         text,
			Duration:     duration,
			StartTime:    cursor,
			EndTime:      cursor + duration,
			ImagePrompt:  p.synth.Synthesize(topic, sequence, roster),
			PromptPrefix: prefix,
			ImageStyle:   defaultImageStyle,
			CharacterID:  MatchCharacter(text, roster),
			Transition:   models.TransitionNone,
			Effects:      models.DefaultEffects(),
		})
		cursor += duration
	}
	return scenes
}

// MatchCharacter 返回角色表中第一个名字出现在文本里的角色 ID
func MatchCharacter(text string, roster []models.Character) string {
	for _, c := range roster {
		if c.Name != "" && strings.Contains(text, c.Name) {
			return c.ID
		}
	}
	return ""
}

func joinUnits(units []string) string {
	text := strings.TrimSpace(strings.Join(units, ". "))
	if !sentenceTerminators.MatchString(lastRune(text)) {
		text += "."
	}
	return text
}

func lastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return string(r[len(r)-1])
}
