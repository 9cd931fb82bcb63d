// cmd/demo/main.go
//
// 离线运行剧本到场景的流程并输出导出文档，不调用任何模型。
//
//	demo -topic 다이소 -duration 30 script.txt
//	cat script.txt | demo -format json -
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/script"
	"github.com/Corphon/SceneForge/internal/services"
	"github.com/Corphon/SceneForge/internal/utils"
)

const maxParallel = 4

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type options struct {
	topic     string
	duration  int
	format    string
	male      bool
	templates string
}

// result 单个剧本的处理结果
type result struct {
	source  string
	project *models.Project
	output  []byte
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("错误: "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.topic, "topic", "", "主题，用于选择提示词模板")
	fs.IntVar(&opts.duration, "duration", 60, "目标时长（秒）")
	fs.StringVar(&opts.format, "format", services.ExportFormatYAML, "输出格式 yaml|json")
	fs.BoolVar(&opts.male, "male-narrator", false, "使用男声旁白")
	fs.StringVar(&opts.templates, "templates", "", "自定义提示词模板 YAML 文件")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources := fs.Args()
	if len(sources) == 0 {
		fs.Usage()
		return errors.New("至少需要一个剧本文件，使用 - 读取标准输入")
	}

	utils.GetLogger().SetOutput(io.Discard)

	synth := script.NewSynthesizer(nil)
	if opts.templates != "" {
		table, err := script.LoadTemplates(opts.templates)
		if err != nil {
			return err
		}
		synth = script.NewSynthesizer(table)
	}
	packer := script.NewPacker(synth)
	exporter := services.NewExportService()

	texts := make([]string, len(sources))
	for i, src := range sources {
		text, err := readSource(src, stdin)
		if err != nil {
			return err
		}
		texts[i] = text
	}

	results := make([]result, len(sources))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i := range sources {
		g.Go(func() error {
			res, err := process(packer, exporter, sources[i], texts[i], opts)
			if err != nil {
				return fmt.Errorf("%s: %w", sources[i], err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		// 多个 YAML 文档用分隔符隔开
		if i > 0 && opts.format != services.ExportFormatJSON {
			fmt.Fprintln(stdout, "---")
		}
		stdout.Write(res.output)
		if len(res.output) > 0 && res.output[len(res.output)-1] != '\n' {
			fmt.Fprintln(stdout)
		}
	}

	fmt.Fprintln(stderr, renderSummary(results))
	return nil
}

func readSource(src string, stdin io.Reader) (string, error) {
	if src == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("读取剧本失败: %w", err)
	}
	return string(data), nil
}

// process 规范化、切分、打包并导出一个剧本
func process(packer *script.Packer, exporter *services.ExportService, source, text string, opts options) (result, error) {
	topic := opts.topic
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if source == "-" {
		name = "stdin"
	}
	if topic == "" {
		topic = name
	}

	blueprint := models.ScriptBlueprint{Topic: topic, TargetDurationSeconds: opts.duration}
	roster := models.EnsureNarrator(nil, !opts.male)

	scenes, err := packer.FromScript(text, blueprint, roster)
	if err != nil {
		return result{}, err
	}

	now := time.Now()
	project := &models.Project{
		ID:         "demo_" + name,
		Title:      name,
		Script:     text,
		Blueprint:  blueprint,
		Scenes:     scenes,
		Characters: roster,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	output, _, err := exporter.Export(project, opts.format)
	if err != nil {
		return result{}, err
	}
	return result{source: source, project: project, output: output}, nil
}

func renderSummary(results []result) string {
	lines := []string{titleStyle.Render("SceneForge demo")}
	for _, res := range results {
		lines = append(lines, fmt.Sprintf("%s  %s",
			res.source,
			mutedStyle.Render(fmt.Sprintf("%d 个场景, %.1f 秒", len(res.project.Scenes), res.project.TotalDuration())),
		))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
