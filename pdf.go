package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/dsl"
	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/layout"
	"github.com/ByLCY/justext/renderer"
	canvasrenderer "github.com/ByLCY/justext/renderer/canvas"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf --in doc.jt --out out.pdf",
	Short: "把文档排版为 PDF",
	Args:  cobra.NoArgs,
	RunE:  runPDF,
}

func init() {
	pdfCmd.Flags().String("in", "examples/demo.jt", "DSL 文件路径")
	pdfCmd.Flags().String("out", "output/demo.pdf", "PDF 输出路径")
	pdfCmd.Flags().String("debug", "", "布局调试 JSON 输出路径")
	pdfCmd.Flags().String("data", "", "绑定到 DSL 的 JSON 数据")
	pdfCmd.Flags().String("cache", "", "排版缓存目录（覆盖配置文件）")
	pdfCmd.Flags().Int("jobs", 0, "并行排版的段落数，0 表示 GOMAXPROCS")
}

// pdfJob 汇总一次 PDF 生成所需的输入。
type pdfJob struct {
	In      string
	Out     string
	Debug   string
	Data    any
	Jobs    int
	Cache   *cache.Memo
	Justify []justify.Option
}

func runPDF(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	in, _ := flags.GetString("in")
	out, _ := flags.GetString("out")
	debugPath, _ := flags.GetString("debug")
	dataJSON, _ := flags.GetString("data")

	job := pdfJob{In: in, Out: out, Debug: debugPath, Jobs: cfg.Layout.Jobs, Justify: cfg.Options()}
	if flags.Changed("jobs") {
		job.Jobs, _ = flags.GetInt("jobs")
	}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &job.Data); err != nil {
			return fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}

	dir := cfg.Cache.Dir
	if flags.Changed("cache") {
		dir, _ = flags.GetString("cache")
	}
	memo, err := openMemo(dir)
	if err != nil {
		return err
	}
	job.Cache = memo

	var r renderer.Renderer = canvasrenderer.NewRenderer(filepath.Dir(in))
	if err := run(cmd.Context(), job, r); err != nil {
		return fmt.Errorf("生成 PDF 失败: %w", err)
	}
	success("已生成 PDF：%s", out)
	return nil
}

// openMemo 在 dir 非空时打开磁盘缓存。
func openMemo(dir string) (*cache.Memo, error) {
	if dir == "" {
		return nil, nil
	}
	disk, err := cache.Open(dir)
	if err != nil {
		return nil, err
	}
	memo := cache.NewMemo(disk)
	memo.OnError = func(key cache.Key, err error) {
		warn("缓存条目 %s 不可用: %v", key, err)
	}
	return memo, nil
}

// run 串联解析、布局与渲染。
func run(ctx context.Context, job pdfJob, r renderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := os.Open(job.In)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", job.In, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(job.In, file)
	if err != nil {
		return err
	}

	ts, ok := r.(layout.Typesetter)
	if !ok {
		return fmt.Errorf("renderer 未实现排版接口")
	}

	result, err := layout.BuildContext(ctx, doc, job.Data, layout.BuildOptions{
		Typesetter: ts,
		Justify:    job.Justify,
		Jobs:       job.Jobs,
		Cache:      job.Cache,
		Debug:      job.Debug != "",
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if job.Debug != "" {
		if err := writeDebug(result, job.Debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(job.Out), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(job.Out, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
