package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/termtext"
)

var textCmd = &cobra.Command{
	Use:   "text [FILE]",
	Short: "在终端宽度内两端对齐输出文本",
	Long:  `读取 FILE（省略或为 - 时读取标准输入），按终端列宽两端对齐后写到标准输出`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runText,
}

func init() {
	textCmd.Flags().Int("width", 0, "列宽，0 表示使用终端宽度")
	textCmd.Flags().Bool("frame", false, "用圆角边框包裹输出")
	textCmd.Flags().String("thin", "", "细空格单元（默认 U+2009）")
	textCmd.Flags().String("cache", "", "排版缓存目录（覆盖配置文件）")
}

// textJob 是一次终端排版的输入。
type textJob struct {
	Text    string
	Columns int
	Frame   bool
	Justify []justify.Option
	Cache   *cache.Memo
}

func runText(cmd *cobra.Command, args []string) error {
	_, text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	flags := cmd.Flags()

	job := textJob{Text: text, Columns: cfg.Text.Width, Frame: cfg.Text.Frame, Justify: cfg.Options()}
	if flags.Changed("width") {
		job.Columns, _ = flags.GetInt("width")
		if job.Columns < 0 {
			return fmt.Errorf("width 不能为负数")
		}
	}
	if job.Columns == 0 {
		job.Columns = termtext.Width(os.Stdout, termtext.DefaultWidth)
	}
	if flags.Changed("frame") {
		job.Frame, _ = flags.GetBool("frame")
	}
	if thin, _ := flags.GetString("thin"); thin != "" {
		job.Justify = append(job.Justify, justify.WithThinSpace(thin))
	}

	dir := cfg.Cache.Dir
	if flags.Changed("cache") {
		dir, _ = flags.GetString("cache")
	}
	if job.Cache, err = openMemo(dir); err != nil {
		return err
	}

	return writeText(cmd.OutOrStdout(), job)
}

// writeText 规范化输入、排版并输出；带边框时预算扣除边框宽度。
func writeText(w io.Writer, job textJob) error {
	text := norm.NFC.String(job.Text)

	var style *lipgloss.Style
	if job.Frame {
		s := termtext.FrameStyle()
		style = &s
	}
	budget := termtext.Budget(job.Columns, style)

	j := justify.New(justify.MeasureFunc(termtext.Measure), job.Justify...)
	out, err := justifyCached(j, text, budget, job.Cache)
	if err != nil {
		return err
	}
	if style != nil {
		out = termtext.Frame(out, *style, budget)
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("写入输出失败: %w", err)
	}
	return nil
}

// justifyCached 只在结果可复现时查缓存。
func justifyCached(j *justify.Justifier, text string, budget float64, memo *cache.Memo) (string, error) {
	if memo == nil || !j.Seeded() || justify.Skip(text, budget) {
		return j.Justify(text, budget), nil
	}
	key := cache.NewKey(cache.Request{
		Text:    text,
		Budget:  budget,
		Font:    "termtext",
		Thin:    j.ThinSpace(),
		Seed:    j.Seed(),
		Fill:    j.Fills(),
		MaxFill: j.MaxFill(),
	})
	lines, err := memo.Do(key, func() ([]justify.Line, error) {
		return j.Lines(text, budget), nil
	})
	if err != nil {
		return "", fmt.Errorf("读取排版缓存失败: %w", err)
	}
	return justify.Join(lines), nil
}
