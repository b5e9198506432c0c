// Package termtext 是终端上的测量端：宽度以字符格计，预算取自终端尺寸。
package termtext

import (
	"fmt"
	"math"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// DefaultWidth 是无法获取终端尺寸时使用的列数。
const DefaultWidth = 80

// Measure 返回字符串在终端上占用的列数。
func Measure(s string) float64 {
	return float64(runewidth.StringWidth(s))
}

// Width 返回终端 f 的列数；f 不是终端或查询失败时返回 fallback。
func Width(f *os.File, fallback int) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// IsTerminal 报告 f 是否连接到终端。
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Budget 把终端列数换算成文本可用的宽度预算，扣除边框与内边距。
// 结果可能为非正数，此时调用方应跳过排版。
func Budget(cols int, frame *lipgloss.Style) float64 {
	if frame != nil {
		cols -= frame.GetHorizontalFrameSize()
	}
	return float64(cols)
}

// Columns 把宽度预算换算回整数列数。
func Columns(budget float64) (int, error) {
	if math.IsNaN(budget) || budget < 0 {
		return 0, fmt.Errorf("termtext: 非法的宽度 %v", budget)
	}
	return safecast.Truncate[int](budget)
}

// FrameStyle 是 --frame 输出与查看器共用的边框样式。
func FrameStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
}

// Frame 用 style 包裹文本。每行先补齐到 budget 列，lipgloss 不设宽度，
// 已排好的行不会在细空格处被再次折行。
func Frame(text string, style lipgloss.Style, budget float64) string {
	cols, err := Columns(budget)
	if err != nil || cols <= 0 {
		return style.Render(text)
	}
	return style.UnsetWidth().Render(Pad(text, cols))
}

// Pad 把每一行右侧补空格到 cols 列；超宽的行保持原样。
func Pad(text string, cols int) string {
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = runewidth.FillRight(ln, cols)
	}
	return strings.Join(lines, "\n")
}
