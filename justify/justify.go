// Package justify 实现两端对齐：按宽度预算贪心断行，再在每一行的词间
// 随机插入细空格，使行宽尽量贴近但不超过预算。显式换行总是被保留。
package justify

import (
	"context"
	"math/rand/v2"
	"strings"
)

// LineKind 标识一行是如何结束的。
type LineKind int

const (
	Soft LineKind = iota // 因宽度不足而断开，会做间隙填充
	Hard                 // 以硬换行标记结束，保持普通间距
	Last                 // 全文最后一行，保持普通间距
)

func (k LineKind) String() string {
	switch k {
	case Soft:
		return "soft"
	case Hard:
		return "hard"
	case Last:
		return "last"
	default:
		return "unknown"
	}
}

// Line 是一条已经定稿的行。
type Line struct {
	Content  string   `json:"content" msgpack:"c"`
	Break    string   `json:"break,omitempty" msgpack:"b"`
	Kind     LineKind `json:"kind" msgpack:"k"`
	Tokens   int      `json:"tokens" msgpack:"t"`
	Width    float64  `json:"width" msgpack:"w"`
	Fill     int      `json:"fill,omitempty" msgpack:"f"`
	Overflow bool     `json:"overflow,omitempty" msgpack:"o"`
}

// Justifier 持有测量函数与配置，本身不保存任何跨调用的状态，可并发使用。
type Justifier struct {
	measure Measurer
	cfg     config
}

// New 创建 Justifier。measure 不能为空。
func New(measure Measurer, opts ...Option) *Justifier {
	cfg := config{thin: ThinSpace}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Justifier{measure: measure, cfg: cfg}
}

// Justify 是一次性调用的便捷形式，随机源取自运行时熵。
func Justify(text string, budget float64, measure MeasureFunc) string {
	return New(measure).Justify(text, budget)
}

// ThinSpace 返回当前使用的细空格单元。
func (j *Justifier) ThinSpace() string { return j.cfg.thin }

// Seeded 报告输出是否可复现。
func (j *Justifier) Seeded() bool { return j.cfg.seeded }

// Seed 返回固定种子；未设置时为 0。
func (j *Justifier) Seed() uint64 { return j.cfg.seed }

// Fills 报告软断行是否做间隙填充。
func (j *Justifier) Fills() bool { return !j.cfg.noFill }

// MaxFill 返回显式设置的填充上限，0 表示自动推算。
func (j *Justifier) MaxFill() int { return j.cfg.maxFill }

// Skip 报告该调用是否不满足前置条件（宽度非正或文本为空）。
func Skip(text string, budget float64) bool {
	return text == "" || !(budget > 0)
}

// Justify 返回两端对齐后的文本；前置条件不满足时原样返回 text。
func (j *Justifier) Justify(text string, budget float64) string {
	if Skip(text, budget) {
		return text
	}
	lines, _ := j.run(context.Background(), text, budget)
	return Join(lines)
}

// JustifyContext 与 Justify 相同，但在 token 之间检查 ctx，被取消时返回 ctx.Err()。
func (j *Justifier) JustifyContext(ctx context.Context, text string, budget float64) (string, error) {
	if Skip(text, budget) {
		return text, nil
	}
	lines, err := j.run(ctx, text, budget)
	if err != nil {
		return "", err
	}
	return Join(lines), nil
}

// Lines 返回逐行结果；前置条件不满足时返回 nil。
func (j *Justifier) Lines(text string, budget float64) []Line {
	if Skip(text, budget) {
		return nil
	}
	lines, _ := j.run(context.Background(), text, budget)
	return lines
}

// LinesContext 是可取消的 Lines。
func (j *Justifier) LinesContext(ctx context.Context, text string, budget float64) ([]Line, error) {
	if Skip(text, budget) {
		return nil, nil
	}
	return j.run(ctx, text, budget)
}

// Join 按顺序拼接各行内容与行终止符。
func Join(lines []Line) string {
	var b strings.Builder
	for _, ln := range lines {
		b.WriteString(ln.Content)
		b.WriteString(ln.Break)
	}
	return b.String()
}

func (j *Justifier) rng() *rand.Rand {
	seed := j.cfg.seed
	if !j.cfg.seeded {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// run 融合了两个阶段：贪心断行，以及对软断行的间隙填充。
// 所有缓冲区都只属于这一次调用。
func (j *Justifier) run(ctx context.Context, text string, budget float64) ([]Line, error) {
	tokens := tokenize(text)
	rng := j.rng()
	var (
		out     []Line
		current []string
	)
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(current) == 0 || j.measure.Measure(candidate(current, tok)) < budget {
			current = append(current, tok)
		} else {
			out = append(out, j.finalizeSoft(current, budget, rng))
			current = []string{tok}
		}
		if mark := hardBreak(tok); mark != "" {
			out = append(out, j.finalizePlain(current, budget, Hard, mark))
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, j.finalizePlain(current, budget, Last, ""))
	}
	return out, nil
}

// finalizeSoft 定稿一条因宽度断开的行；多于一个 token 时做间隙填充。
func (j *Justifier) finalizeSoft(tokens []string, budget float64, rng *rand.Rand) Line {
	if len(tokens) < 2 || j.cfg.noFill {
		return j.finalizePlain(tokens, budget, Soft, "\n")
	}
	content, fill := j.fill(tokens, budget, rng)
	return Line{
		Content: content,
		Break:   "\n",
		Kind:    Soft,
		Tokens:  len(tokens),
		Width:   j.measure.Measure(content),
		Fill:    fill,
	}
}

func (j *Justifier) finalizePlain(tokens []string, budget float64, kind LineKind, mark string) Line {
	content := strings.Join(tokens, NormalSpace)
	if kind == Hard {
		content = strings.TrimSuffix(content, mark)
	}
	width := j.measure.Measure(content)
	return Line{
		Content:  content,
		Break:    mark,
		Kind:     kind,
		Tokens:   len(tokens),
		Width:    width,
		Overflow: len(tokens) == 1 && width >= budget,
	}
}
