package canvasrenderer

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/justext/dsl"
	"github.com/ByLCY/justext/fonts"
	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/layout"
)

var body = layout.FontResource{Name: "Body", Src: "builtin:lmroman", IsBuiltin: true}

const fontSizeMM = 12 * layout.PtToMm

func TestMeasureBuiltinFont(t *testing.T) {
	r := NewRenderer(".")
	measure, err := r.Measure(body, fontSizeMM)
	require.NoError(t, err)
	short, long := measure("hello"), measure("hello world")
	assert.Positive(t, short)
	assert.Greater(t, long, short, "宽度不单调")
	assert.Zero(t, measure(""), "空串宽度应为 0")

	lh, err := r.LineHeight(body, fontSizeMM)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lh, fontSizeMM*0.8)
	assert.LessOrEqual(t, lh, fontSizeMM*2)
}

// TestJustifyWithRealFont 验证真实字体度量下每个非溢出行都严格小于预算。
func TestJustifyWithRealFont(t *testing.T) {
	r := NewRenderer(".")
	measure, err := r.Measure(body, fontSizeMM)
	require.NoError(t, err)
	text := "Typesetting with a real font keeps every justified line strictly inside the width budget, " +
		"while the last line of the paragraph keeps its natural spacing."
	const budget = 60.0 // mm
	lines := justify.New(measure, justify.WithSeed(11)).Lines(text, budget)
	require.GreaterOrEqual(t, len(lines), 3, "expected wrapping into multiple lines")
	if measure(justify.ThinSpace) <= 0 {
		t.Skip("字体缺少细空格字形")
	}
	filled := 0
	for i, ln := range lines {
		if !ln.Overflow {
			assert.Less(t, ln.Width, budget, "line %d width exceeds budget", i)
		}
		if ln.Kind == justify.Soft && ln.Fill > 0 {
			filled++
			// 再插入一个细空格就会超出预算
			if ln.Tokens > 1 {
				assert.GreaterOrEqual(t, measure(ln.Content+" "+justify.ThinSpace), budget, "line %d 未填满: %q", i, ln.Content)
			}
		}
	}
	assert.NotZero(t, filled, "至少应有一行被填充")
	assert.Zero(t, lines[len(lines)-1].Fill, "最后一行不应填充")
}

func TestMeasureConcurrentCalls(t *testing.T) {
	r := NewRenderer(".")
	measure, err := r.Measure(body, fontSizeMM)
	require.NoError(t, err)
	want := measure("concurrent measuring")

	var wg sync.WaitGroup
	errs := make(chan float64, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := measure("concurrent measuring"); math.Abs(got-want) > 1e-9 {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		assert.InDelta(t, want, got, 1e-9, "并发度量结果不一致")
	}
}

func TestFontSources(t *testing.T) {
	// 相对路径在没有资源目录时加载失败，退回内置字体
	fallback, err := NewRenderer("").Measure(layout.FontResource{Name: "X", Src: "missing.ttf"}, fontSizeMM)
	require.NoError(t, err, "退回内置字体失败")
	roman, err := NewRenderer("").Measure(body, fontSizeMM)
	require.NoError(t, err)
	assert.Equal(t, roman("abc"), fallback("abc"), "退回字体应为 %s", fonts.Default)

	// 注入的字体优先于同名内置字体
	mono, err := fonts.Load("gomono")
	require.NoError(t, err)
	r := NewRendererWithOptions(Options{Fonts: map[string]Resource{"lmroman": {Bytes: mono}}})
	injected, err := r.Measure(body, fontSizeMM)
	require.NoError(t, err)
	assert.Equal(t, injected("MMMM"), injected("iiii"), "注入的等宽字体未生效")
}

func TestParseFontStyle(t *testing.T) {
	tests := map[string]bool{"bold italic": true, "Oblique": true, "regular": false, "": false}
	for in, italic := range tests {
		assert.Equal(t, italic, parseFontStyle(in)&canvas.FontItalic != 0, "parseFontStyle(%q)", in)
	}
	assert.Equal(t, canvas.FontSemiBold, parseFontStyle("semibold"), "semibold 不应解析为 bold")
}

func TestRenderPDF(t *testing.T) {
	src := `doc Essay v1 {
  meta { title: "Spacing" author: "justext" }
  resources {
    font Body { src: "builtin:lmroman" }
    font Mono { src: "builtin:lmmono" }
  }
  page 90mmx60mm margin 8mm {
    paragraph { "` + strings.Repeat("justified text flows across pages ", 20) + `" }
    text Mono align right { "right aligned" }
  }
}`
	doc, err := dsl.ParseString(src)
	require.NoError(t, err)
	r := NewRenderer(".")
	res, err := layout.Build(doc, nil, layout.BuildOptions{Typesetter: r, Justify: []justify.Option{justify.WithSeed(2)}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Pages), 2, "期望多页输出")

	out, err := r.Render(res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "输出不是 PDF")

	_, err = r.Render(&layout.Result{})
	assert.Error(t, err, "空结果应报错")
}
