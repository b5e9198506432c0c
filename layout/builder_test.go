package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/dsl"
	"github.com/ByLCY/justext/justify"
)

// stubTypesetter 每个字符（含细空格）宽 2mm，避免测试依赖真实字体。
type stubTypesetter struct {
	calls atomic.Int64
}

func stubWidth(s string) float64 { return float64(utf8.RuneCountInString(s)) * 2 }

func (s *stubTypesetter) Measure(font FontResource, size float64) (justify.MeasureFunc, error) {
	return func(str string) float64 {
		s.calls.Add(1)
		return stubWidth(str)
	}, nil
}

func (s *stubTypesetter) LineHeight(font FontResource, size float64) (float64, error) {
	return size * 1.2, nil
}

func build(t *testing.T, src string, data any, opts BuildOptions) *Result {
	t.Helper()
	doc, err := dsl.ParseString(src)
	require.NoError(t, err, "解析 DSL 失败")
	if opts.Typesetter == nil {
		opts.Typesetter = &stubTypesetter{}
	}
	res, err := Build(doc, data, opts)
	require.NoError(t, err, "布局计算失败")
	return res
}

func buildErr(t *testing.T, src string) error {
	t.Helper()
	doc, err := dsl.ParseString(src)
	require.NoError(t, err, "解析 DSL 失败")
	_, err = Build(doc, nil, BuildOptions{Typesetter: &stubTypesetter{}})
	return err
}

const essay = "the quick brown fox jumps over the lazy dog and keeps running far away"

// TestParagraphUsesContentWidthBudget 断言：段落按页面内容宽度两端对齐，结果与直接调用 justify 一致。
func TestParagraphUsesContentWidthBudget(t *testing.T) {
	src := `doc T v1 {
  page 100mmx80mm margin 10mm {
    paragraph { "` + essay + `" }
  }
}`
	res := build(t, src, nil, BuildOptions{Justify: []justify.Option{justify.WithSeed(7)}, Debug: true})
	require.Len(t, res.Pages, 1)
	require.Len(t, res.Pages[0].Texts, 1)
	box := res.Pages[0].Texts[0]
	assert.Equal(t, 80.0, box.Width)
	assert.Equal(t, 10.0, box.X)
	assert.Equal(t, 10.0, box.Y)
	require.NotNil(t, box.Debug, "调试字段缺失")
	assert.Equal(t, 80.0, box.Debug.Budget)

	want := justify.New(justify.MeasureFunc(stubWidth), justify.WithSeed(7)).Lines(essay, 80)
	require.Len(t, box.Lines, len(want), "行数不一致")
	for i, ln := range box.Lines {
		assert.Equal(t, want[i].Content, ln.Content, "第 %d 行不一致", i)
		assert.Equal(t, want[i].Kind.String(), ln.Kind, "第 %d 行不一致", i)
		assert.Equal(t, want[i].Fill, ln.Fill, "第 %d 行不一致", i)
		assert.Less(t, ln.Width, 80.0, "第 %d 行超出预算", i)
		assert.Zero(t, ln.X, "两端对齐的行应左对齐")
	}
	assert.NotZero(t, box.Lines[0].Fill, "软断行应被填充")

	var total float64
	for _, ln := range box.Lines {
		total += ln.GapBefore + ln.Height
	}
	assert.InDelta(t, box.Height, total, 1e-9, "文本框高度与行高之和不一致")
}

func TestRaggedAlignments(t *testing.T) {
	src := `doc T v1 {
  page 100mmx80mm margin 10mm {
    text align center { "ab cd" }
    text align right { "ab" }
    paragraph align left { "` + essay + `" }
  }
}`
	res := build(t, src, nil, BuildOptions{})
	texts := res.Pages[0].Texts
	require.Len(t, texts, 3)
	assert.Equal(t, 35.0, texts[0].Lines[0].X, "居中偏移错误")
	assert.Equal(t, "last", texts[0].Lines[0].Kind)
	assert.Equal(t, 76.0, texts[1].Lines[0].X, "右对齐偏移错误")
	for _, ln := range texts[2].Lines {
		assert.NotContains(t, ln.Content, justify.ThinSpace, "左对齐不应插入细空格")
		assert.Zero(t, ln.Fill)
	}
}

func TestNowrapAndNonPositiveWidth(t *testing.T) {
	src := `doc T v1 {
  page 100mmx80mm margin 10mm {
    paragraph wrap nowrap { "` + essay + `\nzz" }
  }
  page 100mmx80mm margin 10mm 60mm {
    paragraph { "a b c\r\nd" }
  }
}`
	res := build(t, src, nil, BuildOptions{})
	require.Len(t, res.Pages, 2)

	lines := res.Pages[0].Texts[0].Lines
	require.Len(t, lines, 2, "nowrap 只应按硬换行拆分")
	assert.Equal(t, essay, lines[0].Content)
	assert.Equal(t, "hard", lines[0].Kind)
	assert.Equal(t, "zz", lines[1].Content)
	assert.False(t, lines[0].Overflow, "nowrap 行不应标记溢出")

	narrow := res.Pages[1]
	assert.Negative(t, narrow.ContentWidth(), "内容宽度应为负")
	lines = narrow.Texts[0].Lines
	require.Len(t, lines, 2, "宽度非正时应保持原始硬换行")
	assert.Equal(t, "a b c", lines[0].Content)
	assert.Equal(t, "d", lines[1].Content)
}

func TestLinesFlowAcrossPages(t *testing.T) {
	words := strings.TrimSpace(strings.Repeat("word ", 60))
	src := `doc T v1 {
  page 100mmx40mm margin 5mm {
    paragraph { "` + words + `" }
  }
}`
	res := build(t, src, nil, BuildOptions{Justify: []justify.Option{justify.WithSeed(1)}})
	require.Len(t, res.Pages, 2)

	var got []string
	for _, page := range res.Pages {
		require.Len(t, page.Texts, 1, "每页应有 1 个文本块")
		box := page.Texts[0]
		assert.Equal(t, 5.0, box.Y, "续页应从内容区顶部开始")
		assert.LessOrEqual(t, box.Y+box.Height, 35+1e-9, "文本块越过下边距")
		assert.Zero(t, box.Lines[0].GapBefore, "页首行不应有行距")
		for _, ln := range box.Lines {
			got = append(got, strings.Fields(justify.Strip(ln.Content, justify.ThinSpace))...)
		}
	}
	assert.Len(t, res.Pages[0].Texts[0].Lines, 6, "第一页应容纳 6 行")
	assert.Equal(t, words, strings.Join(got, " "), "跨页后词序改变")
}

func TestSpacerPagebreakAndSections(t *testing.T) {
	src := `doc T v1 {
  page A5 {
    paragraph { "one" }
    pagebreak
    pagebreak
    spacer 5mm
    text { "two" }
  }
  page A4 landscape {
    text { "three" }
  }
}`
	res := build(t, src, nil, BuildOptions{})
	require.Len(t, res.Pages, 3)
	assert.Equal(t, 28.0, res.Pages[1].Texts[0].Y, "spacer 与段间距之后 y 应为 28")
	assert.Equal(t, 297.0, res.Pages[2].Width, "横向 A4 尺寸错误")
	assert.Equal(t, 210.0, res.Pages[2].Height, "横向 A4 尺寸错误")
	assert.Equal(t, 148.0, res.Pages[0].Width, "A5 宽度错误")
}

func TestResourcesStylesAndBinding(t *testing.T) {
	src := `doc T v1 {
  meta { title: "Essay"  author: "${user.name}"  keywords: "a, b" }
  resources {
    font Body { src: "builtin:lmroman" }
    font Mono "builtin:lmmono"
    color Ink = #336699
    style Base { font: Mono  size: 10pt }
    style Lead extends Base { color: Ink  line-height: 2x }
  }
  page A4 margin 10mm 20mm {
    paragraph Lead { "Hi ${user.name|friend}" }
    text Body color #abc { "${missing|x}" }
  }
}`
	data := map[string]any{"user": map[string]any{"name": "Ada"}}
	res := build(t, src, data, BuildOptions{})

	assert.Equal(t, "Essay", res.Meta.Title)
	assert.Equal(t, "Ada", res.Meta.Author)
	assert.Equal(t, "justext", res.Meta.Creator)
	assert.Equal(t, []string{"a", "b"}, res.Meta.Keywords)
	assert.True(t, res.Resources.Fonts["Mono"].IsBuiltin, "简写字体未识别为内置")

	lead := res.Pages[0].Texts[0]
	assert.Equal(t, "Mono", lead.Font, "样式继承错误")
	assert.Equal(t, Color{R: 0x33, G: 0x66, B: 0x99}, lead.Color, "样式继承错误")
	assert.InDelta(t, 2*10*PtToMm, lead.LineHeight, 1e-9, "行高错误")
	assert.Equal(t, "Hi Ada", lead.Lines[0].Content, "数据绑定错误")
	assert.Equal(t, 20.0, lead.X, "两值 margin 解析错误")
	assert.Equal(t, 170.0, lead.Width, "两值 margin 解析错误")

	second := res.Pages[0].Texts[1]
	assert.Equal(t, Color{R: 0xaa, G: 0xbb, B: 0xcc}, second.Color)
	assert.Equal(t, "x", second.Lines[0].Content)
}

func TestBuildErrors(t *testing.T) {
	tests := map[string]string{
		"未知指令":  `doc T { page A4 { table { } } }`,
		"未定义颜色": `doc T { page A4 { paragraph color Nope { "x" } } }`,
		"缺少页面":  `doc T { meta { title: "x" } }`,
		"样式循环":  `doc T { resources { style A extends B { size: 1pt } ; style B extends A { size: 2pt } } page A4 { } }`,
		"未知纸张":  `doc T { page B7 { } }`,
		"对齐方式":  `doc T { page A4 { paragraph align sideways { "x" } } }`,
		"属性缺值":  `doc T { page A4 { paragraph size { "x" } } }`,
	}
	for name, src := range tests {
		assert.Error(t, buildErr(t, src), "%s: 期望报错", name)
	}
}

func TestSeededParagraphsAreCached(t *testing.T) {
	disk, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	memo := cache.NewMemo(disk)
	src := `doc T v1 {
  page 100mmx80mm margin 10mm {
    paragraph { "` + essay + `" }
    paragraph { "` + essay + ` again" }
  }
}`
	opts := BuildOptions{Justify: []justify.Option{justify.WithSeed(3)}, Cache: memo, Jobs: 2}

	first := &stubTypesetter{}
	opts.Typesetter = first
	a := build(t, src, nil, opts)
	require.NotZero(t, first.calls.Load(), "首次构建应调用度量")

	second := &stubTypesetter{}
	opts.Typesetter = second
	b := build(t, src, nil, opts)
	assert.Zero(t, second.calls.Load(), "命中缓存时不应再度量")
	assert.Equal(t, a.Pages[0].Texts[1].Lines[0].Content, b.Pages[0].Texts[1].Lines[0].Content, "缓存结果与计算结果不一致")

	// 未固定种子时不走缓存
	third := &stubTypesetter{}
	opts.Typesetter = third
	opts.Justify = nil
	build(t, src, nil, opts)
	assert.NotZero(t, third.calls.Load(), "未固定种子时不应使用缓存")
}

func TestWriteDebugJSON(t *testing.T) {
	res := build(t, `doc T { page A4 { paragraph { "hello world" } } }`, nil, BuildOptions{Debug: true})
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, WriteDebugJSON(res, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Pages []struct {
			Texts []struct {
				Debug *TextBoxDebug `json:"debug"`
			} `json:"texts"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded), "JSON 无效")
	require.Len(t, decoded.Pages, 1)
	assert.NotNil(t, decoded.Pages[0].Texts[0].Debug, "调试字段缺失: %s", raw)
}
