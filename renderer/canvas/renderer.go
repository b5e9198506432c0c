package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/justext/fonts"
	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/layout"
	"github.com/ByLCY/justext/renderer"
)

// Renderer 通过 github.com/tdewolff/canvas 度量文字并输出 PDF。
type Renderer struct {
	baseDir   string
	fontBlobs map[string][]byte // 注入的字体，按名称

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	// canvas 的字体面在度量时会写入内部缓存，并发段落共用这把锁
	measureMu sync.Mutex
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options 配置渲染器。
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // 通过 builtin:<name> 引用，优先于内置字体
}

// Resource 以字节或路径提供。
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer 创建以 baseDir 为资源根目录的渲染器。
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			// 读取失败留到真正使用时报错
			if data, err := os.ReadFile(res.Path); err == nil {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Measure 实现 layout.Typesetter：size 为毫米，返回的宽度也以毫米计。
func (r *Renderer) Measure(font layout.FontResource, size float64) (justify.MeasureFunc, error) {
	face, err := r.fontFace(font, toPt(size), layout.Color{})
	if err != nil {
		return nil, err
	}
	return func(s string) float64 {
		r.measureMu.Lock()
		defer r.measureMu.Unlock()
		return face.TextWidth(s)
	}, nil
}

// LineHeight 实现 layout.Typesetter，返回字体自身的行高（mm）。
func (r *Renderer) LineHeight(font layout.FontResource, size float64) (float64, error) {
	face, err := r.fontFace(font, toPt(size), layout.Color{})
	if err != nil {
		return 0, err
	}
	r.measureMu.Lock()
	defer r.measureMu.Unlock()
	return face.Metrics().LineHeight, nil
}

// Render 将布局结果渲染为 PDF 字节。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	meta := result.Meta
	writer.SetInfo(meta.Title, meta.Subject, strings.Join(meta.Keywords, ", "), meta.Author, meta.Creator)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 与布局一致，左上角为原点

		for _, tb := range page.Texts {
			font := resolveFontResource(tb.Font, result.Resources.Fonts)
			if err := r.drawTextBox(ctx, tb, font); err != nil {
				return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
			}
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTextBox 逐行绘制。两端对齐的行已经包含细空格，直接从左侧起画。
func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, font layout.FontResource) error {
	face, err := r.fontFace(font, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}
	ascent := face.Metrics().Ascent

	cursorY := tb.Y
	for _, line := range tb.Lines {
		cursorY += line.GapBefore
		if line.Content != "" {
			text := canvas.NewTextLine(face, line.Content, canvas.Left)
			ctx.DrawText(tb.X+line.X, cursorY+ascent, text)
		}
		cursorY += line.Height
	}
	return nil
}

func (r *Renderer) fontFace(font layout.FontResource, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := font.Key()
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	name := font.Name
	if name == "" {
		name = "Body"
	}
	family := canvas.NewFontFamily(name)
	if err := r.loadFontIntoFamily(family, font, style); err != nil {
		// 加载失败时退回内置字体，保证文档仍可输出
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
		return fallback, canvas.FontRegular, nil
	}

	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	if err := family.LoadFont(data, 0, style); err != nil {
		return fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
	}
	return nil
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	if fonts.IsBuiltin(font.Src) {
		name := fonts.Name(font.Src)
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return fonts.Load(name)
	}
	path := font.Src
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", font.Src)
		}
		path = filepath.Join(r.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", font.Src, err)
	}
	return data, nil
}

// fallback 在 fontMu 持有时调用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("justext-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func resolveFontResource(name string, fonts map[string]layout.FontResource) layout.FontResource {
	if font, ok := fonts[name]; ok {
		return font
	}
	if font, ok := fonts["Body"]; ok {
		return font
	}
	return layout.FontResource{Name: name, Src: "builtin:lmroman", IsBuiltin: true}
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米转换为点，canvas 的字号以点为单位。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
