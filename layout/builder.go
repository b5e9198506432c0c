package layout

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ByLCY/justext/binding"
	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/dsl"
	"github.com/ByLCY/justext/justify"
	"github.com/ByLCY/justext/reflow"
)

const (
	defaultFontSize   = 12 * PtToMm
	defaultLineFactor = 1.4
	blockSpacing      = 3.0
	defaultMargin     = 20.0
)

// Build 根据 DSL AST 生成分页后的布局结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	return BuildContext(context.Background(), doc, data, opts)
}

// BuildContext 与 Build 相同；ctx 取消时中止尚未完成的段落排版。
func BuildContext(ctx context.Context, doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	b := &builder{res: res, data: data, opts: opts}

	// 第一遍：解析全部段落与页面指令，宽度预算只取决于所在页面组。
	var items []flowItem
	for _, section := range doc.Sections {
		if section.Page == nil {
			continue
		}
		geo, err := resolvePage(section.Page.Spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", section.Page.Pos, err)
		}
		items = append(items, flowItem{kind: itemSection, geo: geo})
		for _, cmd := range section.Page.Block.Commands("") {
			item, err := b.parseCommand(cmd, geo)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}

	// 第二遍：并行两端对齐。
	if err := b.justifyAll(ctx, items); err != nil {
		return nil, err
	}

	// 第三遍：顺序排入页面。
	p := &pager{}
	for _, item := range items {
		switch item.kind {
		case itemSection:
			p.newPage(item.geo)
		case itemBreak:
			if !p.fresh() {
				p.newPage(p.geo)
			}
		case itemSpacer:
			p.skip(item.space)
		case itemParagraph:
			p.place(item.para, opts.Debug)
		}
	}

	return &Result{
		Pages:     p.pages,
		Resources: res,
		Meta:      collectMeta(doc, b.data),
	}, nil
}

type itemKind int

const (
	itemSection itemKind = iota
	itemParagraph
	itemSpacer
	itemBreak
)

type flowItem struct {
	kind  itemKind
	geo   pageGeometry
	space float64
	para  *paragraph
}

type pageGeometry struct {
	width, height float64
	margin        Margin
}

func (g pageGeometry) contentWidth() float64 {
	return g.width - g.margin.Left - g.margin.Right
}

// paragraph 是一个待排版的段落及其排版结果。
type paragraph struct {
	name       string
	text       string
	font       FontResource
	fontSize   float64
	sizeRaw    *Length
	leading    LineHeightSpec
	lineHeight float64
	color      Color
	align      string
	wrap       string
	box        float64 // 文本框宽度
	budget     float64 // 传给 justify 的宽度预算
	justifier  *justify.Justifier
	lines      []justify.Line
}

type builder struct {
	res  ResourceSet
	data any
	opts BuildOptions
	seq  int
}

var attrKeys = map[string]bool{
	"font": true, "size": true, "color": true, "line-height": true,
	"align": true, "width": true, "wrap": true,
}

func (b *builder) parseCommand(cmd *dsl.Command, geo pageGeometry) (flowItem, error) {
	switch cmd.Name {
	case "paragraph", "p":
		para, err := b.parseParagraph(cmd, geo, "justify")
		return flowItem{kind: itemParagraph, para: para}, err
	case "text":
		para, err := b.parseParagraph(cmd, geo, "left")
		return flowItem{kind: itemParagraph, para: para}, err
	case "spacer":
		if len(cmd.Args) == 0 {
			return flowItem{kind: itemSpacer, space: blockSpacing}, nil
		}
		l, ok := ParseLength(cmd.Args[0].Value)
		if !ok || l.Value < 0 {
			return flowItem{}, fmt.Errorf("%s: spacer 高度 %q 无效", cmd.Pos, cmd.Args[0].Value)
		}
		return flowItem{kind: itemSpacer, space: l.ToMM()}, nil
	case "pagebreak":
		return flowItem{kind: itemBreak}, nil
	default:
		return flowItem{}, fmt.Errorf("%s: 不支持的指令 %s", cmd.Pos, cmd.Name)
	}
}

// parseArgs 拆出可选的样式名与 key value 形式的属性。
func parseArgs(args []*dsl.Lexeme) (string, map[string]string, error) {
	attrs := map[string]string{}
	cursor := 0
	style := ""
	if len(args) > 0 && args[0].Type == "Ident" && !attrKeys[args[0].Value] {
		style = args[0].Value
		cursor = 1
	}
	for ; cursor < len(args); cursor += 2 {
		key := args[cursor].Value
		if cursor+1 >= len(args) {
			return "", nil, fmt.Errorf("属性 %s 缺少取值", key)
		}
		attrs[key] = args[cursor+1].Value
	}
	return style, attrs, nil
}

func (b *builder) parseParagraph(cmd *dsl.Command, geo pageGeometry, align string) (*paragraph, error) {
	styleName, inline, err := parseArgs(cmd.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	attrs := map[string]string{}
	if styleName != "" {
		if style, ok := b.res.Styles[styleName]; ok {
			for k, v := range style.Props {
				attrs[k] = v
			}
		} else if _, ok := b.res.Fonts[styleName]; !ok {
			return nil, fmt.Errorf("%s: 样式 %s 未定义", cmd.Pos, styleName)
		}
	}
	for k, v := range inline {
		attrs[k] = v
	}

	b.seq++
	p := &paragraph{
		name:     fmt.Sprintf("#%d %s", b.seq, cmd.Pos),
		text:     binding.Interpolate(cmd.Block.Text(), b.data),
		fontSize: defaultFontSize,
		leading:  ParseLineHeight(attrs["line-height"]),
		align:    align,
		box:      geo.contentWidth(),
	}

	fontName := attrs["font"]
	if fontName == "" {
		fontName = styleName
	}
	if p.font, err = resolveFont(fontName, b.res); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	if v := attrs["size"]; v != "" {
		l, ok := ParseLength(v)
		if !ok || l.Value <= 0 {
			return nil, fmt.Errorf("%s: 字号 %q 无效", cmd.Pos, v)
		}
		if l.Unit == UnitNone {
			l.Unit = UnitPT
		}
		p.sizeRaw = &l
		p.fontSize = l.ToMM()
	}
	if p.color, err = resolveColor(attrs["color"], b.res); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	if v := attrs["align"]; v != "" {
		if p.align, err = normalizeAlign(v); err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
	}
	if p.wrap, err = normalizeWrap(attrs["wrap"]); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	if v := attrs["width"]; v != "" {
		w, ok := parseDimension(v, geo.contentWidth())
		if !ok {
			return nil, fmt.Errorf("%s: 宽度 %q 无效", cmd.Pos, v)
		}
		p.box = min(w, geo.contentWidth())
	}

	normal, err := b.opts.Typesetter.LineHeight(p.font, p.fontSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	p.lineHeight = p.leading.Resolve(p.fontSize, normal)

	measure, err := b.opts.Typesetter.Measure(p.font, p.fontSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	opts := append([]justify.Option{}, b.opts.Justify...)
	if p.align != "justify" {
		opts = append(opts, justify.WithoutFill())
	}
	p.justifier = justify.New(measure, opts...)

	// 宽度非正或不换行时只按硬换行拆分。
	p.budget = p.box
	if p.wrap == "nowrap" || !(p.box > 0) {
		p.budget = math.Inf(1)
	}
	return p, nil
}

func normalizeAlign(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "justify", "both":
		return "justify", nil
	case "left", "start":
		return "left", nil
	case "right", "end":
		return "right", nil
	case "center", "middle":
		return "center", nil
	default:
		return "", fmt.Errorf("不支持的对齐方式 %s", v)
	}
}

func normalizeWrap(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "normal", "wrap":
		return "", nil
	case "nowrap", "none":
		return "nowrap", nil
	default:
		return "", fmt.Errorf("不支持的折行策略 %s", v)
	}
}

func (b *builder) justifyAll(ctx context.Context, items []flowItem) error {
	var (
		jobs  []reflow.Job
		paras []*paragraph
	)
	for _, item := range items {
		if item.kind != itemParagraph || justify.Skip(item.para.text, item.para.budget) {
			continue
		}
		p := item.para
		jobs = append(jobs, reflow.Job{Name: p.name, Text: p.text, Budget: p.budget, Justifier: p.justifier})
		paras = append(paras, p)
	}

	results, err := reflow.BatchWith(ctx, jobs, b.opts.Jobs, b.compute(paras))
	if err != nil {
		return fmt.Errorf("段落排版失败: %w", err)
	}
	for i, lines := range results {
		paras[i].lines = lines
	}
	return nil
}

// compute 在配置了缓存且结果可复现时走缓存。
func (b *builder) compute(paras []*paragraph) reflow.ComputeFunc {
	memo := b.opts.Cache
	if memo == nil {
		return reflow.Compute
	}
	byName := make(map[string]*paragraph, len(paras))
	for _, p := range paras {
		byName[p.name] = p
	}
	return func(ctx context.Context, job reflow.Job) ([]justify.Line, error) {
		p := byName[job.Name]
		if p == nil || !job.Justifier.Seeded() {
			return reflow.Compute(ctx, job)
		}
		key := cache.NewKey(cache.Request{
			Text:    job.Text,
			Budget:  job.Budget,
			Font:    p.font.Key(),
			Size:    p.fontSize,
			Thin:    job.Justifier.ThinSpace(),
			Seed:    job.Justifier.Seed(),
			Fill:    job.Justifier.Fills(),
			MaxFill: job.Justifier.MaxFill(),
		})
		return memo.Do(key, func() ([]justify.Line, error) {
			return reflow.Compute(ctx, job)
		})
	}
}

// pager 负责分页：逐行放置，放不下时开新页。
type pager struct {
	pages   []Page
	geo     pageGeometry
	cursorY float64
}

func (p *pager) newPage(geo pageGeometry) {
	p.geo = geo
	p.pages = append(p.pages, Page{Width: geo.width, Height: geo.height, Margin: geo.margin})
	p.cursorY = geo.margin.Top
}

func (p *pager) page() *Page { return &p.pages[len(p.pages)-1] }

func (p *pager) top() float64    { return p.geo.margin.Top }
func (p *pager) bottom() float64 { return p.geo.height - p.geo.margin.Bottom }

// fresh 报告当前页是否还没有放置任何内容。
func (p *pager) fresh() bool { return p.cursorY <= p.top() }

func (p *pager) skip(space float64) {
	if p.cursorY+space > p.bottom() {
		p.newPage(p.geo)
		return
	}
	p.cursorY += space
}

func (p *pager) place(para *paragraph, debug bool) {
	if len(para.lines) == 0 {
		return
	}
	if !p.fresh() {
		p.skip(blockSpacing)
	}
	height := min(para.fontSize, para.lineHeight)
	gap := math.Max(para.lineHeight-height, 0)

	var box *TextBox
	flush := func() {
		if box != nil && len(box.Lines) > 0 {
			p.page().Texts = append(p.page().Texts, *box)
			p.cursorY = box.Y + box.Height
		}
		box = nil
	}
	for _, ln := range para.lines {
		need := height
		if box != nil {
			need += gap
		}
		// 新页上的第一行即使放不下也要放，避免死循环
		start := p.cursorY
		if box != nil {
			start = box.Y + box.Height
		}
		if start+need > p.bottom() && !(box == nil && p.fresh()) {
			flush()
			p.newPage(p.geo)
			need = height
		}
		if box == nil {
			box = p.newBox(para, debug)
		}
		tl := TextLine{
			Content:  ln.Content,
			X:        alignOffset(para.box, ln.Width, para.align),
			Width:    ln.Width,
			Height:   height,
			Kind:     ln.Kind.String(),
			Fill:     ln.Fill,
			Overflow: ln.Overflow,
		}
		if len(box.Lines) > 0 {
			tl.GapBefore = gap
		}
		box.Lines = append(box.Lines, tl)
		box.Height += tl.GapBefore + tl.Height
	}
	flush()
}

func (p *pager) newBox(para *paragraph, debug bool) *TextBox {
	box := &TextBox{
		X:          p.geo.margin.Left,
		Y:          p.cursorY,
		Width:      para.box,
		LineHeight: para.lineHeight,
		Font:       para.font.Name,
		FontSize:   para.fontSize,
		Color:      para.color,
		Align:      para.align,
		Wrap:       para.wrap,
	}
	if debug {
		box.Debug = &TextBoxDebug{
			Source:   para.name,
			FontSize: para.sizeRaw,
			Leading:  para.leading,
		}
		// JSON 无法表示 +Inf，不换行的段落不记录预算
		if !math.IsInf(para.budget, 1) {
			box.Debug.Budget = para.budget
		}
	}
	return box
}

func alignOffset(container, width float64, align string) float64 {
	if !(container > width) {
		return 0
	}
	switch align {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

var customSize = regexp.MustCompile(`^(\d+(?:\.\d+)?(?:pt|mm|cm|in))x(\d+(?:\.\d+)?(?:pt|mm|cm|in))$`)

func resolvePage(spec dsl.PageSpec) (pageGeometry, error) {
	var width, height float64
	if base, ok := pagePresets[strings.ToUpper(spec.Size)]; ok {
		width, height = base[0], base[1]
	} else if m := customSize.FindStringSubmatch(spec.Size); m != nil {
		width, height = lengthMM(m[1], 0), lengthMM(m[2], 0)
	} else {
		return pageGeometry{}, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	if width <= 0 || height <= 0 {
		return pageGeometry{}, fmt.Errorf("纸张尺寸无效：%s", spec.Size)
	}

	geo := pageGeometry{width: width, height: height}
	for _, token := range spec.Params {
		switch token.Value {
		case "landscape":
			geo.width, geo.height = max(width, height), min(width, height)
		case "portrait":
			geo.width, geo.height = min(width, height), max(width, height)
		}
	}
	margin, err := resolveMargin(spec.Params)
	if err != nil {
		return pageGeometry{}, err
	}
	geo.margin = margin
	return geo, nil
}

// resolveMargin 按 CSS 的 1~4 值语义解析 margin 之后的长度。
func resolveMargin(params []*dsl.Lexeme) (Margin, error) {
	m := Margin{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin}
	for i, token := range params {
		if token.Value != "margin" {
			continue
		}
		var vals []float64
		for _, next := range params[i+1:] {
			l, ok := ParseLength(next.Value)
			if !ok || len(vals) == 4 {
				break
			}
			if l.Value < 0 {
				return m, fmt.Errorf("页边距不能为负：%s", next.Value)
			}
			vals = append(vals, l.ToMM())
		}
		switch len(vals) {
		case 0:
			return m, fmt.Errorf("margin 缺少取值")
		case 1:
			m = Margin{Top: vals[0], Right: vals[0], Bottom: vals[0], Left: vals[0]}
		case 2:
			m = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			m = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		default:
			m = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return m, nil
}
