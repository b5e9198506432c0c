package layout

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均以毫米为单位，原点在页面左上角。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]Color        `json:"colors"`
	Styles map[string]Style        `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径或 builtin:* 形式。
type FontResource struct {
	Name      string `json:"name"`
	Src       string `json:"src"`
	Style     string `json:"style,omitempty"`
	IsBuiltin bool   `json:"isBuiltin"`
}

// Key 唯一标识字体来源，用作度量与缓存的键。
func (f FontResource) Key() string {
	return f.Name + "|" + f.Src + "|" + f.Style
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸、边距与可以直接渲染的文本块。
type Page struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Margin Margin    `json:"margin"`
	Texts  []TextBox `json:"texts"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// ContentWidth 返回页面去掉左右边距后的宽度，可能为非正数。
func (p Page) ContentWidth() float64 {
	return p.Width - p.Margin.Left - p.Margin.Right
}

// TextBox 是一个段落落在某一页上的部分；跨页的段落会拆成多个 TextBox。
type TextBox struct {
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"` // 宽度预算
	Height     float64       `json:"height"`
	LineHeight float64       `json:"lineHeight"`
	Font       string        `json:"font"`
	FontSize   float64       `json:"fontSize"`
	Color      Color         `json:"color"`
	Align      string        `json:"align"` // justify/left/center/right
	Wrap       string        `json:"wrap,omitempty"`
	Lines      []TextLine    `json:"lines"`
	Debug      *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 是排好的一行。X 是相对 TextBox 左边的偏移。
type TextLine struct {
	Content   string  `json:"content"`
	X         float64 `json:"x,omitempty"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
	Kind      string  `json:"kind"`
	Fill      int     `json:"fill,omitempty"`
	Overflow  bool    `json:"overflow,omitempty"`
}

// TextBoxDebug 仅在 BuildOptions.Debug 打开时填充。
type TextBoxDebug struct {
	Budget   float64        `json:"budget,omitempty"`
	Source   string         `json:"source"`
	FontSize *Length        `json:"fontSize,omitempty"`
	Leading  LineHeightSpec `json:"lineHeight"`
}

// Style 描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
