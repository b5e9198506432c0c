package layout

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ByLCY/justext/binding"
	"github.com/ByLCY/justext/dsl"
	"github.com/ByLCY/justext/fonts"
)

// defaultFont 在文档没有声明任何字体时使用。
const defaultFont = "Body"

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, cmd := range section.Resources.Block.Commands("") {
			if len(cmd.Args) == 0 {
				return res, fmt.Errorf("%s: %s 资源缺少名称", cmd.Pos, cmd.Name)
			}
			switch cmd.Name {
			case "font":
				font := parseFontResource(cmd)
				if font.Src == "" {
					return res, fmt.Errorf("%s: 字体 %s 缺少 src", cmd.Pos, font.Name)
				}
				res.Fonts[font.Name] = font
			case "color":
				name, value := parseColorResource(cmd)
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("%s: 颜色 %s: %w", cmd.Pos, name, err)
				}
				res.Colors[name] = c
			case "style":
				style := parseStyleResource(cmd)
				rawStyles[style.Name] = style
			default:
				return res, fmt.Errorf("%s: 未知的资源类型 %s", cmd.Pos, cmd.Name)
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts[defaultFont] = FontResource{
			Name:      defaultFont,
			Src:       "builtin:" + fonts.Default,
			IsBuiltin: true,
		}
	}

	styles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = styles
	return res, nil
}

// collectMeta 读取 meta 段；标题、作者与主题同样支持 ${path} 绑定。
func collectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{Creator: "justext"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = binding.Interpolate(val.Text(), data)
			case "author":
				meta.Author = binding.Interpolate(val.Text(), data)
			case "subject":
				meta.Subject = binding.Interpolate(val.Text(), data)
			case "creator":
				meta.Creator = val.Text()
			case "keywords":
				// 单个字符串按逗号拆分
				if val.Array == nil {
					for _, kw := range strings.Split(val.Text(), ",") {
						if kw = strings.TrimSpace(kw); kw != "" {
							meta.Keywords = append(meta.Keywords, kw)
						}
					}
				} else {
					meta.Keywords = val.List()
				}
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	props := cmd.Block.Props()
	font := FontResource{
		Name:  cmd.Args[0].Value,
		Src:   props["src"],
		Style: props["style"],
	}
	// font Body "builtin:lmmono" 的简写形式
	if font.Src == "" && len(cmd.Args) > 1 {
		font.Src = cmd.Args[1].Value
	}
	font.IsBuiltin = fonts.IsBuiltin(font.Src)
	return font
}

func parseStyleResource(cmd *dsl.Command) Style {
	style := Style{
		Name:  cmd.Args[0].Value,
		Props: cmd.Block.Props(),
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	return style
}

// parseColorResource 接受 color Ink = #333 与 color Ink #333 两种写法。
func parseColorResource(cmd *dsl.Command) (string, string) {
	name := cmd.Args[0].Value
	if len(cmd.Args) < 2 {
		return name, ""
	}
	return name, cmd.Args[len(cmd.Args)-1].Value
}

// resolveStyles 展开 extends 继承链，检测循环。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var visit func(name string) (Style, error)
	visit = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := visit(style.Extends)
			if err != nil {
				return Style{}, err
			}
			maps.Copy(props, parent.Props)
		}
		maps.Copy(props, style.Props)
		style.Props = props
		resolved[name] = style
		return style, nil
	}

	for _, name := range slices.Sorted(maps.Keys(styles)) {
		if _, err := visit(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// resolveFont 按名称查找字体，找不到时退回 Body，再退回名称最小的字体。
func resolveFont(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts[defaultFont]; ok {
		return font, nil
	}
	names := slices.Sorted(maps.Keys(res.Fonts))
	if len(names) == 0 {
		return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
	}
	return res.Fonts[names[0]], nil
}

var defaultColor = Color{R: 30, G: 30, B: 30}

func resolveColor(value string, res ResourceSet) (Color, error) {
	if value == "" {
		return defaultColor, nil
	}
	if c, ok := res.Colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return Color{}, fmt.Errorf("颜色 %s 未定义", value)
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("颜色值 %q 无法解析", value)
	}
	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %q 无法解析: %w", value, err)
		}
		rgb[i] = int(v)
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}
