// Package fonts 提供内置字体，使文档在不附带字体文件时也能排版。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定字体来源时使用的内置字体。
const Default = "lmroman"

var builtin = map[string][]byte{
	"lmroman":        lmroman10regular.TTF,
	"lmroman-bold":   lmroman10bold.TTF,
	"lmroman-italic": lmroman10italic.TTF,
	"lmmono":         lmmono10regular.TTF,
	"goregular":      goregular.TTF,
	"gobold":         gobold.TTF,
	"goitalic":       goitalic.TTF,
	"gomono":         gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:lmroman"、"built-in:lmroman" 或直接 "lmroman"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(Name(name)))
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("找不到内置字体 %s（可用: %s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Name 去掉 builtin:/built-in: 前缀。
func Name(src string) string {
	return strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
}

// IsBuiltin 报告 src 是否引用内置字体。
func IsBuiltin(src string) bool {
	return strings.HasPrefix(src, "builtin:") || strings.HasPrefix(src, "built-in:")
}

// Names 返回全部内置字体名称（已排序）。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
