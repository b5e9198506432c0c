package layout

import (
	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/justify"
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Justify    []justify.Option // 所有段落共用的对齐选项
	Jobs       int              // 并行排版的段落数，<= 0 时使用 GOMAXPROCS
	Cache      *cache.Memo      // 可选；只缓存固定种子的结果
	Debug      bool             // 在结果中记录调试字段
}

// Typesetter 是字体度量后端，尺寸单位为毫米。
// 返回的 MeasureFunc 会被多个 goroutine 同时调用。
type Typesetter interface {
	Measure(font FontResource, size float64) (justify.MeasureFunc, error)
	LineHeight(font FontResource, size float64) (float64, error)
}
