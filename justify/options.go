package justify

// Measurer 返回一段文本在当前字体/渲染上下文中的宽度。
// 后台调用时实现必须是并发安全的。
type Measurer interface {
	Measure(s string) float64
}

// MeasureFunc 让普通函数满足 Measurer。
type MeasureFunc func(s string) float64

// Measure implements Measurer.
func (f MeasureFunc) Measure(s string) float64 { return f(s) }

// Option 配置 Justifier。
type Option func(*config)

type config struct {
	thin    string
	seed    uint64
	seeded  bool
	maxFill int
	noFill  bool
}

// WithSeed 固定随机插入位置的种子；同样的输入与宽度总是得到同样的输出。
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
		c.seeded = true
	}
}

// WithThinSpace 替换细空格单元（默认 U+2009）。空串被忽略。
func WithThinSpace(thin string) Option {
	return func(c *config) {
		if thin != "" {
			c.thin = thin
		}
	}
}

// WithMaxFill 限制单行最多插入的细空格数量；n <= 0 时按行宽自动推算上限。
func WithMaxFill(n int) Option {
	return func(c *config) { c.maxFill = n }
}

// WithoutFill 只做贪心断行，不做间隙填充（左/中/右对齐使用）。
func WithoutFill() Option {
	return func(c *config) { c.noFill = true }
}
