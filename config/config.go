// Package config 读取 justext.toml。
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"

	"github.com/ByLCY/justext/justify"
)

// DefaultFile 是未显式指定时在工作目录中查找的配置文件名。
const DefaultFile = "justext.toml"

// Config 对应配置文件的全部段落。
type Config struct {
	Justify JustifyConfig `toml:"justify"`
	Text    TextConfig    `toml:"text"`
	Layout  LayoutConfig  `toml:"layout"`
	Cache   CacheConfig   `toml:"cache"`
}

// JustifyConfig 控制两端对齐算法。
type JustifyConfig struct {
	Seed      *int64 `toml:"seed"` // 省略时输出不可复现
	ThinSpace string `toml:"thin_space"`
	MaxFill   int    `toml:"max_fill"`
}

// TextConfig 控制终端文本输出。
type TextConfig struct {
	Width int  `toml:"width"` // 0 表示使用终端宽度
	Frame bool `toml:"frame"`
}

// LayoutConfig 控制文档排版。
type LayoutConfig struct {
	Jobs int `toml:"jobs"` // 0 表示 GOMAXPROCS
}

// CacheConfig 控制磁盘缓存；Dir 为空时关闭。
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// Load 读取配置。path 为空时尝试 DefaultFile，文件不存在时返回零值配置；
// 显式指定的 path 不存在则报错。
func Load(path string) (Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("配置 %s 含有未知字段: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("配置 %s 无效: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查数值范围。
func (c Config) Validate() error {
	if c.Justify.MaxFill < 0 {
		return fmt.Errorf("justify.max_fill 不能为负数")
	}
	if c.Text.Width < 0 {
		return fmt.Errorf("text.width 不能为负数")
	}
	if c.Layout.Jobs < 0 {
		return fmt.Errorf("layout.jobs 不能为负数")
	}
	if c.Justify.Seed != nil {
		if _, err := safecast.Conv[uint64](*c.Justify.Seed); err != nil {
			return fmt.Errorf("justify.seed 必须为非负整数: %w", err)
		}
	}
	return nil
}

// SetSeed 覆盖种子（命令行参数优先于文件）。
func (c *Config) SetSeed(seed int64) { c.Justify.Seed = &seed }

// Options 把 [justify] 段转换为 justify 选项。
func (c Config) Options() []justify.Option {
	var opts []justify.Option
	if c.Justify.Seed != nil {
		opts = append(opts, justify.WithSeed(safecast.MustConv[uint64](*c.Justify.Seed)))
	}
	if c.Justify.ThinSpace != "" {
		opts = append(opts, justify.WithThinSpace(c.Justify.ThinSpace))
	}
	if c.Justify.MaxFill > 0 {
		opts = append(opts, justify.WithMaxFill(c.Justify.MaxFill))
	}
	return opts
}
