package main

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/justext/cache"
	"github.com/ByLCY/justext/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view [FILE]",
	Short: "交互式查看器，窗口尺寸变化时重新排版",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runView,
}

func runView(cmd *cobra.Command, args []string) error {
	name, text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if err := tui.Run(norm.NFC.String(text), viewOptions(name)); err != nil {
		return fmt.Errorf("查看器异常退出: %w", err)
	}
	return nil
}

// viewOptions 没有配置种子时随机选一个，按 r 会在此基础上递增。
func viewOptions(name string) tui.Options {
	seed := rand.Uint64()
	if cfg.Justify.Seed != nil {
		seed = safecast.MustConv[uint64](*cfg.Justify.Seed)
	}
	return tui.Options{
		Title:   filepath.Base(name),
		Seed:    seed,
		Justify: cfg.Options(),
	}
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "管理排版缓存",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [DIR]",
	Short: "清空缓存目录（默认取配置文件中的 cache.dir）",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Cache.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("未配置缓存目录")
		}
		disk, err := cache.Open(dir)
		if err != nil {
			return err
		}
		if err := disk.DropAll(); err != nil {
			return fmt.Errorf("清空缓存失败: %w", err)
		}
		success("已清空缓存：%s", disk.Dir())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
