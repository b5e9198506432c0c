package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ByLCY/justext/config"
	"github.com/ByLCY/justext/termtext"
)

// cfg 在 PersistentPreRunE 中加载，命令行参数覆盖文件中的值。
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "justext",
	Short: "两端对齐排版工具",
	Long: `justext 按宽度预算贪心断行，并在词间随机插入细空格，
使每一行尽量贴近但不超过预算。支持输出 PDF、终端文本与交互式查看器。`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(cacheCmd)

	rootCmd.PersistentFlags().String("config", "", "配置文件路径（默认 ./"+config.DefaultFile+"）")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int64("seed", 0, "固定随机种子，使输出可复现")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%s", color.RedString("%v", err))
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()

	mode, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("读取 color 参数失败: %w", err)
	}
	if err := setColorMode(mode); err != nil {
		return err
	}

	path, err := flags.GetString("config")
	if err != nil {
		return fmt.Errorf("读取 config 参数失败: %w", err)
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if flags.Changed("seed") {
		seed, err := flags.GetInt64("seed")
		if err != nil {
			return fmt.Errorf("读取 seed 参数失败: %w", err)
		}
		loaded.SetSeed(seed)
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded
	return nil
}

func setColorMode(mode string) error {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !termtext.IsTerminal(os.Stderr)
	default:
		return fmt.Errorf("未知的 color 取值: %s", mode)
	}
	return nil
}

// readInput 读取参数指定的文件；未指定或为 "-" 时读取标准输入。
func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return "stdin", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("无法打开文件 %s: %w", args[0], err)
	}
	return args[0], string(data), nil
}

func success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(os.Stderr, format+"\n", args...)
}

func warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}
