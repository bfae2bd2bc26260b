package main

import (
	"fmt"
	"os"

	"ix-decoder-sol/internal/config"
	"ix-decoder-sol/internal/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/conf"
)

var (
	configFile string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/decoder.yaml", "the config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(discriminatorsCmd)
}

var rootCmd = &cobra.Command{
	Use:           "decoder",
	Short:         "Decode Solana instruction data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 配置文件不存在时使用默认值，decode / discriminators 命令无需配置文件即可运行
func loadConfig() (config.DecoderConfig, error) {
	var c config.DecoderConfig
	if _, err := os.Stat(configFile); err == nil {
		if err := conf.Load(configFile, &c); err != nil {
			return c, fmt.Errorf("load config %s: %w", configFile, err)
		}
	} else if err := conf.FillDefault(&c); err != nil {
		return c, fmt.Errorf("fill default config: %w", err)
	}

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		return c, fmt.Errorf("init logger: %w", err)
	}
	return c, nil
}
