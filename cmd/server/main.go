package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cliffyan/go-biz-search/internal/config"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "go-biz-search",
	Short: "Business-oriented multi-engine web search",
	Long: `go-biz-search aggregates Bing, Baidu, Sogou and DuckDuckGo results,
deduplicates them and ranks them by business value.

Modes:
  go-biz-search           Run the HTTP + MCP server (default)
  go-biz-search serve     Run the HTTP + MCP server
  go-biz-search search    Run a single search and print the results`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "",
		"Log level: trace, debug, info, warn, error (overrides log.level in config)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: $CONFIG_FILE or ./config.yaml)")

	rootCmd.AddCommand(serveCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置并按配置或 --log 设置日志级别
func loadConfig() (*config.Config, *logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var cfg *config.Config
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath, logger)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = config.Load(logger)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(parsed)
	return cfg, logger, nil
}
