package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cliffyan/go-biz-search/internal/search"
)

var (
	searchLimit    int
	searchDeadline time.Duration
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a single search and print the ranked results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (default: orchestrator.default_max_results)")
	searchCmd.Flags().DurationVar(&searchDeadline, "deadline", 0, "Overall time budget, e.g. 8s (default: orchestrator.global_deadline)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the full result set as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	// 结果输出到 stdout，日志走 stderr
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := searchLimit
	if limit == 0 {
		limit = cfg.Orchestrator.DefaultMaxResults
	}

	rs, err := a.orchestrator.Search(ctx, strings.Join(args, " "), limit, searchDeadline)
	if err != nil && !(errors.Is(err, search.ErrAllEnginesFailed) && rs != nil) {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(rs); encErr != nil {
			return encErr
		}
		return err
	}
	printResultSet(out, rs)
	return err
}

// printResultSet 以文本形式输出结果
func printResultSet(w io.Writer, rs *search.ResultSet) {
	if !rs.Success {
		fmt.Fprintf(w, "❌ %s\n", rs.Error)
		return
	}

	cache := ""
	if rs.Performance.CacheHit {
		cache = " (cached)"
	}
	fmt.Fprintf(w, "🔍 %s: %d results, %d chinese, %d premium in %s%s\n\n",
		rs.Query, rs.TotalResults, rs.ChineseResults, rs.PremiumResults,
		rs.Performance.ExecutionTime.Round(time.Millisecond), cache)

	for i, r := range rs.Results {
		fmt.Fprintf(w, "%2d. [%.1f] %s\n", i+1, r.BusinessValue, r.Title)
		fmt.Fprintf(w, "    %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", r.Snippet)
		}
		fmt.Fprintf(w, "    source=%s quality=%.1f chinese=%v premium=%v\n\n", r.Engine, r.ContentQuality, r.IsChinese, r.IsPremium)
	}

	for _, es := range rs.Engines {
		if !es.OK {
			fmt.Fprintf(w, "⚠️ %s failed: %s\n", es.Engine, es.Reason)
		}
	}
}
