package mcp

import (
	"github.com/cliffyan/go-biz-search/internal/config"
)

// 固定的工具名称
const (
	BatchSearchToolName = "batch_search"
	MetricsToolName     = "search_metrics"
)

// 单次批量搜索最多的查询数
const maxBatchQueries = 10

func ptr(v float64) *float64 { return &v }

// GetTools 获取所有 MCP 工具定义，withMetrics 为 false 时不暴露指标工具
func GetTools(cfg *config.Config, withMetrics bool) []Tool {
	defaultLimit := cfg.Orchestrator.DefaultMaxResults

	tools := []Tool{
		{
			Name:        cfg.MCP.Tools.SearchName,
			Description: cfg.MCP.Tools.SearchDescription,
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "The search query string",
					},
					"limit": {
						Type:        "number",
						Description: "Maximum number of results to return",
						Default:     defaultLimit,
						Minimum:     ptr(1),
						Maximum:     ptr(50),
					},
					"deadline_seconds": {
						Type:        "number",
						Description: "Overall time budget in seconds. Engines that have not answered by then are skipped.",
						Minimum:     ptr(1),
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        BatchSearchToolName,
			Description: "Run several searches concurrently. Each query is searched independently and failures are reported per query.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"queries": {
						Type:        "array",
						Description: "Search queries (at most 10)",
						Items:       &Items{Type: "string"},
					},
					"limit": {
						Type:        "number",
						Description: "Maximum number of results per query",
						Default:     defaultLimit,
						Minimum:     ptr(1),
						Maximum:     ptr(50),
					},
				},
				Required: []string{"queries"},
			},
		},
	}

	if withMetrics {
		tools = append(tools, Tool{
			Name:        MetricsToolName,
			Description: "Summary of recent search performance: success rate, cache hit rate, response time tiers, engine reliability and alerts.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		})
	}
	return tools
}
