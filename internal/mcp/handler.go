package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/metrics"
	"github.com/cliffyan/go-biz-search/internal/search"
)

const (
	MCPVersion = "2024-11-05"
)

// Searcher 搜索编排器
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, deadline time.Duration) (*search.ResultSet, error)
	SearchBatch(ctx context.Context, queries []string, maxResults int, concurrency int) []search.BatchResult
}

// SummaryProvider 提供业务指标汇总
type SummaryProvider interface {
	Summary() metrics.Summary
}

// Handler MCP 请求处理器
type Handler struct {
	config   *config.Config
	searcher Searcher
	summary  SummaryProvider
	logger   *logrus.Logger
}

// NewHandler 创建 MCP 处理器，summary 可以为 nil
func NewHandler(cfg *config.Config, searcher Searcher, summary SummaryProvider, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Handler{
		config:   cfg,
		searcher: searcher,
		summary:  summary,
		logger:   logger,
	}
}

// HandleRequest 处理 MCP JSON-RPC 请求，通知返回 nil
func (h *Handler) HandleRequest(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	h.logger.Debugf("📥 MCP Request: method=%s, id=%v", req.Method, req.ID)

	if req.IsNotification() {
		return nil
	}

	var result any
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result = h.handleInitialize()
	case "ping":
		result = struct{}{}
	case "tools/list":
		result = ListToolsResult{Tools: GetTools(h.config, h.summary != nil)}
	case "tools/call":
		result, rpcErr = h.handleToolsCall(ctx, req.Params)
	case "resources/list":
		result = ListResourcesResult{Resources: []any{}}
	case "prompts/list":
		result = ListPromptsResult{Prompts: []any{}}
	default:
		rpcErr = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}

	if rpcErr != nil {
		h.logger.Warnf("❌ MCP Error: %s", rpcErr.Message)
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// handleInitialize 处理初始化请求
func (h *Handler) handleInitialize() InitializeResult {
	return InitializeResult{
		ProtocolVersion: MCPVersion,
		Capabilities: Capability{
			Tools: ToolCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    h.config.MCP.ServerName,
			Version: h.config.MCP.ServerVersion,
		},
	}
}

// handleToolsCall 处理工具调用请求
func (h *Handler) handleToolsCall(ctx context.Context, params json.RawMessage) (*CallToolResult, *RPCError) {
	var call CallToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("failed to unmarshal params: %v", err)}
	}
	if len(call.Arguments) == 0 {
		call.Arguments = json.RawMessage("{}")
	}

	h.logger.Infof("🔧 Tool call: name=%s, args=%s", call.Name, string(call.Arguments))

	switch call.Name {
	case h.config.MCP.Tools.SearchName:
		return h.handleSearch(ctx, call.Arguments), nil
	case BatchSearchToolName:
		return h.handleBatchSearch(ctx, call.Arguments), nil
	case MetricsToolName:
		if h.summary != nil {
			return jsonResult(h.summary.Summary(), false), nil
		}
	}
	return errorResult(fmt.Sprintf("Unknown tool: %s", call.Name)), nil
}

// handleSearch 处理搜索请求
func (h *Handler) handleSearch(ctx context.Context, raw json.RawMessage) *CallToolResult {
	args := searchArgs{Limit: h.config.Orchestrator.DefaultMaxResults}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required")
	}

	deadline := time.Duration(args.DeadlineSeconds * float64(time.Second))
	rs, err := h.searcher.Search(ctx, args.Query, args.Limit, deadline)
	switch {
	case errors.Is(err, search.ErrInvalidInput):
		return errorResult(err.Error())
	case errors.Is(err, search.ErrAllEnginesFailed) && rs != nil:
		return jsonResult(rs, true)
	case err != nil:
		return errorResult(fmt.Sprintf("Search failed: %v", err))
	}
	return jsonResult(rs, false)
}

// batchItem 批量搜索中单个查询的输出
type batchItem struct {
	Query   string            `json:"query"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Result  *search.ResultSet `json:"result,omitempty"`
}

// handleBatchSearch 处理批量搜索请求
func (h *Handler) handleBatchSearch(ctx context.Context, raw json.RawMessage) *CallToolResult {
	args := batchSearchArgs{Limit: h.config.Orchestrator.DefaultMaxResults}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}
	if len(args.Queries) == 0 {
		return errorResult("queries is required")
	}
	if len(args.Queries) > maxBatchQueries {
		return errorResult(fmt.Sprintf("too many queries: %d (max %d)", len(args.Queries), maxBatchQueries))
	}

	results := h.searcher.SearchBatch(ctx, args.Queries, args.Limit, h.config.Orchestrator.BatchConcurrency)
	items := make([]batchItem, len(results))
	for i, r := range results {
		items[i] = batchItem{Query: r.Query, Result: r.ResultSet, Success: r.Err == nil}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	return jsonResult(items, false)
}

func jsonResult(v any, isError bool) *CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to format results: %v", err))
	}
	return &CallToolResult{
		Content: []ContentItem{{Type: "text", Text: string(b)}},
		IsError: isError,
	}
}

func errorResult(msg string) *CallToolResult {
	return &CallToolResult{
		Content: []ContentItem{{Type: "text", Text: msg}},
		IsError: true,
	}
}
