package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/mcp"
	"github.com/cliffyan/go-biz-search/internal/search"
)

// 心跳间隔
const keepaliveInterval = 30 * time.Second

// Deps 服务器依赖，Summary 和 Metrics 可以为 nil
type Deps struct {
	Searcher mcp.Searcher
	Engines  []string
	Summary  mcp.SummaryProvider
	Metrics  http.Handler
	Logger   *logrus.Logger
}

// Server MCP HTTP 服务器
type Server struct {
	config     *config.Config
	deps       Deps
	mcpHandler *mcp.Handler
	sessions   map[string]*Session
	sessionsMu sync.RWMutex
	startedAt  time.Time
	logger     *logrus.Logger
}

// Session 会话信息
type Session struct {
	ID        string
	CreatedAt time.Time
}

// New 创建新的服务器实例
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Server{
		config:     cfg,
		deps:       deps,
		mcpHandler: mcp.NewHandler(cfg, deps.Searcher, deps.Summary, logger),
		sessions:   make(map[string]*Session),
		startedAt:  time.Now(),
		logger:     logger,
	}
}

// Handler 返回带 CORS 的路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// MCP 端点
	mux.HandleFunc("/mcp", s.handleMCP)

	// SSE 端点（兼容旧客户端）
	mux.HandleFunc("/sse", s.handleSSE)

	// REST 搜索
	mux.HandleFunc("/search", s.handleSearch)

	// 指标
	if s.deps.Metrics != nil {
		mux.Handle("/metrics", s.deps.Metrics)
	}
	mux.HandleFunc("/metrics/summary", s.handleSummary)

	// 健康检查
	mux.HandleFunc("/health", s.handleHealth)

	if !s.config.Server.CORS.Enabled {
		return mux
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.Server.CORS.Origin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "mcp-session-id"},
		ExposedHeaders:   []string{"mcp-session-id", "X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// Start 启动 HTTP 服务器，ctx 结束时优雅关闭
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("🚀 Starting MCP HTTP server on %s", addr)
	s.logger.Infof("📡 MCP endpoint: http://%s/mcp", addr)
	s.logger.Infof("📡 SSE endpoint: http://%s/sse", addr)
	s.logger.Infof("🔍 Search endpoint: http://%s/search?q=...", addr)
	s.logger.Infof("❤️ Health check: http://%s/health", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Infof("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// handleMCP 处理 MCP 请求
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleMCPPost(w, r)
	case http.MethodGet:
		s.handleMCPGet(w, r)
	case http.MethodDelete:
		s.handleMCPDelete(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMCPPost 处理 MCP POST 请求
func (s *Server) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	var req mcp.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, nil, mcp.CodeParseError, "Parse error: "+err.Error())
		return
	}

	// 初始化请求创建新会话
	if req.Method == "initialize" && r.Header.Get("mcp-session-id") == "" {
		sess := s.newSession()
		w.Header().Set("mcp-session-id", sess.ID)
		s.logger.Infof("📝 Created new session: %s", sess.ID)
	}

	resp := s.mcpHandler.HandleRequest(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

// handleMCPGet 处理 MCP GET 请求（SSE 流）
func (s *Server) handleMCPGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("mcp-session-id")
	if sessionID == "" {
		http.Error(w, "Missing session ID", http.StatusBadRequest)
		return
	}
	if !s.hasSession(sessionID) {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	s.stream(w, r, `{"uri": "/mcp"}`)
}

// handleMCPDelete 处理 MCP DELETE 请求（关闭会话）
func (s *Server) handleMCPDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("mcp-session-id")
	if sessionID == "" {
		http.Error(w, "Missing session ID", http.StatusBadRequest)
		return
	}
	s.dropSession(sessionID)
	s.logger.Infof("🗑️ Deleted session: %s", sessionID)
	w.WriteHeader(http.StatusOK)
}

// handleSSE 处理 SSE 端点（兼容旧客户端）
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := s.newSession()
	defer func() {
		s.dropSession(sess.ID)
		s.logger.Infof("📡 SSE connection closed: %s", sess.ID)
	}()
	s.logger.Infof("📡 SSE connection established: %s", sess.ID)
	s.stream(w, r, fmt.Sprintf(`{"uri": "/messages?sessionId=%s"}`, sess.ID))
}

// stream 发送 endpoint 事件后保持连接，定期发送心跳
func (s *Server) stream(w http.ResponseWriter, r *http.Request, endpoint string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint)
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// searchRequest POST /search 请求体
type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	// Deadline Go duration 字符串，如 "8s"
	Deadline string `json:"deadline"`
}

// handleSearch 处理 REST 搜索：GET /search?q=...&limit=...&deadline=8s 或 POST JSON
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	req := searchRequest{MaxResults: s.config.Orchestrator.DefaultMaxResults}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("q")
		req.Deadline = q.Get("deadline")
		if l := q.Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit: " + l}, s.logger)
				return
			}
			req.MaxResults = n
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()}, s.logger)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var deadline time.Duration
	if req.Deadline != "" {
		d, err := time.ParseDuration(req.Deadline)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid deadline: " + req.Deadline}, s.logger)
			return
		}
		deadline = d
	}

	s.logger.WithFields(logrus.Fields{"request_id": requestID, "query": req.Query}).Debugf("🔍 REST search request")

	rs, err := s.deps.Searcher.Search(r.Context(), req.Query, req.MaxResults, deadline)
	switch {
	case errors.Is(err, search.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()}, s.logger)
	case errors.Is(err, search.ErrAllEnginesFailed) && rs != nil:
		writeJSON(w, http.StatusOK, rs, s.logger)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()}, s.logger)
	default:
		writeJSON(w, http.StatusOK, rs, s.logger)
	}
}

// handleSummary 业务指标汇总
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.Summary == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Summary.Summary(), s.logger)
}

// handleHealth 健康检查端点
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sessionsMu.RLock()
	sessions := len(s.sessions)
	s.sessionsMu.RUnlock()

	body := map[string]any{
		"status":   "ok",
		"service":  s.config.MCP.ServerName,
		"version":  s.config.MCP.ServerVersion,
		"engines":  s.deps.Engines,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"sessions": sessions,
	}
	if s.deps.Summary != nil {
		body["search_status"] = s.deps.Summary.Summary().Status
	}
	writeJSON(w, http.StatusOK, body, s.logger)
}

func (s *Server) newSession() *Session {
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now()}
	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessionsMu.Unlock()
	return sess
}

func (s *Server) hasSession(id string) bool {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *Server) dropSession(id string) {
	s.sessionsMu.Lock()
	delete(s.sessions, id)
	s.sessionsMu.Unlock()
}

// sendError 发送 JSON-RPC 错误响应
func (s *Server) sendError(w http.ResponseWriter, id any, code int, message string) {
	writeJSON(w, http.StatusOK, mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &mcp.RPCError{
			Code:    code,
			Message: message,
		},
	}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logrus.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("❌ Failed to encode response: %v", err)
	}
}
