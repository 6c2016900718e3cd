package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tvbridge/config"
	"tvbridge/pkg/logger"
	"tvbridge/signal"
)

// AlertSubmitter 告警执行入口（与收件箱共用同一条流水线）
type AlertSubmitter interface {
	Submit(ctx context.Context, alertID, content string) (string, signal.ExecutionOutcome)
}

// ExecutionStore 执行记录查询
type ExecutionStore interface {
	GetRecentExecutions(limit int) ([]config.ExecutionRecord, error)
}

// Server HTTP API服务器
type Server struct {
	router    *gin.Engine
	submitter AlertSubmitter
	store     ExecutionStore
	srv       *http.Server
	log       *zap.Logger

	corsOrigin string
}

// ServerOption 服务器可选配置
type ServerOption func(*Server)

// WithCORSOrigin 允许指定来源跨域访问；为空时不输出任何 CORS 头
func WithCORSOrigin(origin string) ServerOption {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// NewServer 创建API服务器
func NewServer(submitter AlertSubmitter, store ExecutionStore, port int, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:    router,
		submitter: submitter,
		store:     store,
		log:       logger.NewModuleLogger("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.corsOrigin != "" {
		router.Use(corsMiddleware(s.corsOrigin))
	}
	router.Use(s.requestLogger())
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// corsMiddleware CORS中间件，只放行配置的来源
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Add("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Alert-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP请求",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/executions", s.handleGetExecutions)
		api.POST("/alerts", s.handleSubmitAlert)
	}
}

// Handler 暴露 http.Handler（测试使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start 启动服务器，阻塞直到 Shutdown
func (s *Server) Start() error {
	s.log.Info("🌐 API服务器启动", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
