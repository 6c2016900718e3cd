package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tvbridge/config"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 500
	maxAlertBodyBytes     = 64 << 10
)

// AlertResponse 告警提交结果
type AlertResponse struct {
	AlertID string `json:"alert_id"`
	Status  string `json:"status"`
	Detail  string `json:"detail"`
}

// handleGetExecutions 最近的执行记录
func (s *Server) handleGetExecutions(c *gin.Context) {
	limit := defaultExecutionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须为正整数"})
			return
		}
		limit = n
	}
	if limit > maxExecutionLimit {
		limit = maxExecutionLimit
	}

	records, err := s.store.GetRecentExecutions(limit)
	if err != nil {
		s.log.Error("查询执行记录失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询执行记录失败"})
		return
	}
	if records == nil {
		records = []config.ExecutionRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// handleSubmitAlert 接收 KEY=VALUE 文本告警（TradingView webhook 形式）
// 任何处理结果都返回 200，结果体现在 status 字段
func (s *Server) handleSubmitAlert(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAlertBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}
	content := string(body)
	if strings.TrimSpace(content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "告警内容为空"})
		return
	}

	alertID, outcome := s.submitter.Submit(c.Request.Context(), c.GetHeader("X-Alert-ID"), content)
	c.JSON(http.StatusOK, AlertResponse{
		AlertID: alertID,
		Status:  string(outcome.Status),
		Detail:  outcome.Detail,
	})
}
