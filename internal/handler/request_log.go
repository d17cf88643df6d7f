package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"aiproxy/internal/model"
	"aiproxy/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestLogHandler struct {
	logService *service.RequestLogService
}

func NewRequestLogHandler(logService *service.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{logService: logService}
}

// parseLogQuery 解析列表与聚合共用的查询参数
func parseLogQuery(c *gin.Context) model.RequestLogQuery {
	q := model.RequestLogQuery{
		ProviderName: c.Query("provider"),
		Model:        c.Query("model"),
		ErrorsOnly:   c.Query("errorsOnly") == "true",
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		q.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		q.Offset = v
	}
	if hours, err := strconv.Atoi(c.Query("sinceHours")); err == nil && hours > 0 {
		q.Since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}
	return q
}

func (h *RequestLogHandler) List(c *gin.Context) {
	logs, err := h.logService.Query(parseLogQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取请求日志失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *RequestLogHandler) Get(c *gin.Context) {
	log, err := h.logService.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "日志不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取请求日志失败"})
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h *RequestLogHandler) Summary(c *gin.Context) {
	summary, err := h.logService.Summary(parseLogQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取用量汇总失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *RequestLogHandler) Purge(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("retentionDays", "30"))

	deleted, err := h.logService.Purge(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清理请求日志失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
