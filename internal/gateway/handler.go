package gateway

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"aiproxy/internal/registry"
)

// maxRequestBody 限制入站请求体大小
const maxRequestBody = 10 * 1024 * 1024

type Handler struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
}

func NewHandler(dispatcher *Dispatcher, reg *registry.Registry) *Handler {
	return &Handler{dispatcher: dispatcher, registry: reg}
}

// Messages 处理 POST /v1/messages/:alias
func (h *Handler) Messages(c *gin.Context) {
	alias := c.Param("alias")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody+1))
	if err != nil {
		writeGatewayError(c, NewGatewayError(ErrKindInvalidRequest, "cannot read request body"))
		return
	}
	if len(body) > maxRequestBody {
		writeGatewayError(c, NewGatewayError(ErrKindInvalidRequest, "request body too large"))
		return
	}

	trace := NewRequestTrace(uuid.New().String(), alias)
	identity := clientIdentity(c)

	result, gerr := h.dispatcher.Dispatch(c.Request.Context(), trace, body, identity)
	if gerr != nil {
		writeGatewayError(c, gerr)
		return
	}

	if !result.Streaming {
		c.Data(http.StatusOK, "application/json", result.Body)
		return
	}

	h.relayToClient(c, trace, result.Events)
}

// relayToClient 将事件通道写入客户端 SSE 连接
func (h *Handler) relayToClient(c *gin.Context, trace *RequestTrace, events <-chan StreamEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)

	for ev := range events {
		if ev.Err != nil {
			if _, werr := c.Writer.WriteString(ev.Err.SSEEvent()); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		if _, werr := c.Writer.WriteString(ev.Data); werr != nil {
			log.Debugf("gateway: client disconnected on request %s", trace.RequestID)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Health 处理 GET /health
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)}
	if p := h.registry.ActiveProvider(); p != nil {
		resp["activeProvider"] = p.Name
	} else {
		resp["activeProvider"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// clientIdentity 限流身份：优先 API key，退化为客户端 IP
func clientIdentity(c *gin.Context) string {
	if key := c.GetHeader("x-api-key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		return auth
	}
	return c.ClientIP()
}

func writeGatewayError(c *gin.Context, gerr *GatewayError) {
	if gerr.Kind == ErrKindRateLimited && gerr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(gerr.RetryAfter))
	}
	c.Data(gerr.HTTPStatus(), "application/json", gerr.Envelope())
}
