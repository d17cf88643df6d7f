package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"aiproxy/internal/model"
)

func testRouter(t *testing.T, d *Dispatcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(d, d.registry)
	r := gin.New()
	r.POST("/v1/messages/:alias", h.Messages)
	r.GET("/health", h.Health)
	return r
}

func TestMessagesErrorEnvelope(t *testing.T) {
	d := testDispatcher(t, openaiProvider("http://127.0.0.1:0"), nil)
	r := testRouter(t, d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/ghost",
		strings.NewReader(`{"model":"claude-sonnet-4","messages":[{"role":"user","content":"hi"}]}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	body := w.Body.String()
	if gjson.Get(body, "type").String() != "error" || gjson.Get(body, "error.type").String() != "invalid_request_error" {
		t.Errorf("error envelope = %s", body)
	}
	if !strings.Contains(gjson.Get(body, "error.message").String(), "ghost") {
		t.Errorf("message should name the alias: %s", body)
	}
}

func TestMessagesRateLimitHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c","model":"m","choices":[{"index":0,"message":{"content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	settings := &model.AppSettings{
		RateLimitEnabled:      true,
		RateLimitRequests:     1,
		RateLimitWindowSecs:   60,
		RequestTimeoutSecs:    10,
		StreamIdleTimeoutSecs: 10,
	}
	d := testDispatcher(t, openaiProvider(srv.URL), settings)
	r := testRouter(t, d)

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/messages/kimi",
			strings.NewReader(`{"model":"claude-sonnet-4","messages":[{"role":"user","content":"hi"}]}`))
		req.Header.Set("x-api-key", "client-key")
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d body = %s", w.Code, w.Body.String())
	}
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
	if gjson.Get(w.Body.String(), "error.type").String() != "rate_limit_error" {
		t.Errorf("error envelope = %s", w.Body.String())
	}
}

func TestMessagesStreamingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, chunk := range []string{
			"data: {\"id\":\"c\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hey\"},\"finish_reason\":\"stop\"}]}\n\n",
			"data: [DONE]\n\n",
		} {
			io.WriteString(w, chunk)
			fl.Flush()
		}
	}))
	defer srv.Close()

	d := testDispatcher(t, openaiProvider(srv.URL), nil)
	r := testRouter(t, d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/kimi",
		strings.NewReader(`{"model":"claude-sonnet-4","stream":true,"messages":[{"role":"user","content":"hi"}]}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"event: message_start", `"text":"hey"`, "event: message_stop"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream body missing %q:\n%s", want, body)
		}
	}
}

func TestHealthReportsActiveProvider(t *testing.T) {
	d := testDispatcher(t, openaiProvider("http://127.0.0.1:0"), nil)
	r := testRouter(t, d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if gjson.Get(body, "status").String() != "ok" || gjson.Get(body, "activeProvider").String() != "kimi" {
		t.Errorf("health body = %s", body)
	}
	if gjson.Get(body, "timestamp").String() == "" {
		t.Errorf("health body missing timestamp: %s", body)
	}
}

func TestMessagesRejectsOversizedBody(t *testing.T) {
	d := testDispatcher(t, openaiProvider("http://127.0.0.1:0"), nil)
	r := testRouter(t, d)

	big := strings.Repeat("x", maxRequestBody+1)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/kimi", strings.NewReader(big))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if gjson.Get(w.Body.String(), "error.type").String() != "invalid_request_error" {
		t.Errorf("error envelope = %s", w.Body.String())
	}
}
