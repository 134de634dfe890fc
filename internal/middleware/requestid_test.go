package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func requestIDEngine() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		// Surface the context value so tests can compare it with the
		// response header.
		id, _ := c.Get(RequestIDKey)
		c.Header("X-Context-Request-ID", id.(string))
		c.Status(http.StatusOK)
	})
	return r
}

func doRequestID(t *testing.T, r *gin.Engine, inbound string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware_AssignsUUIDWhenAbsent(t *testing.T) {
	w := doRequestID(t, requestIDEngine(), "")

	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("no X-Request-ID on response")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated request ID %q is not a UUID: %v", id, err)
	}
}

func TestRequestIDMiddleware_KeepsInboundID(t *testing.T) {
	const fromProxy = "lb-7f3a-0042"

	w := doRequestID(t, requestIDEngine(), fromProxy)
	if got := w.Header().Get(RequestIDHeader); got != fromProxy {
		t.Errorf("response X-Request-ID = %q, want %q", got, fromProxy)
	}
}

func TestRequestIDMiddleware_ContextMatchesHeader(t *testing.T) {
	w := doRequestID(t, requestIDEngine(), "")

	header := w.Header().Get(RequestIDHeader)
	fromCtx := w.Header().Get("X-Context-Request-ID")
	if fromCtx == "" {
		t.Fatal("request ID was not stored in the gin context")
	}
	if header != fromCtx {
		t.Errorf("header ID %q differs from context ID %q", header, fromCtx)
	}
}

func TestRequestIDMiddleware_UniquePerRequest(t *testing.T) {
	r := requestIDEngine()
	seen := make(map[string]struct{}, 10)
	for i := range 10 {
		id := doRequestID(t, r, "").Header().Get(RequestIDHeader)
		if _, dup := seen[id]; dup {
			t.Errorf("duplicate request ID %q on iteration %d", id, i)
		}
		seen[id] = struct{}{}
	}
}
