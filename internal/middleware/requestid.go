package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier on the wire.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key the identifier is stored
	// under for handlers and later middleware.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware tags every request with an identifier. An
// X-Request-ID sent by the caller or a fronting proxy is kept as-is;
// otherwise a fresh UUID v4 is assigned. The value is placed in the
// gin context under RequestIDKey and echoed in the response header so
// a client report ("my save didn't stick") can be matched against the
// server's structured logs.
//
// Mount it before the logging middleware so every log line carries
// the identifier.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
