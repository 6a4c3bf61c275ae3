package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderProfile identifies the acting profile. Authentication itself
	// happens at the edge; this service trusts the gateway-set header.
	HeaderProfile = "X-Profile-ID"

	// HeaderSweepSignature carries the shared token for manual sweep
	// triggers.
	HeaderSweepSignature = "X-Sweep-Signature"

	contextActorIDKey = "actor_id"
)

// RequestLogger logs one line per request with correlation identifiers.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
		}

		switch {
		case strings.EqualFold(route, "/metrics"):
			log.Debug("http_request", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

// ActorRequired resolves the acting profile id from the gateway header.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderProfile))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextActorIDKey, id)
		c.Next()
	}
}

func actorID(c *gin.Context) snowflake.ID {
	value, ok := c.Get(contextActorIDKey)
	if !ok {
		return 0
	}
	id, _ := value.(snowflake.ID)
	return id
}

func actorSubject(c *gin.Context) string {
	return "profile:" + actorID(c).String()
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	return parseID(c.Param(name), name)
}

func parseID(raw, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}
