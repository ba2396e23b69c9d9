package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pantry/internal/apperror"
	"pantry/internal/logging"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID tags each request with an id and a request-scoped logger.
func RequestID(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		scoped := log.With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), scoped))
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}

// Logger logs every request with timing and status.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logging.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("error", c.Errors.ByType(gin.ErrorTypePrivate).String()),
		)
	}
}

// Recovery turns a panic into an internal error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.FromContext(c.Request.Context()).Error("panic recovered",
					zap.Any("error", r),
					zap.String("stack", string(debug.Stack())),
				)
				_ = c.Error(apperror.New(apperror.KindInternal, "internal server error").
					WithCause(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ErrorHandler renders the last handler error as {"code","error","details"}.
// Foreign errors are logged and hidden behind a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		log := logging.FromContext(c.Request.Context())

		appErr, ok := apperror.AsAppError(err)
		if !ok || appErr.Kind == apperror.KindInternal {
			log.Error("unhandled error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    apperror.KindInternal,
				"error":   "internal server error",
				"details": gin.H{"request_id": c.GetString("request_id")},
			})
			return
		}

		if appErr.Err != nil {
			log.Warn("request error", zap.String("code", string(appErr.Kind)), zap.Error(appErr.Err))
		}
		details := appErr.Details
		if details == nil {
			details = map[string]any{}
		}
		c.JSON(appErr.HTTPStatus(), gin.H{
			"code":    appErr.Kind,
			"error":   appErr.Message,
			"details": details,
		})
	}
}
