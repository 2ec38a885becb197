package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fisiohome/fisiohome-api/pkg/config"
	"github.com/fisiohome/fisiohome-api/pkg/middleware/requestid"
)

// New builds the process logger: JSON in production, console-friendly
// development output otherwise. LOG_LEVEL and LOG_FORMAT override the
// preset; an unparseable level falls back to info.
func New(cfg *config.Config) (*zap.Logger, error) {
	base := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		base = zap.NewProductionConfig()
	}

	if cfg.Log.Format == "console" {
		base.Encoding = "console"
	} else if cfg.Log.Format == "json" {
		base.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := base.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			base.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	base.EncoderConfig.TimeKey = "timestamp"
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return base.Build()
}

// GinMiddleware logs one structured line per request after the handler
// chain completes, carrying the request ID when one was assigned.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		l.Info("http_request", fields...)
	}
}
