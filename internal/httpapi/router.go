// Package httpapi binds the public HTTP surface onto a memsvc.Service: one
// gin router, one handler per endpoint group, a single error-mapping
// helper translating errs.Code into the {error:{code,message}} body, and a
// timing middleware setting X-Process-Time on every response.
package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validate is a second, explicit validator.v10 pass over MemoryMetadata on
// top of gin's own binding-tag enforcement, defense in depth for the
// four fields the external interface contract always requires, reading
// the same "binding" struct tags gin already binds against.
var validate = newMetadataValidator()

func newMetadataValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// NewRouter builds the gin.Engine mounting every endpoint under /api/v1
// on top of h.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(timingMiddleware())
	r.Use(loggingMiddleware(h.log))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/memories/generate", h.Generate)
		v1.POST("/memories/create", h.Create)
		v1.GET("/memories", h.SearchByMetadata)
		v1.GET("/memories/similar", h.SearchSimilar)
		v1.POST("/memories/get_by_ids", h.GetByIDs)
		v1.PUT("/memories/update", h.Update)
		v1.DELETE("/memories/delete_by_id", h.Delete)
		v1.GET("/healthz", h.Healthz)
	}

	return r
}

// timingMiddleware sets X-Process-Time (seconds, decimal) on every
// response, the one header the external interface contract guarantees
// regardless of endpoint or outcome. Setting it after c.Next() returns is
// too late: every handler's c.JSON call already triggers gin's
// WriteHeaderNow internally, and net/http silently drops header writes
// after the status line is flushed. timingResponseWriter intercepts that
// flush point instead.
func timingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &timingResponseWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

// timingResponseWriter wraps gin.ResponseWriter to stamp X-Process-Time
// the instant the header is actually about to go out over the wire,
// rather than whenever the middleware happens to resume after c.Next().
type timingResponseWriter struct {
	gin.ResponseWriter
	start    time.Time
	recorded bool
}

func (w *timingResponseWriter) stamp() {
	if w.recorded || w.Written() {
		return
	}
	w.recorded = true
	elapsed := time.Since(w.start).Seconds()
	w.Header().Set("X-Process-Time", strconv.FormatFloat(elapsed, 'f', 6, 64))
}

func (w *timingResponseWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingResponseWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

// corsMiddleware is permissive by default, per the external interface
// contract: any origin, the methods and headers this API actually uses.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
