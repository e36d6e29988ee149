package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/memsvc"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/obs"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

// Handlers binds the Memory Service onto gin.HandlerFuncs: one method per
// endpoint, each a thin request/response translation around a single
// memsvc.Service call.
type Handlers struct {
	svc    *memsvc.Service
	log    *zap.Logger
	tracer obs.Tracer
}

// NewHandlers constructs Handlers over an already-initialized Memory
// Service. tracer may be obs.NoopTracer{}; log may be nil (defaults to a
// no-op logger), mirroring memsvc.New's own defaulting.
func NewHandlers(svc *memsvc.Service, log *zap.Logger, tracer obs.Tracer) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{svc: svc, log: log, tracer: tracer}
}

type generateRequest struct {
	Messages []model.Message      `json:"messages" binding:"required"`
	Metadata model.MemoryMetadata `json:"metadata" binding:"required"`
}

// Generate handles POST /memories/generate.
func (h *Handlers) Generate(c *gin.Context) {
	var req generateRequest
	if !h.bindAndValidate(c, &req, &req.Metadata) {
		return
	}
	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.Generate", obs.KindChain)
	defer span.End()

	out, err := h.svc.Generate(ctx, req.Messages, req.Metadata)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageFor(out), "info": out})
}

type createRequest struct {
	Documents []string             `json:"documents" binding:"required,min=1"`
	Metadata  model.MemoryMetadata `json:"metadata" binding:"required"`
}

// Create handles POST /memories/create.
func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if !h.bindAndValidate(c, &req, &req.Metadata) {
		return
	}
	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.Create", obs.KindChain)
	defer span.End()

	out, err := h.svc.Create(ctx, req.Documents, req.Metadata)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageFor(out), "info": out})
}

// SearchByMetadata handles GET /memories, filtering on the same four query
// parameters every Memory is tagged with.
func (h *Handlers) SearchByMetadata(c *gin.Context) {
	filter := vectorstore.Filter{
		UserID:    c.Query("user_id"),
		AppID:     c.Query("app_id"),
		SessionID: c.Query("session_id"),
		AgentName: c.Query("agent_name"),
	}
	limit := queryInt(c, "limit", 50, 50)

	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.SearchByMetadata", obs.KindChain)
	defer span.End()

	out, err := h.svc.SearchByMetadata(ctx, filter, limit)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": out})
}

// SearchSimilar handles GET /memories/similar. Accepts one or more `query`
// parameters plus the same metadata filter as SearchByMetadata.
func (h *Handlers) SearchSimilar(c *gin.Context) {
	queries := c.QueryArray("query")
	if len(queries) == 0 {
		h.writeErrorCode(c, errs.InvalidRequest, "query parameter is required")
		return
	}
	filter := vectorstore.Filter{
		UserID:    c.Query("user_id"),
		AppID:     c.Query("app_id"),
		SessionID: c.Query("session_id"),
		AgentName: c.Query("agent_name"),
	}
	limit := queryInt(c, "limit", 10, 0)

	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.SearchSimilar", obs.KindChain)
	defer span.End()

	out, err := h.svc.SearchSimilar(ctx, queries, filter, limit)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": out})
}

// GetByIDs handles POST /memories/get_by_ids. The body is a bare JSON
// array of ids, not an object.
func (h *Handlers) GetByIDs(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
		h.writeErrorCode(c, errs.InvalidRequest, "body must be a non-empty array of ids")
		return
	}
	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.GetByIDs", obs.KindChain)
	defer span.End()

	out, err := h.svc.GetByIDs(ctx, ids)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": out})
}

type updateEntry struct {
	ID       string `json:"id" binding:"required"`
	Document string `json:"document" binding:"required"`
}

// Update handles PUT /memories/update. The body is a bare JSON array of
// {id, document} entries.
func (h *Handlers) Update(c *gin.Context) {
	var entries []updateEntry
	if err := c.ShouldBindJSON(&entries); err != nil || len(entries) == 0 {
		h.writeErrorCode(c, errs.InvalidRequest, "body must be a non-empty array of {id, document}")
		return
	}
	items := make([]model.ConsolidationPlanItem, len(entries))
	for i, e := range entries {
		items[i] = model.ConsolidationPlanItem{ID: e.ID, Text: e.Document, Action: model.ActionUpdate}
	}

	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.Update", obs.KindChain)
	defer span.End()

	out, err := h.svc.Update(ctx, items)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageFor(out), "info": out})
}

// Delete handles DELETE /memories/delete_by_id. The body is a bare JSON
// array of ids. Unknown ids are reported as NOT_FOUND confirmations, not
// a failing HTTP status.
func (h *Handlers) Delete(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
		h.writeErrorCode(c, errs.InvalidRequest, "body must be a non-empty array of ids")
		return
	}
	ctx, span := h.tracer.StartSpan(c.Request.Context(), "httpapi.Delete", obs.KindChain)
	defer span.End()

	out, err := h.svc.Delete(ctx, ids)
	if h.writeError(c, span, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageFor(out), "info": out})
}

// messageFor renders the short human-readable summary every write
// endpoint's response carries alongside its info array.
func messageFor(confirmations []model.ActionConfirmation) string {
	if len(confirmations) == 0 {
		return "no memories affected"
	}
	var notFound int
	for _, c := range confirmations {
		if c.Status == model.StatusNotFound {
			notFound++
		}
	}
	if notFound > 0 {
		return "partial success: some ids were not found"
	}
	return "ok"
}

// Healthz handles GET /healthz: a bare liveness probe, no downstream calls.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindAndValidate binds the JSON body into req and, if md is non-nil, runs
// it through the shared validator instance on top of gin's own
// binding:"required" checks - the two layers the metadata's four required
// fields are checked by.
func (h *Handlers) bindAndValidate(c *gin.Context, req any, md *model.MemoryMetadata) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.writeErrorCode(c, errs.InvalidRequest, err.Error())
		return false
	}
	if md != nil {
		if err := validate.Struct(md); err != nil {
			h.writeErrorCode(c, errs.InvalidRequest, err.Error())
			return false
		}
	}
	return true
}

// writeError maps a memsvc error onto the response, if non-nil, recording
// it on span first. Returns true when it wrote a response (caller should
// return immediately).
func (h *Handlers) writeError(c *gin.Context, span obs.Span, err error) bool {
	if err == nil {
		return false
	}
	span.RecordError(err)
	code, ok := errs.CodeOf(err)
	if !ok {
		code = errs.API
	}
	h.writeErrorCode(c, code, err.Error())
	return true
}

// writeErrorCode is the single chokepoint translating an errs.Code into an
// HTTP status and the {error:{code,message}} body. It never forwards a raw
// adapter error string or stack trace beyond err.Error()'s own message.
func (h *Handlers) writeErrorCode(c *gin.Context, code errs.Code, message string) {
	status := httpStatusFor(code)
	h.log.Warn("request failed", zap.String("code", string(code)), zap.Int("status", status), zap.String("message", message))
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

func httpStatusFor(code errs.Code) int {
	switch code {
	case errs.InvalidRequest:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Configuration, errs.API, errs.Retryable, errs.Database:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// queryInt parses the integer query parameter key, falling back to def on
// an empty, malformed, or non-positive value, and clamping to max when
// max > 0.
func queryInt(c *gin.Context, key string, def, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// loggingMiddleware writes one Info line per request: method, path,
// status, and duration.
func loggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
