package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/models"
	"github.com/dacars/sitemapd/internal/sitemap"
	"github.com/dacars/sitemapd/internal/storage"
)

// Builder produces the current sitemap. *sitemap.Builder implements it.
type Builder interface {
	Build(ctx context.Context) (*sitemap.Result, error)
}

// Invalidator drops cached tiers by tag. *cache.Cache implements it.
type Invalidator interface {
	Invalidate(tags ...string) int
}

type Handler struct {
	builder Builder
	cache   Invalidator
	store   storage.Store
	logger  *zap.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type SitemapResponse struct {
	Records       []models.Record    `json:"records"`
	Count         int                `json:"count"`
	Source        models.EntrySource `json:"source"`
	FallbackCause string             `json:"fallbackCause,omitempty"`
	GeneratedAt   time.Time          `json:"generatedAt"`
}

type RevalidateRequest struct {
	Tags []string `json:"tags"`
}

type RevalidateResponse struct {
	Revalidated map[string]int `json:"revalidated"`
	Now         time.Time      `json:"now"`
}

// NewHandler wires the handler. store may be nil when no database is
// configured; the history endpoints then answer 503.
func NewHandler(builder Builder, cache Invalidator, store storage.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{builder: builder, cache: cache, store: store, logger: logger}
}

func (h *Handler) build(c *gin.Context) (*sitemap.Result, bool) {
	res, err := h.builder.Build(c.Request.Context())
	if err != nil {
		h.logger.Error("sitemap build failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build sitemap"})
		return nil, false
	}
	return res, true
}

func (h *Handler) SitemapXML(c *gin.Context) {
	res, ok := h.build(c)
	if !ok {
		return
	}
	out, err := sitemap.MarshalXML(res.Records)
	if err != nil {
		h.logger.Error("render sitemap", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to render sitemap"})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}

func (h *Handler) SitemapJSON(c *gin.Context) {
	res, ok := h.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SitemapResponse{
		Records:       res.Records,
		Count:         len(res.Records),
		Source:        res.Source,
		FallbackCause: res.Cause,
		GeneratedAt:   res.GeneratedAt,
	})
}

// Revalidate invalidates the requested cache tags, taken from the JSON body
// and/or repeated ?tag= parameters.
func (h *Handler) Revalidate(c *gin.Context) {
	var req RevalidateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
			return
		}
	}
	tags := append(req.Tags, c.QueryArray("tag")...)
	if len(tags) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "At least one tag is required"})
		return
	}
	for _, tag := range tags {
		if !sitemap.IsTag(tag) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown tag: " + tag})
			return
		}
	}

	removed := make(map[string]int, len(tags))
	for _, tag := range tags {
		removed[tag] += h.cache.Invalidate(tag)
	}
	c.JSON(http.StatusOK, RevalidateResponse{Revalidated: removed, Now: time.Now()})
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No database configured"})
		return false
	}
	return true
}

func (h *Handler) ListBuilds(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	builds, err := h.store.ListBuilds(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list builds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch builds"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  builds,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetBuild(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid build ID"})
		return
	}

	build, err := h.store.GetBuild(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Build not found"})
		return
	}
	if err != nil {
		h.logger.Error("get build", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch build"})
		return
	}

	c.JSON(http.StatusOK, build)
}

func (h *Handler) ListAudits(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	page, limit := getPaginationParams(c)
	failing, _ := strconv.ParseBool(c.DefaultQuery("failing", "false"))

	results, err := h.store.ListAuditResults(c.Request.Context(), storage.AuditFilter{
		FailingOnly: failing,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		h.logger.Error("list audits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch audit results"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  results,
		Page:  page,
		Limit: limit,
	})
}

func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
