package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/infrastructure/storage/minio"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// SharedSummary reads the summary another process archived.
type SharedSummary interface {
	Last(ctx context.Context) (*scoring.Summary, error)
}

// ReportLister lists archived run reports.
type ReportLister interface {
	List(ctx context.Context, limit int) ([]minio.ReportInfo, error)
}

// ScoringHandler exposes run summaries and fragment table statistics.  Any
// collaborator may be nil.
type ScoringHandler struct {
	local   func() *scoring.Summary
	shared  SharedSummary
	stats   fragment.Stats
	reports ReportLister
}

func NewScoringHandler(local func() *scoring.Summary, shared SharedSummary, stats fragment.Stats, reports ReportLister) *ScoringHandler {
	return &ScoringHandler{local: local, shared: shared, stats: stats, reports: reports}
}

// Summary handles GET /v1/summary.  The in-process summary wins over the
// shared one.
func (h *ScoringHandler) Summary(c *gin.Context) {
	if h.local != nil {
		if s := h.local(); s != nil {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	if h.shared != nil {
		s, err := h.shared.Last(c.Request.Context())
		if err != nil {
			writeAppError(c, err)
			return
		}
		if s != nil {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	writeAppError(c, errors.NotFound("no scoring run has finished yet"))
}

type FragmentStatsResponse struct {
	WithSugar    int64 `json:"with_sugar"`
	WithoutSugar int64 `json:"without_sugar"`
	Total        int64 `json:"total"`
}

// FragmentStats handles GET /v1/fragments/stats.
func (h *ScoringHandler) FragmentStats(c *gin.Context) {
	if h.stats == nil {
		writeAppError(c, errors.New(errors.ErrCodeServiceUnavailable, "fragment statistics not available"))
		return
	}
	counts, err := h.stats.CountByContext(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	resp := FragmentStatsResponse{
		WithSugar:    counts[fragment.WithSugar],
		WithoutSugar: counts[fragment.WithoutSugar],
	}
	resp.Total = resp.WithSugar + resp.WithoutSugar
	c.JSON(http.StatusOK, resp)
}

// Reports handles GET /v1/reports?limit=N.
func (h *ScoringHandler) Reports(c *gin.Context) {
	if h.reports == nil {
		writeAppError(c, errors.New(errors.ErrCodeServiceUnavailable, "report archive not configured"))
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeAppError(c, errors.New(errors.ErrCodeBadRequest, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}
	reports, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
