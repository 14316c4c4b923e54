package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"scoreparse/internal/csvexport"
	"scoreparse/internal/domain"
	"scoreparse/internal/service"
)

// RecordsHandler enriches and exports normalized records.
type RecordsHandler struct {
	enricher service.BatchEnricher
	now      func() time.Time
}

// NewRecordsHandler creates a new RecordsHandler. enricher may be nil when
// enrichment is not configured.
func NewRecordsHandler(enricher service.BatchEnricher) *RecordsHandler {
	return &RecordsHandler{enricher: enricher, now: time.Now}
}

// RecordInput is one record submitted for enrichment. A missing total is
// repaired from the item deductions.
type RecordInput struct {
	EntityName string        `json:"entity_name" binding:"required"`
	Items      []domain.Item `json:"items"`
	Total      *float64      `json:"total"`
}

// EnrichRequest is the body of an enrich call.
type EnrichRequest struct {
	Records        []RecordInput `json:"records" binding:"required,min=1,dive"`
	MaxConcurrency int           `json:"max_concurrency" binding:"gte=0,lte=500"`
	// Example is an optional style reference for the generated analysis.
	Example string `json:"example"`
}

// EnrichResponse is returned by Enrich.
type EnrichResponse struct {
	Records []domain.EnrichedRecord `json:"records"`
	Usage   domain.Usage            `json:"usage"`
}

// ExportRequest is the body of an export call. Plain normalized records
// decode into EnrichedRecord with empty analysis fields.
type ExportRequest struct {
	Name         string                  `json:"name"`
	WithAnalysis bool                    `json:"with_analysis"`
	Records      []domain.EnrichedRecord `json:"records" binding:"required,min=1"`
}

// Enrich handles POST /api/v1/records/enrich
// @Summary Enrich records with analysis
// @Description Generate per-record analysis and suggestions. Records whose analysis fails are returned with failed=true.
// @Tags records
// @Accept json
// @Produce json
// @Param request body EnrichRequest true "Records to enrich"
// @Success 200 {object} APIResponse{data=EnrichResponse} "Enriched records and token usage"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 503 {object} APIResponse "Enrichment not configured"
// @Security BearerAuth
// @Router /records/enrich [post]
func (h *RecordsHandler) Enrich(c *gin.Context) {
	if _, ok := ownerID(c); !ok {
		return
	}
	if h.enricher == nil {
		RespondError(c, http.StatusServiceUnavailable, "ENRICHMENT_DISABLED", "record enrichment is not configured")
		return
	}

	var req EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	records := make([]domain.NormalizedRecord, len(req.Records))
	for i, r := range req.Records {
		name := strings.TrimSpace(r.EntityName)
		if name == "" {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("records[%d].entity_name is required", i))
			return
		}
		records[i] = domain.NewRecord(name, r.Items, r.Total)
	}

	enriched, usage := h.enricher.Enrich(c.Request.Context(), records, service.EnrichOptions{
		MaxConcurrency: req.MaxConcurrency,
		Example:        req.Example,
	})
	RespondOK(c, EnrichResponse{Records: enriched, Usage: usage})
}

// Export handles POST /api/v1/records/export
// @Summary Export records as CSV
// @Description Download records, optionally with their analysis columns, as a UTF-8 CSV with BOM
// @Tags records
// @Accept json
// @Produce text/csv
// @Param request body ExportRequest true "Records to export"
// @Success 200 {file} file "CSV file"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Security BearerAuth
// @Router /records/export [post]
func (h *RecordsHandler) Export(c *gin.Context) {
	if _, ok := ownerID(c); !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+csvexport.BuildFilename(req.Name, h.now())+`"`)
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer, req.WithAnalysis)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteEnriched(req.Records); err != nil {
		return
	}
	w.Flush()
}
