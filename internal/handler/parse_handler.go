package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"scoreparse/internal/domain"
	"scoreparse/internal/mapping"
	"scoreparse/internal/service"
)

// ParseHandler handles preview and confirmation of uploaded score files.
type ParseHandler struct {
	parseService service.ParseService
	maxFileSize  int64
}

// NewParseHandler creates a new ParseHandler. maxFileSize is in bytes.
func NewParseHandler(parseService service.ParseService, maxFileSize int64) *ParseHandler {
	return &ParseHandler{parseService: parseService, maxFileSize: maxFileSize}
}

// ConfirmRequest is the optional body of a confirm call.
type ConfirmRequest struct {
	// Mapping is deep-merged onto the previewed mapping.
	Mapping        map[string]interface{} `json:"mapping"`
	Enrich         bool                   `json:"enrich"`
	MaxConcurrency int                    `json:"max_concurrency" binding:"gte=0,lte=500"`
	// Example is an optional style reference for enrichment.
	Example string `json:"example"`
}

// Preview handles POST /api/v1/parse/preview
// @Summary Preview a score file
// @Description Upload an xlsx, docx or pptx file, extract its structure and infer a mapping. Creates a parse session that expires after the configured TTL.
// @Tags parse
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Score file (xlsx, docx or pptx)"
// @Success 201 {object} APIResponse{data=service.PreviewResult} "Session created"
// @Failure 400 {object} APIResponse "Missing file or unsupported type"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 502 {object} APIResponse "Reasoning provider rejected the request"
// @Failure 503 {object} APIResponse "Reasoning provider unavailable"
// @Security BearerAuth
// @Router /parse/preview [post]
func (h *ParseHandler) Preview(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}
	if _, err := domain.DetectFileType(header.Filename); err != nil {
		HandleError(c, err)
		return
	}

	reader := io.Reader(file)
	if h.maxFileSize > 0 {
		reader = io.LimitReader(file, h.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}
	if h.maxFileSize > 0 && int64(len(data)) > h.maxFileSize {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	result, err := h.parseService.Preview(c.Request.Context(), &service.PreviewInput{
		OwnerID:  owner,
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// Confirm handles POST /api/v1/parse/sessions/:id/confirm
// @Summary Confirm a parse session
// @Description Execute the previewed mapping, optionally merged with an override, and optionally enrich the records
// @Tags parse
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ConfirmRequest false "Mapping override and enrichment options"
// @Success 200 {object} APIResponse{data=service.ConfirmResult} "Records extracted"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Session belongs to another owner"
// @Failure 404 {object} APIResponse "Session not found"
// @Failure 409 {object} APIResponse "Session already confirmed"
// @Failure 410 {object} APIResponse "Session expired"
// @Failure 422 {object} APIResponse "No records extracted"
// @Security BearerAuth
// @Router /parse/sessions/{id}/confirm [post]
func (h *ParseHandler) Confirm(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.parseService.Confirm(c.Request.Context(), &service.ConfirmInput{
		OwnerID:        owner,
		SessionID:      c.Param("id"),
		Override:       mapping.Plan(req.Mapping),
		Enrich:         req.Enrich,
		MaxConcurrency: req.MaxConcurrency,
		Example:        req.Example,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// GetSession handles GET /api/v1/parse/sessions/:id
// @Summary Get a parse session
// @Tags parse
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=domain.ParseSession} "Session details"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Session belongs to another owner"
// @Failure 404 {object} APIResponse "Session not found"
// @Security BearerAuth
// @Router /parse/sessions/{id} [get]
func (h *ParseHandler) GetSession(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	session, err := h.parseService.GetSession(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, session)
}

// Records handles GET /api/v1/parse/sessions/:id/records
// @Summary List records of a confirmed session
// @Description Look up one entity by exact name, or filter by a case-insensitive name keyword
// @Tags parse
// @Produce json
// @Param id path string true "Session ID"
// @Param entity query string false "Exact entity name"
// @Param q query string false "Name keyword"
// @Success 200 {object} APIResponse{data=[]domain.NormalizedRecord} "Matching records"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Session belongs to another owner"
// @Failure 404 {object} APIResponse "Session or entity not found"
// @Failure 409 {object} APIResponse "Session not confirmed"
// @Security BearerAuth
// @Router /parse/sessions/{id}/records [get]
func (h *ParseHandler) Records(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	records, err := h.parseService.ListRecords(c.Request.Context(), owner, c.Param("id"), service.RecordQuery{
		Entity:  c.Query("entity"),
		Keyword: c.Query("q"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, records)
}
