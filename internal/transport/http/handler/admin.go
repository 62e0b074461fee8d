package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/ai"
	"lawgpt/internal/app"
	"lawgpt/internal/logging"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/chunker"
	"lawgpt/internal/storage"
	"lawgpt/internal/transport/http/middleware"
	"lawgpt/internal/transport/http/response"
)

const maxSourceSize = 50 << 20 // 50 MB

type RecordKeeper interface {
	AddStat(ctx context.Context, in app.StatInput) (*model.JudicialStat, error)
	PutCase(ctx context.Context, record model.CaseRecord) (*model.CaseRecord, error)
}

type Ingester interface {
	Ingest(ctx context.Context, in app.IngestInput) (*app.IngestResult, error)
}

type IndexReloader interface {
	Reload(ctx context.Context) (int, error)
}

type QueryLogLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.QueryLog, error)
}

// AdminHandler serves the operator routes that feed and inspect the corpus.
type AdminHandler struct {
	records RecordKeeper
	ingest  Ingester
	files   storage.Storage
	index   IndexReloader
	logs    QueryLogLister
}

type AddStatRequest struct {
	Metric    string     `json:"metric" binding:"required,max=128"`
	Count     int64      `json:"count" binding:"min=0"`
	FetchedAt *time.Time `json:"fetched_at"`
}

type PutCaseRequest struct {
	CNR             string `json:"cnr" binding:"required"`
	Petitioner      string `json:"petitioner" binding:"max=512"`
	Respondent      string `json:"respondent" binding:"max=512"`
	NextHearingDate string `json:"next_hearing_date" binding:"max=32"`
	Stage           string `json:"stage" binding:"max=256"`
}

// NewAdminHandler wires the admin routes. index may be nil when the vector
// backend has no in-process index to rebuild.
func NewAdminHandler(records RecordKeeper, ingest Ingester, files storage.Storage, index IndexReloader, logs QueryLogLister) *AdminHandler {
	return &AdminHandler{records: records, ingest: ingest, files: files, index: index, logs: logs}
}

func (h *AdminHandler) AddStat(c *gin.Context) {
	var req AddStatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	in := app.StatInput{Metric: req.Metric, Count: req.Count}
	if req.FetchedAt != nil {
		in.FetchedAt = *req.FetchedAt
	}

	stat, err := h.records.AddStat(c.Request.Context(), in)
	if err != nil {
		writeAdminError(c, err, "add stat failed")
		return
	}
	response.OK(c, stat)
}

func (h *AdminHandler) PutCase(c *gin.Context) {
	var req PutCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	record, err := h.records.PutCase(c.Request.Context(), model.CaseRecord{
		CNR:             req.CNR,
		Petitioner:      req.Petitioner,
		Respondent:      req.Respondent,
		NextHearingDate: req.NextHearingDate,
		Stage:           req.Stage,
	})
	if err != nil {
		writeAdminError(c, err, "save case failed")
		return
	}
	response.OK(c, record)
}

// UploadDocument accepts a multipart form with "file" (PDF or text) and
// optional "source" and "kind", stores the file and ingests it.
func (h *AdminHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxSourceSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 50MB)")
		return
	}
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".pdf", ".txt", ".md":
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF and text files are allowed")
		return
	}
	kind, err := chunker.ParseKind(c.PostForm("kind"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	key, err := h.files.Save(ctx, file.Filename, f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store file failed")
		return
	}

	result, err := h.ingest.Ingest(ctx, app.IngestInput{
		Key:    key,
		Source: c.PostForm("source"),
		Kind:   kind,
	})
	if err != nil {
		logging.FromContext(ctx).Error("ingest upload failed",
			slog.String("key", key),
			slog.String("operator", operatorName(c)),
			slog.String("error", err.Error()),
		)
		writeAdminError(c, err, "ingest failed")
		return
	}
	response.OK(c, gin.H{"key": key, "result": result})
}

func (h *AdminHandler) ReloadIndex(c *gin.Context) {
	if h.index == nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "vector backend has no in-process index")
		return
	}
	n, err := h.index.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reload index failed")
		return
	}
	response.OK(c, gin.H{"indexed": n})
}

func (h *AdminHandler) ListQueryLogs(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	logs, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list query logs failed")
		return
	}
	response.OK(c, logs)
}

func writeAdminError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrNothingToIngest),
		errors.Is(err, app.ErrUnsupportedInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case ai.IsTransient(err):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceBusy, app.ErrServiceBusy.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func operatorName(c *gin.Context) string {
	if op := middleware.CurrentOperator(c); op != nil {
		return op.Username
	}
	return ""
}
