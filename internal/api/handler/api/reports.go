package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/api/response"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/export"
	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/notifier"
	"github.com/newthinker/tradelog/internal/storage/archive"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SnapshotRequest is the optional request body for archiving a report.
type SnapshotRequest struct {
	Label    string `json:"label" validate:"max=64"`
	Workbook bool   `json:"workbook"`
}

// ReportHandler exports and archives reports.
type ReportHandler struct {
	store     trade.Store
	engine    *analytics.Engine
	archiver  *archive.Archiver
	validator *journal.Validator
	metrics   *metrics.Registry
	notifier  *notifier.Registry
	logger    *zap.Logger
}

// NewReportHandler creates a new report handler. archiver, reg and notify
// may be nil.
func NewReportHandler(
	store trade.Store,
	engine *analytics.Engine,
	archiver *archive.Archiver,
	validator *journal.Validator,
	reg *metrics.Registry,
	notify *notifier.Registry,
	logger *zap.Logger,
) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		store:     store,
		engine:    engine,
		archiver:  archiver,
		validator: validator,
		metrics:   reg,
		notifier:  notify,
		logger:    logger,
	}
}

func (h *ReportHandler) report(r *http.Request) (analytics.Report, error) {
	filter, err := listFilter(r, false)
	if err != nil {
		return analytics.Report{}, err
	}
	trades, err := h.store.List(r.Context(), filter)
	if err != nil {
		return analytics.Report{}, err
	}

	start := time.Now()
	engine, err := h.engine.WithAccountCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		return analytics.Report{}, err
	}
	report := engine.Report(trades)
	h.metrics.RecordReport(time.Since(start).Seconds())
	return report, nil
}

// Export streams the report as an Excel workbook.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	report, err := h.report(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report, report.Currency); err != nil {
		response.Fail(w, err)
		return
	}

	filename := fmt.Sprintf("tradelog-report-%s.xlsx", report.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Snapshot archives the current report.
func (h *ReportHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.Fail(w, core.WrapError(core.ErrArchiveFailed, errors.New("archive not configured")))
		return
	}

	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if err := h.validator.Request(req); err != nil {
		response.Fail(w, err)
		return
	}

	report, err := h.report(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	var workbook []byte
	if req.Workbook {
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, report, report.Currency); err != nil {
			response.Fail(w, err)
			return
		}
		workbook = buf.Bytes()
	}

	snap, err := h.archiver.SaveReport(r.Context(), report, req.Label, workbook)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if h.notifier.Len() > 0 {
		go h.notifyArchived(snap)
	}
	response.JSON(w, http.StatusCreated, snap)
}

func (h *ReportHandler) notifyArchived(snap archive.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	errs := h.notifier.NotifyAll(ctx, notifier.Event{
		Type: notifier.EventReportArchived,
		Data: snap,
	})
	for name, err := range errs {
		h.logger.Warn("notification failed", zap.String("notifier", name), zap.String("path", snap.Path), zap.Error(err))
	}
}

// Latest returns the most recently archived report.
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.Fail(w, core.WrapError(core.ErrArchiveFailed, errors.New("archive not configured")))
		return
	}

	report, path, err := h.archiver.Latest(r.Context())
	if errors.Is(err, archive.ErrNoSnapshots) {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"path":   path,
		"report": report,
	})
}
