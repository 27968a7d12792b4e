package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/core"
	"go.uber.org/zap"
)

const (
	reportsRoot     = "reports"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrNoSnapshots is returned by Latest when nothing has been archived.
var ErrNoSnapshots = errors.New("no report snapshots archived")

// Snapshot describes one archived report.
type Snapshot struct {
	Path         string    `json:"path"`
	WorkbookPath string    `json:"workbookPath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Archiver writes report snapshots to a Storage backend under
// reports/YYYY/MM/DD/<unix>-<label>.json.
type Archiver struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchiver creates an archiver over storage.
func NewArchiver(storage Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{storage: storage, logger: logger, now: time.Now}
}

// SaveReport archives the report as JSON. A non-empty workbook is stored
// next to it with the same name and an .xlsx extension.
func (a *Archiver) SaveReport(ctx context.Context, report analytics.Report, label string, workbook []byte) (Snapshot, error) {
	created := a.now().UTC()
	base := path.Join(reportsRoot, created.Format("2006/01/02"),
		fmt.Sprintf("%d-%s", created.Unix(), sanitizeLabel(label)))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Snapshot{}, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encoding report: %w", err))
	}

	snap := Snapshot{Path: base + ".json", CreatedAt: created}
	if len(workbook) > 0 {
		snap.WorkbookPath = base + ".xlsx"
		if err := a.storage.Write(ctx, snap.WorkbookPath, workbook); err != nil {
			return Snapshot{}, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", snap.WorkbookPath, err))
		}
	}
	if err := a.storage.Write(ctx, snap.Path, data); err != nil {
		return Snapshot{}, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", snap.Path, err))
	}

	a.logger.Info("report archived",
		zap.String("path", snap.Path),
		zap.Bool("workbook", snap.WorkbookPath != ""),
		zap.Int("trades", report.TotalTrades),
	)
	return snap, nil
}

// Latest returns the most recently archived report and its path.
func (a *Archiver) Latest(ctx context.Context) (*analytics.Report, string, error) {
	paths, err := a.storage.List(ctx, reportsRoot)
	if err != nil {
		return nil, "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("listing snapshots: %w", err))
	}

	snapshots := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			snapshots = append(snapshots, p)
		}
	}
	if len(snapshots) == 0 {
		return nil, "", core.WrapError(core.ErrArchiveFailed, ErrNoSnapshots)
	}

	// Date directories and fixed-width unix seconds sort lexically.
	sort.Strings(snapshots)
	latest := snapshots[len(snapshots)-1]

	data, err := a.storage.Read(ctx, latest)
	if err != nil {
		return nil, "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("reading %s: %w", latest, err))
	}

	var report analytics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("decoding %s: %w", latest, err))
	}
	return &report, latest, nil
}

func sanitizeLabel(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "report"
	}
	return out
}
