// Package job runs one pass of the critical-cluster report: fetch both
// sources, reconcile, format, deliver and record the run.
package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"critreport/internal/domain"
	"critreport/internal/normalize"
	"critreport/internal/reconcile"
	"critreport/internal/reference"
	"critreport/internal/report"
	"critreport/internal/source"
	"critreport/internal/state"
	"critreport/internal/storage/sqlite"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	OutcomeReported        = "reported"
	OutcomeNothingCritical = "nothing_critical"
	OutcomeUnavailable     = "unavailable"
)

type LiveSource interface {
	Fetch(ctx context.Context) (*domain.Table, error)
}

type ReferenceSource interface {
	Load() (*domain.Table, error)
}

type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, text string) error
}

type Runner struct {
	Live       LiveSource
	Reference  ReferenceSource
	Normalizer *normalize.Normalizer
	Layout     reference.Layout
	State      state.Tracker
	Deliverer  Deliverer // nil: nothing is sent
	History    *sql.DB   // nil: runs are not recorded
	ReportDir  string    // empty: reports are not archived
	Location   *time.Location

	SimulateOnFailure bool
	NotifyWhenEmpty   bool
	DryRun            bool
	Out               io.Writer // receives the report on dry runs

	Log   *zap.Logger
	Now   func() time.Time
	NewID func() string
}

type Result struct {
	RunID         string
	LiveRows      int
	AllowListSize int
	Matched       int
	Outcome       string
	Report        string
	ReportPath    string
	Delivered     bool
	DeliveryErr   error
}

// Run executes one batch. It never returns an error: every external
// failure is logged and degrades to an absent or empty result.
func (r *Runner) Run(ctx context.Context) Result {
	now := r.now()
	res := Result{RunID: r.newID()}
	log := r.logger().With(zap.String("run_id", res.RunID))
	log.Info("--- job started ---")

	batch := r.fetchLive(ctx, log, now)
	res.LiveRows = len(batchRecords(batch))

	allow := r.loadAllowList(log)
	res.AllowListSize = len(allow)

	matched := reconcile.Join(batch, allow)
	switch {
	case matched == nil:
		res.Outcome = OutcomeUnavailable
		log.Warn("could not reconcile: live data or reference list unavailable")
	case matched.Empty():
		res.Outcome = OutcomeNothingCritical
		log.Info("reconciled", zap.Int("matched", 0))
	default:
		res.Outcome = OutcomeReported
		res.Matched = matched.Len()
		log.Info("reconciled", zap.Int("matched", res.Matched))
	}

	tracker := &recordingTracker{Tracker: r.State, readOnly: r.DryRun}
	if tracker.Tracker == nil {
		tracker.Tracker = discardTracker{}
	}

	switch res.Outcome {
	case OutcomeReported:
		f := report.NewFormatter(tracker, r.Location, log)
		f.Now = func() time.Time { return now }
		res.Report = f.Format(matched)
		res.ReportPath = r.archive(log, res.Report, now)
		r.deliver(ctx, log, &res)
	case OutcomeNothingCritical:
		if r.NotifyWhenEmpty {
			res.Report = report.NothingCritical
			r.deliver(ctx, log, &res)
		} else {
			log.Info("no critical occurrences, message not sent")
		}
	}

	r.record(log, res, tracker.previous, now)
	log.Info("--- job finished ---", zap.String("outcome", res.Outcome), zap.Bool("delivered", res.Delivered))
	return res
}

func (r *Runner) fetchLive(ctx context.Context, log *zap.Logger, now time.Time) *domain.LiveBatch {
	log.Info("fetching live occurrences")
	var t *domain.Table
	if r.Live == nil {
		log.Error("no live source configured")
	} else {
		var err error
		t, err = r.Live.Fetch(ctx)
		if err != nil {
			var connErr *domain.ConnectionError
			if errors.As(err, &connErr) && r.SimulateOnFailure {
				log.Warn("live source unreachable, using simulated data", zap.Error(err))
				t = source.Simulated(now)
			} else {
				log.Error("live source failed", zap.Error(err))
				t = nil
			}
		}
	}
	n := r.Normalizer
	if n == nil {
		n = normalize.New(nil, r.Location, log)
	}
	return n.Records(t)
}

func (r *Runner) loadAllowList(log *zap.Logger) domain.AllowList {
	log.Info("loading critical cluster list")
	if r.Reference == nil {
		log.Error("no reference source configured")
		return nil
	}
	t, err := r.Reference.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && r.SimulateOnFailure {
			log.Warn("reference workbook not found, using simulated list", zap.Error(err))
			t = reference.Simulated()
		} else {
			log.Error("reference list failed", zap.Error(err))
			return nil
		}
	}
	allow, err := reference.Filter(t, r.Layout, log)
	if err != nil {
		log.Error("reference list rejected", zap.Error(err))
		return nil
	}
	return allow
}

func (r *Runner) archive(log *zap.Logger, text string, now time.Time) string {
	if r.ReportDir == "" || r.DryRun {
		return ""
	}
	path, err := report.WriteReportFile(text, r.ReportDir, now)
	if err != nil {
		log.Error("failed to archive report", zap.String("dir", r.ReportDir), zap.Error(err))
		return ""
	}
	log.Debug("report archived", zap.String("path", path))
	return path
}

func (r *Runner) deliver(ctx context.Context, log *zap.Logger, res *Result) {
	if r.DryRun {
		out := r.Out
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, res.Report)
		log.Info("dry run, message printed instead of sent")
		return
	}
	if r.Deliverer == nil {
		res.DeliveryErr = &domain.DeliveryError{Channel: "none", Err: errors.New("delivery credentials missing")}
		log.Error("message not sent", zap.Error(res.DeliveryErr))
		return
	}
	if err := r.Deliverer.Deliver(ctx, res.Report); err != nil {
		res.DeliveryErr = err
		log.Error("message not sent",
			zap.String("channel", r.Deliverer.Name()),
			zap.Int("message_chars", utf8.RuneCountInString(res.Report)),
			zap.Error(err),
		)
		return
	}
	res.Delivered = true
	log.Info("message sent", zap.String("channel", r.Deliverer.Name()))
}

func (r *Runner) record(log *zap.Logger, res Result, previous int, started time.Time) {
	if r.History == nil {
		return
	}
	run := sqlite.Run{
		ID:            res.RunID,
		StartedAt:     started,
		FinishedAt:    r.now(),
		LiveRows:      res.LiveRows,
		AllowListSize: res.AllowListSize,
		Matched:       res.Matched,
		PreviousTotal: previous,
		Outcome:       res.Outcome,
		Delivered:     res.Delivered,
		ReportPath:    res.ReportPath,
	}
	if res.DeliveryErr != nil {
		run.DeliveryError = res.DeliveryErr.Error()
	}
	if err := sqlite.InsertRun(r.History, run); err != nil {
		log.Error("failed to record run", zap.Error(err))
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

func batchRecords(b *domain.LiveBatch) []domain.LiveRecord {
	if b == nil {
		return nil
	}
	return b.Records
}

// recordingTracker remembers the previous total handed to the formatter and
// drops saves on dry runs.
type recordingTracker struct {
	state.Tracker
	previous int
	readOnly bool
}

func (t *recordingTracker) ReadPrevious() int {
	t.previous = t.Tracker.ReadPrevious()
	return t.previous
}

func (t *recordingTracker) SaveCurrent(total int) {
	if t.readOnly {
		return
	}
	t.Tracker.SaveCurrent(total)
}

type discardTracker struct{}

func (discardTracker) ReadPrevious() int { return 0 }
func (discardTracker) SaveCurrent(int)   {}
