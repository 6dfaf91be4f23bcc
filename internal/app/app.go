package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"critreport/internal/config"
	"critreport/internal/httpx"
	slackdelivery "critreport/internal/integrations/slack"
	"critreport/internal/integrations/telegram"
	"critreport/internal/job"
	"critreport/internal/logging"
	"critreport/internal/normalize"
	"critreport/internal/reference"
	"critreport/internal/schedule"
	"critreport/internal/source"
	"critreport/internal/state"
	"critreport/internal/storage/sqlite"

	"github.com/slack-go/slack"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Main runs the job once, or on its cron schedule, and always returns
// normally so the process exits 0.
func Main() {
	flagSet := pflag.NewFlagSet("critreport", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	once := flagSet.Bool("once", false, "run a single batch even when a schedule is configured")
	dryRun := flagSet.Bool("dry-run", false, "print the report instead of sending it; the panorama is not saved")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			log.Printf("invalid arguments: %v", err)
		}
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Config error, job not started: %v", err)
		return
	}

	logFile := cfg.LogFile
	if config.Disabled(logFile) {
		logFile = ""
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, logFile)
	if err != nil {
		log.Printf("Logger setup failed (%v), logging to stdout only", err)
		logger, closeLog, _ = logging.New("info", "")
	}
	defer closeLog()

	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Info("config loaded",
		zap.String("config_file", cfg.LoadedFrom),
		zap.String("source_driver", cfg.SourceDriver),
		zap.String("reference_path", cfg.ReferencePath),
		zap.String("delivery_provider", cfg.DeliveryProvider),
		zap.String("state_path", cfg.StatePath),
		zap.String("schedule", cfg.Schedule),
		zap.String("timezone", cfg.Location.String()),
		zap.Bool("simulate_on_failure", cfg.SimulateOnFailure),
		zap.Duration("external_http_timeout", appliedHTTPTimeout),
	)

	var history *sql.DB
	if !config.Disabled(cfg.HistoryDBPath) {
		history, err = sqlite.InitDB(cfg.HistoryDBPath)
		if err != nil {
			logger.Error("run history unavailable", zap.String("path", cfg.HistoryDBPath), zap.Error(err))
			history = nil
		} else {
			defer history.Close()
			logRecentTrend(logger, history, time.Now().AddDate(0, 0, -7), cfg.Location)
		}
	}

	runner := NewRunner(cfg, logger, history)
	runner.DryRun = *dryRun

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule == "" || *once {
		runner.Run(ctx)
		return
	}
	if err := schedule.Run(ctx, cfg.Schedule, cfg.Location, logger, func(ctx context.Context) {
		runner.Run(ctx)
	}); err != nil {
		logger.Error("scheduler disabled", zap.Error(err))
	}
}

// NewRunner wires every collaborator the job needs from cfg.
func NewRunner(cfg config.Config, logger *zap.Logger, history *sql.DB) *job.Runner {
	query, err := source.LoadQuery(cfg.SourceQueryPath)
	if err != nil {
		logger.Error("falling back to built-in live query", zap.Error(err))
		query = source.DefaultQuery()
	}

	reportDir := cfg.ReportOutputDir
	if config.Disabled(reportDir) {
		reportDir = ""
	}

	return &job.Runner{
		Live: &source.SQL{
			Driver:  cfg.SourceDriver,
			DSN:     cfg.SourceDSN,
			Query:   query,
			Timeout: cfg.SourceQueryTimeout(),
			Log:     logger,
		},
		Reference:  reference.Workbook{Path: cfg.ReferencePath, Sheet: cfg.ReferenceSheet},
		Normalizer: normalize.New(cfg.Columns.ByRole(), cfg.Location, logger),
		Layout: reference.Layout{
			ClusterColumn:      cfg.ReferenceClusterColumn,
			CriticalityPattern: cfg.ReferenceCriticalityPattern,
			CriticalMarker:     cfg.ReferenceCriticalMarker,
		},
		State:             state.NewFile(cfg.StatePath, logger),
		Deliverer:         newDeliverer(cfg, logger),
		History:           history,
		ReportDir:         reportDir,
		Location:          cfg.Location,
		SimulateOnFailure: cfg.SimulateOnFailure,
		NotifyWhenEmpty:   cfg.NotifyWhenEmpty,
		Log:               logger,
	}
}

func logRecentTrend(logger *zap.Logger, history *sql.DB, since time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	last, err := sqlite.GetRecentRuns(history, since, 1)
	if err != nil {
		logger.Warn("could not read run history", zap.Error(err))
		return
	}
	if len(last) == 1 {
		logger.Info("last run",
			zap.String("run_id", last[0].ID),
			zap.Time("started_at", last[0].StartedAt.In(loc)),
			zap.String("outcome", last[0].Outcome),
			zap.Bool("delivered", last[0].Delivered),
		)
	}
	trend, err := sqlite.GetDailyTrend(history, since, loc)
	if err != nil {
		logger.Warn("could not read run history", zap.Error(err))
		return
	}
	for _, day := range trend {
		logger.Info("recent runs",
			zap.String("day", day.Day),
			zap.Int("runs", day.Runs),
			zap.Int("max_matched", day.MaxMatched),
			zap.Int("delivered", day.Delivered),
		)
	}
}

func newDeliverer(cfg config.Config, logger *zap.Logger) job.Deliverer {
	if !cfg.DeliveryConfigured() {
		logger.Error("delivery credentials missing, messages will not be sent", zap.String("provider", cfg.DeliveryProvider))
		return nil
	}
	switch cfg.DeliveryProvider {
	case config.ProviderSlack:
		return slackdelivery.New(cfg.SlackBotToken, cfg.SlackChannelID, slack.OptionHTTPClient(httpx.Client()))
	default:
		return &telegram.Sender{
			APIURL: cfg.TelegramAPIURL,
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
			Client: httpx.Client(),
		}
	}
}
