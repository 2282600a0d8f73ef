package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/auth"
	"github.com/sightline9/a11y-cli/internal/browser"
	"github.com/sightline9/a11y-cli/internal/observability"
	"github.com/sightline9/a11y-cli/internal/orchestrator"
	"github.com/sightline9/a11y-cli/internal/reporting"
)

// newAuditCmd creates the `audit` command: the sequential multi-URL run.
func newAuditCmd(v *viper.Viper) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit [urls...]",
		Short: "Audits one or more pages and writes a normalized JSON report",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlag("audit.output", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return v.BindPFlag("audit.max_pages", cmd.Flags().Lookup("max-pages"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := configFromContext(ctx)
			cfg.Audit.Output = v.GetString("audit.output")
			cfg.Audit.MaxPages = v.GetInt("audit.max_pages")

			urls := normalizeURLs(args)
			if len(urls) > cfg.Audit.MaxPages {
				return fmt.Errorf("at most %d pages per audit (got %d)", cfg.Audit.MaxPages, len(urls))
			}

			authMgr, err := auth.NewStaticManager(cfg.Auth, logger)
			if err != nil {
				return fmt.Errorf("initializing auth: %w", err)
			}

			mgr, err := browser.NewManager(ctx, logger, cfg.Browser)
			if err != nil {
				return err
			}
			defer mgr.Shutdown()

			pages := orchestrator.NewPageAnalyzer(cfg, logger, mgr, authMgr)
			batch := orchestrator.NewBatch(logger, pages)

			report, err := batch.AnalyzeURLs(ctx, urls, consoleEmitter(logger))
			if err != nil {
				return err
			}

			reporter, err := reporting.New(cfg.Audit.Output)
			if err != nil {
				return err
			}
			defer reporter.Close()
			if err := reporter.Write(report); err != nil {
				return err
			}

			logger.Info("Audit complete",
				zap.Int("pages", len(report.Pages)),
				zap.Int("violations", report.Summary.TotalViolations),
				zap.Int("passes", report.Summary.TotalPasses),
				zap.Int("incomplete", report.Summary.TotalIncomplete),
			)
			return nil
		},
	}

	auditCmd.Flags().StringP("output", "o", "", "report output path (default stdout)")
	auditCmd.Flags().Int("max-pages", 4, "maximum URLs per audit")
	return auditCmd
}

// consoleEmitter mirrors the progress stream into the structured log; a
// server frontend would forward the same events over SSE instead.
func consoleEmitter(logger *zap.Logger) schemas.Emitter {
	logger = logger.Named("progress")
	return func(ev schemas.Event) {
		switch e := ev.(type) {
		case schemas.PageProgressEvent:
			logger.Info("Page "+string(e.Status),
				zap.Int("page", e.PageIndex+1),
				zap.Int("of", e.TotalPages),
				zap.String("url", e.PageURL),
			)
		case schemas.ProgressEvent:
			logger.Debug(e.StepName, zap.Int("step", e.Step), zap.Int("total", e.Total))
		case schemas.ViolationEvent:
			logger.Debug("Violation",
				zap.String("rule", e.Rule),
				zap.String("impact", string(e.Impact)),
				zap.Int("count", e.Count),
			)
		case schemas.SessionExpiredEvent:
			logger.Warn(e.Message)
		case schemas.ErrorEvent:
			logger.Error(e.Message, zap.String("code", e.Code))
		case schemas.LogEvent:
			logger.Debug(e.Message)
		}
	}
}

// normalizeURLs defaults bare hosts to https.
func normalizeURLs(args []string) []string {
	urls := make([]string, len(args))
	for i, arg := range args {
		if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
			arg = "https://" + arg
		}
		urls[i] = arg
	}
	return urls
}
