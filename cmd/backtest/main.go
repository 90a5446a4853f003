// Package main is the entry point of the sector Black-Litterman backtest.
//
// A run reads a long-format return panel and a YAML run definition, rolls the
// Black-Litterman estimate and mean-variance optimization across the forecast
// schedule, backtests the tangency and utility portfolios and compares both
// with a cap-weighted benchmark:
//
//	SECTORBL_RUN_FILE=run.yaml SECTORBL_PANEL_FILE=sectors.csv backtest
//
// Logs go to stderr, reports to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aristath/sectorbl/internal/config"
	"github.com/aristath/sectorbl/internal/di"
	"github.com/aristath/sectorbl/internal/modules/performance"
	"github.com/aristath/sectorbl/internal/panelio"
	"github.com/aristath/sectorbl/internal/pipeline"
	"github.com/aristath/sectorbl/internal/runfile"
	"github.com/aristath/sectorbl/pkg/logger"
)

// main orchestrates one study:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes logging system
// 3. Loads the run definition and the return panel
// 4. Wires the stages via DI container
// 5. Executes the pipeline, cancelled on SIGINT/SIGTERM
// 6. Prints weights and the benchmark comparison of every method
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	def, err := runfile.Load(cfg.RunFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RunFile).Msg("Failed to load run definition")
	}
	if len(cfg.Universe) > 0 {
		def.Universe = cfg.Universe
	}
	cfg.Apply(&def.Params)

	panel, err := panelio.LoadPanel(cfg.PanelFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PanelFile).Msg("Failed to load return panel")
	}
	log.Info().
		Str("run", def.Name).
		Int("periods", panel.Len()).
		Int("assets", len(panel.Assets())).
		Msg("Return panel loaded")

	container, err := di.Wire(def.Params, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Cancelling the context stops outstanding periods
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome, err := pipeline.New(container, log).Execute(ctx, panel, def)
	if err != nil {
		log.Error().Err(err).Msg("Study failed")
		stop()
		os.Exit(1)
	}

	for _, m := range outcome.Methods {
		fmt.Println(formatWeights(m))
		fmt.Println(performance.FormatComparison(strings.ToUpper(string(m.Method))+" vs CAP-WEIGHTED BENCHMARK", m.Comparison))
	}

	log.Info().
		Str("run_id", outcome.Run.ID).
		Int("failed_periods", len(outcome.Run.Failed())).
		Dur("duration", outcome.Run.Duration).
		Msg("Study completed")
}

// formatWeights renders one row of weights per period.
func formatWeights(m pipeline.MethodOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s weights\n", strings.ToUpper(string(m.Method)))
	if len(m.Portfolios) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "%-12s", "period")
	for _, a := range m.Portfolios[0].Assets {
		fmt.Fprintf(&b, " %12s", a)
	}
	b.WriteString("\n")

	for _, p := range m.Portfolios {
		fmt.Fprintf(&b, "%-12s", p.Period)
		weights := p.WeightMap()
		for _, a := range m.Portfolios[0].Assets {
			if w, ok := weights[a]; ok {
				fmt.Fprintf(&b, " %12.4f", w)
			} else {
				fmt.Fprintf(&b, " %12s", "-")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
