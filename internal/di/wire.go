// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/backtest"
	"github.com/aristath/sectorbl/internal/modules/blacklitterman"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/aristath/sectorbl/internal/modules/optimization"
	"github.com/aristath/sectorbl/internal/modules/scenario"
	"github.com/rs/zerolog"
)

// Wire initializes all stages and returns a fully configured container.
// Order of operations:
// 1. Validate model parameters
// 2. Initialize estimation stages
// 3. Initialize the optimizer with the configured condition limit
// 4. Compose the rolling and backtest engines
func Wire(params domain.ModelParams, log zerolog.Logger) (*Container, error) {
	// Step 1: Validate parameters
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model parameters: %w", err)
	}

	// Step 2: Estimation stages
	container := &Container{
		Covariance:  estimation.NewCovarianceEstimator(log),
		Equilibrium: estimation.NewEquilibriumEstimator(log),
		Posterior:   blacklitterman.NewEstimator(log),
	}

	// Step 3: Optimizer
	container.Optimizer = optimization.NewMVOptimizer(params.MaxCondition, log)

	// Step 4: Engines
	container.Scenario = scenario.NewEngine(
		container.Covariance,
		container.Equilibrium,
		container.Posterior,
		container.Optimizer,
		log,
	)
	container.Scenario.SetEventEmitter(scenario.NewLogEmitter(log))
	container.Backtest = backtest.NewEngine(log)

	log.Debug().Msg("Dependency injection wiring completed successfully")

	return container, nil
}
