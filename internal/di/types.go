/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds one instance of every estimation stage. It is built
 * once by Wire() and shared by the pipeline; every stage is stateless apart
 * from its logger, so the container is safe for concurrent periods.
 */
package di

import (
	"github.com/aristath/sectorbl/internal/modules/backtest"
	"github.com/aristath/sectorbl/internal/modules/blacklitterman"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/aristath/sectorbl/internal/modules/optimization"
	"github.com/aristath/sectorbl/internal/modules/scenario"
)

/**
 * Container holds all stage components.
 *
 * Architecture:
 * - Estimation: sample covariance and the equilibrium prior
 * - Posterior: Black-Litterman blending of prior and views
 * - Optimization: closed-form (or long-only) mean-variance weights
 * - Scenario: the rolling engine composing the stages per period
 * - Backtest: realized replay of the weight series
 */
type Container struct {
	// Estimation
	Covariance  *estimation.CovarianceEstimator
	Equilibrium *estimation.EquilibriumEstimator

	// Posterior
	Posterior *blacklitterman.Estimator

	// Optimization
	Optimizer *optimization.MVOptimizer

	// Orchestration
	Scenario *scenario.Engine
	Backtest *backtest.Engine
}
