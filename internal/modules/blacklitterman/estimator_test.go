package blacklitterman

import (
	"errors"
	"testing"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	canonicalAssets = []string{"A", "B", "C"}
	canonicalSigma  = []float64{
		0.04, 0.012, 0.006,
		0.012, 0.0225, 0.009,
		0.006, 0.009, 0.016,
	}
	canonicalPrior = []float64{0.0742, 0.04116, 0.02352}
)

func canonicalViews(omega []float64) domain.ViewSet {
	return domain.ViewSet{
		Assets: canonicalAssets,
		P:      mat.NewDense(2, 3, []float64{1, -1, 0, 0, 0, 1}),
		Q:      []float64{0.02, 0.03},
		Omega:  mat.NewDense(2, 2, omega),
	}
}

func assertSliceInDelta(t *testing.T, expected, actual []float64, delta float64) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], delta, "index %d", i)
	}
}

func TestPosterior_CanonicalProportionalOmega(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)

	builder := NewViewBuilder()
	builder.Proportional = true
	views, err := builder.Build([]View{
		{Type: ViewRelative, Outperformer: "A", Underperformer: "B", Return: 0.02},
		{Type: ViewAbsolute, Asset: "C", Return: 0.03},
	})
	require.NoError(t, err)

	post, err := est.Posterior(canonicalPrior, cov, 0.05, views, domain.DefaultModelParams())
	require.NoError(t, err)

	assert.Equal(t, canonicalAssets, post.Assets)
	assert.Equal(t, 2, post.Views)
	assertSliceInDelta(t, canonicalPrior, post.Prior, 1e-15)
	assertSliceInDelta(t, []float64{0.070786362525, 0.044547323829, 0.027003079430}, post.Mean, 1e-9)

	expectedCov := []float64{
		0.001412057026, 0.000695376782, 0.000177922607,
		0.000695376782, 0.000937668024, 0.000215560081,
		0.000177922607, 0.000215560081, 0.000398533605,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, expectedCov[i*3+j], post.Covariance.At(i, j), 1e-9)
		}
	}
}

func TestPosterior_ExplicitOmega(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)

	post, err := est.Posterior(canonicalPrior, cov, 0.05, canonicalViews([]float64{0.001, 0, 0, 0.002}), domain.DefaultModelParams())
	require.NoError(t, err)
	assertSliceInDelta(t, []float64{0.068732402816, 0.044381010101, 0.025837649219}, post.Mean, 1e-9)
}

func TestPosterior_ViewColumnsAlignedByIdentifier(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)

	reordered := domain.ViewSet{
		Assets: []string{"C", "B", "A", "UNUSED"},
		P:      mat.NewDense(2, 4, []float64{0, -1, 1, 0, 1, 0, 0, 0}),
		Q:      []float64{0.02, 0.03},
		Omega:  mat.NewDense(2, 2, []float64{0.001, 0, 0, 0.002}),
	}

	post, err := est.Posterior(canonicalPrior, cov, 0.05, reordered, domain.DefaultModelParams())
	require.NoError(t, err)
	assertSliceInDelta(t, []float64{0.068732402816, 0.044381010101, 0.025837649219}, post.Mean, 1e-9)
}

func TestPosterior_NoViewsReturnsPriorExactly(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)

	post, err := est.Posterior(canonicalPrior, cov, 0.05, domain.ViewSet{}, domain.DefaultModelParams())
	require.NoError(t, err)

	assert.Equal(t, canonicalPrior, post.Mean)
	assert.Equal(t, 0, post.Views)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 0.05*canonicalSigma[i*3+j], post.Covariance.At(i, j), 1e-18)
		}
	}

	post.Mean[0] = 99
	assert.Equal(t, 0.0742, canonicalPrior[0], "prior must not be aliased")
}

func TestPosterior_LargeUncertaintyConvergesToPrior(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)

	post, err := est.Posterior(canonicalPrior, cov, 0.05, canonicalViews([]float64{1e6, 0, 0, 1e6}), domain.DefaultModelParams())
	require.NoError(t, err)
	assertSliceInDelta(t, canonicalPrior, post.Mean, 1e-8)
}

func TestPosterior_LargeUncertaintyDropsOneView(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)
	params := domain.DefaultModelParams()

	onlySecond := domain.ViewSet{
		Assets: canonicalAssets,
		P:      mat.NewDense(1, 3, []float64{0, 0, 1}),
		Q:      []float64{0.03},
		Omega:  mat.NewDense(1, 1, []float64{0.002}),
	}
	expected, err := est.Posterior(canonicalPrior, cov, 0.05, onlySecond, params)
	require.NoError(t, err)

	var previous float64
	for i, omega := range []float64{1e-2, 1, 1e4} {
		post, err := est.Posterior(canonicalPrior, cov, 0.05, canonicalViews([]float64{omega, 0, 0, 0.002}), params)
		require.NoError(t, err)

		gap := 0.0
		for j := range post.Mean {
			d := post.Mean[j] - expected.Mean[j]
			gap += d * d
		}
		if i > 0 {
			assert.Less(t, gap, previous, "gap must shrink as Ω grows")
		}
		previous = gap
	}
	assert.Less(t, previous, 1e-14)
}

func TestPosterior_SingularMatrices(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	params := domain.DefaultModelParams()

	t.Run("zero view variance", func(t *testing.T) {
		cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)
		_, err := est.Posterior(canonicalPrior, cov, 0.05, canonicalViews([]float64{0, 0, 0, 0.002}), params)

		var target *domain.SingularMatrixError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "Ω", target.Matrix)
	})

	t.Run("singular full omega", func(t *testing.T) {
		cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)
		_, err := est.Posterior(canonicalPrior, cov, 0.05, canonicalViews([]float64{0.001, 0.001, 0.001, 0.001}), params)

		var target *domain.SingularMatrixError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "Ω", target.Matrix)
	})

	t.Run("singular tau sigma", func(t *testing.T) {
		cov := estimation.NewCovarianceMatrix([]string{"A", "B"}, []float64{0.01, 0.01, 0.01, 0.01})
		views := domain.ViewSet{
			Assets: []string{"A"},
			P:      mat.NewDense(1, 1, []float64{1}),
			Q:      []float64{0.01},
			Omega:  mat.NewDense(1, 1, []float64{0.001}),
		}

		_, err := est.Posterior([]float64{0.01, 0.01}, cov, 0.05, views, params)
		var target *domain.SingularMatrixError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "τΣ", target.Matrix)

		_, err = est.Posterior([]float64{0.01, 0.01}, cov, 0.05, domain.ViewSet{}, params)
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "τΣ", target.Matrix)
	})
}

func TestPosterior_Errors(t *testing.T) {
	est := NewEstimator(zerolog.Nop())
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)
	params := domain.DefaultModelParams()

	t.Run("unknown asset", func(t *testing.T) {
		views := domain.ViewSet{
			Assets: []string{"A", "D"},
			P:      mat.NewDense(1, 2, []float64{1, -1}),
			Q:      []float64{0.01},
			Omega:  mat.NewDense(1, 1, []float64{0.001}),
		}
		_, err := est.Posterior(canonicalPrior, cov, 0.05, views, params)
		var target *domain.AlignmentError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "D", target.Asset)
	})

	t.Run("empty row", func(t *testing.T) {
		views := domain.ViewSet{
			Assets: canonicalAssets,
			P:      mat.NewDense(1, 3, []float64{0, 0, 0}),
			Q:      []float64{0.01},
			Omega:  mat.NewDense(1, 1, []float64{0.001}),
		}
		_, err := est.Posterior(canonicalPrior, cov, 0.05, views, params)
		var target domain.ConfigurationError
		assert.True(t, errors.As(err, &target))
	})

	t.Run("invalid tau", func(t *testing.T) {
		_, err := est.Posterior(canonicalPrior, cov, 0, domain.ViewSet{}, params)
		var target domain.ConfigurationError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "tau", target.Field)
	})

	t.Run("prior length", func(t *testing.T) {
		_, err := est.Posterior([]float64{0.01}, cov, 0.05, domain.ViewSet{}, params)
		var target *domain.AlignmentError
		assert.True(t, errors.As(err, &target))
	})
}

func TestProportionalOmega(t *testing.T) {
	p := mat.NewDense(2, 3, []float64{1, -1, 0, 0, 0, 1})
	cov := estimation.NewCovarianceMatrix(canonicalAssets, canonicalSigma)
	tauSigma := mat.NewSymDense(3, nil)
	tauSigma.ScaleSym(0.05, cov.Matrix)

	omega := ProportionalOmega(p, tauSigma, 1)
	assert.InDelta(t, 0.001925, omega.At(0, 0), 1e-15)
	assert.InDelta(t, 0.0008, omega.At(1, 1), 1e-15)
	assert.Equal(t, 0.0, omega.At(0, 1))
}
