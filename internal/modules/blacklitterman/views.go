package blacklitterman

import (
	"fmt"
	"sort"

	"github.com/aristath/sectorbl/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// ViewType distinguishes absolute from relative views.
type ViewType string

const (
	// ViewAbsolute states the expected excess return of one asset
	ViewAbsolute ViewType = "absolute"
	// ViewRelative states the expected outperformance of one asset over another
	ViewRelative ViewType = "relative"
)

// DefaultConfidenceScale scales (1-c)/c into a view variance.
const DefaultConfidenceScale = 0.001

// View is one investor opinion.
type View struct {
	Type           ViewType `yaml:"type"`
	Asset          string   `yaml:"asset,omitempty"`          // absolute views
	Outperformer   string   `yaml:"outperformer,omitempty"`   // relative views
	Underperformer string   `yaml:"underperformer,omitempty"` // relative views
	Return         float64  `yaml:"return"`
	// Variance is the explicit Ω_kk; when zero, Confidence is used
	Variance float64 `yaml:"variance,omitempty"`
	// Confidence in (0, 1]; 1 yields a zero variance, which is singular
	Confidence float64 `yaml:"confidence,omitempty"`
}

// ViewBuilder translates authored views into a (P, Q, Ω) view set.
type ViewBuilder struct {
	// ConfidenceScale maps confidence c to Ω_kk = (1-c)/c × ConfidenceScale
	ConfidenceScale float64
	// Proportional ignores per-view variances and derives Ω from τΣ each period
	Proportional bool
	OmegaScale   float64
}

// NewViewBuilder returns a builder with the default confidence scale.
func NewViewBuilder() *ViewBuilder {
	return &ViewBuilder{ConfidenceScale: DefaultConfidenceScale, OmegaScale: 1}
}

// Build validates views and assembles the view set. Columns of P are the
// distinct assets referenced by the views, sorted by identifier.
func (b *ViewBuilder) Build(views []View) (domain.ViewSet, error) {
	if len(views) == 0 {
		return domain.ViewSet{}, nil
	}

	assetSet := make(map[string]bool)
	for i, v := range views {
		if err := validateView(i, v, b.Proportional); err != nil {
			return domain.ViewSet{}, err
		}
		for _, a := range v.assets() {
			assetSet[a] = true
		}
	}

	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	col := make(map[string]int, len(assets))
	for i, a := range assets {
		col[a] = i
	}

	k := len(views)
	p := mat.NewDense(k, len(assets), nil)
	q := make([]float64, k)
	var omega *mat.Dense
	if !b.Proportional {
		omega = mat.NewDense(k, k, nil)
	}

	for i, v := range views {
		q[i] = v.Return
		switch v.Type {
		case ViewAbsolute:
			p.Set(i, col[v.Asset], 1)
		case ViewRelative:
			p.Set(i, col[v.Outperformer], 1)
			p.Set(i, col[v.Underperformer], -1)
		}
		if omega != nil {
			omega.Set(i, i, b.variance(v))
		}
	}

	set := domain.ViewSet{Assets: assets, P: p, Q: q, Omega: omega}
	if b.Proportional {
		set.ProportionalOmega = true
		set.OmegaScale = b.OmegaScale
	}
	return set, set.Validate()
}

func (b *ViewBuilder) variance(v View) float64 {
	if v.Variance > 0 {
		return v.Variance
	}
	return (1 - v.Confidence) / v.Confidence * b.ConfidenceScale
}

func (v View) assets() []string {
	if v.Type == ViewAbsolute {
		return []string{v.Asset}
	}
	return []string{v.Outperformer, v.Underperformer}
}

func validateView(i int, v View, proportional bool) error {
	field := fmt.Sprintf("views[%d]", i)
	switch v.Type {
	case ViewAbsolute:
		if v.Asset == "" {
			return domain.ConfigurationError{Field: field, Message: "absolute view needs an asset"}
		}
	case ViewRelative:
		if v.Outperformer == "" || v.Underperformer == "" {
			return domain.ConfigurationError{Field: field, Message: "relative view needs an outperformer and an underperformer"}
		}
		if v.Outperformer == v.Underperformer {
			return domain.ConfigurationError{Field: field, Message: fmt.Sprintf("relative view compares %s with itself", v.Outperformer)}
		}
	default:
		return domain.ConfigurationError{Field: field, Message: fmt.Sprintf("unknown view type %q", v.Type)}
	}

	if proportional {
		return nil
	}
	if v.Variance < 0 {
		return domain.ConfigurationError{Field: field, Message: fmt.Sprintf("variance must be >= 0, got %v", v.Variance)}
	}
	if v.Variance == 0 && !(v.Confidence > 0 && v.Confidence <= 1) {
		return domain.ConfigurationError{Field: field, Message: fmt.Sprintf("confidence must be in (0, 1] when no variance is given, got %v", v.Confidence)}
	}
	return nil
}
