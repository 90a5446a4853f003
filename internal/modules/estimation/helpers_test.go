package estimation

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/stretchr/testify/require"
)

func monthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// buildPanel creates a monthly panel starting January 2023. NaN returns are
// left out of the panel; caps default to 1.
func buildPanel(t *testing.T, returns map[string][]float64, caps map[string][]float64) *domain.ReturnPanel {
	t.Helper()

	var obs []domain.Observation
	for asset, series := range returns {
		for i, r := range series {
			if math.IsNaN(r) {
				continue
			}
			c := 1.0
			if cs, ok := caps[asset]; ok {
				c = cs[i]
			}
			obs = append(obs, domain.Observation{
				Date:      monthEnd(2023, time.January+time.Month(i)),
				Asset:     asset,
				Return:    r,
				MarketCap: c,
			})
		}
	}

	panel, err := domain.NewReturnPanel(obs)
	require.NoError(t, err)
	return panel
}

func window(fromMonth, toMonth time.Month) domain.Window {
	return domain.Window{
		Start: time.Date(2023, fromMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   monthEnd(2023, toMonth),
	}
}
