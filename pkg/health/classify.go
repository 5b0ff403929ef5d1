package health

import (
	"github.com/cuemby/beacon/pkg/types"
)

// ClassifyLoad buckets a load percentage. Single source of truth shared by
// the health monitor and the read APIs so the classification never drifts
// between consumers: below 50 is nominal, 50 through 80 is moderate, above
// 80 is high.
func ClassifyLoad(load float64) types.LoadClass {
	switch {
	case load < 50:
		return types.LoadNominal
	case load <= 80:
		return types.LoadModerate
	default:
		return types.LoadHigh
	}
}
