package health

import (
	"testing"

	"github.com/cuemby/beacon/pkg/types"
)

func TestClassifyLoad(t *testing.T) {
	tests := []struct {
		load     float64
		expected types.LoadClass
	}{
		{0, types.LoadNominal},
		{49.9, types.LoadNominal},
		{50, types.LoadModerate},
		{65, types.LoadModerate},
		{80, types.LoadModerate},
		{80.1, types.LoadHigh},
		{100, types.LoadHigh},
	}

	for _, tt := range tests {
		if got := ClassifyLoad(tt.load); got != tt.expected {
			t.Errorf("ClassifyLoad(%v): expected %s, got %s", tt.load, tt.expected, got)
		}
	}
}
