package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_PassesThroughAllThreeAnchors(t *testing.T) {
	a := Anchors{
		XHigh: 4800, YHigh: 0.50,
		XBear: 3840, YBear: 0.56,
		XZero: 0, YZero: 0.62,
	}
	c := Fit(a)
	assert.InDelta(t, a.YHigh, c.Evaluate(a.XHigh), 1e-9)
	assert.InDelta(t, a.YBear, c.Evaluate(a.XBear), 1e-9)
	assert.InDelta(t, a.YZero, c.Evaluate(a.XZero), 1e-9)
}

func TestFit_MonotoneDecreasingWhenSane(t *testing.T) {
	a := Anchors{
		XHigh: 4800, YHigh: 0.50,
		XBear: 3840, YBear: 0.56,
		XZero: 0, YZero: 0.62,
	}
	c := Fit(a)
	assert.True(t, c.IsMonotoneDecreasing(200))
}

func TestTargetStockFraction_DefaultsBearToHalfZero(t *testing.T) {
	result := TargetStockFraction(0.50, 0.12, nil, 4800, 4800)
	assert.InDelta(t, 0.50, result.StockFraction, 1e-9)
	assert.False(t, result.CurveWarning)
}

func TestTargetStockFraction_WarnsWhenBearTooSmall(t *testing.T) {
	bear := 0.01
	result := TargetStockFraction(0.50, 0.12, &bear, 4800, 4000)
	assert.True(t, result.CurveWarning)
}

func TestCloseAdjustRatio(t *testing.T) {
	assert.InDelta(t, 1.0, CloseAdjustRatio(100, 100), 1e-9)
	assert.InDelta(t, 1.01, CloseAdjustRatio(101, 100), 1e-9)
	assert.Equal(t, 1.0, CloseAdjustRatio(100, 0))
}

func TestSmoothLatest(t *testing.T) {
	closes := []float64{10, 20, 30, 40, 50}
	v, err := SmoothLatest(closes, 2)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, v, 1e-9)
}

func TestSmoothLatest_InsufficientData(t *testing.T) {
	_, err := SmoothLatest([]float64{1, 2}, 5)
	require.Error(t, err)
}
