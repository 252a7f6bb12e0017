package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		def  float64
		want float64
	}{
		{"float", 12.5, 0, 12.5},
		{"int", 7, 0, 7},
		{"numeric string", "42", 0, 42},
		{"currency string", "$1,250.50", 0, 1250.50},
		{"never", "Never", 0, DaysNever},
		{"never lowercase", "never", 0, DaysNever},
		{"garbage", "n/a", 999, 999},
		{"nil", nil, 999, 999},
		{"zero stays zero", 0.0, 999, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFloat(tt.in, tt.def))
		})
	}
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 42, ToInt("42", 0))
	assert.Equal(t, 1250, ToInt("1,250.75", 0))
	assert.Equal(t, 3, ToInt(3.9, 0))
	assert.Equal(t, 5, ToInt(nil, 5))
	assert.Equal(t, 5, ToInt("garbage", 5))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("yes"))
	assert.True(t, ToBool("TRUE"))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool(1.0))
	assert.False(t, ToBool("no"))
	assert.False(t, ToBool(nil))
	assert.False(t, ToBool(0))
}

func TestFormatParseDays_Inverse(t *testing.T) {
	for _, days := range []float64{0, 7, 65, DaysNever} {
		assert.Equal(t, days, ParseDays(FormatDays(days)))
	}
	assert.Equal(t, "Never", FormatDays(DaysNever))
	assert.Equal(t, float64(DaysNever), ParseDays("never"))
	assert.Equal(t, float64(DaysNever), ParseDays("not a number"))
}

func TestUserID(t *testing.T) {
	assert.Equal(t, "u1", RawUser{ID: "u1"}.UserID())
	assert.Equal(t, "42", RawUser{ID: float64(42)}.UserID())
	assert.Equal(t, "", RawUser{}.UserID())
	assert.Equal(t, "u2", RawUser{ID: " u2 "}.UserID())
}

func TestTierForScore(t *testing.T) {
	assert.Equal(t, TierHigh, TierForScore(100))
	assert.Equal(t, TierHigh, TierForScore(60))
	assert.Equal(t, TierMedium, TierForScore(59))
	assert.Equal(t, TierMedium, TierForScore(30))
	assert.Equal(t, TierLowMedium, TierForScore(29))
	assert.Equal(t, TierLowMedium, TierForScore(15))
	assert.Equal(t, TierLow, TierForScore(14))
	assert.Equal(t, TierLow, TierForScore(0))
}
