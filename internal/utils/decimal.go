package utils

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
)

func NumericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil {
		return f.Float64
	}
	// fallback to string parse
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	var out float64
	if _, err := fmt.Sscan(string(text), &out); err != nil {
		return 0
	}
	return out
}

// NumericToFloat64Ptr preserves SQL null as nil, for optional amounts like
// rate overrides and stored partner payouts.
func NumericToFloat64Ptr(value pgtype.Numeric) *float64 {
	if !value.Valid {
		return nil
	}
	out := NumericToFloat64(value)
	return &out
}

func TextPtr(value pgtype.Text) *string {
	if !value.Valid || value.String == "" {
		return nil
	}
	out := value.String
	return &out
}

// Round2 rounds a monetary amount to two decimals for presentation.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
