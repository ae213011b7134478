package models

import "github.com/shopspring/decimal"

// FormatAmount renders minor currency units as a major-unit decimal string
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
