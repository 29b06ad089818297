package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type MoneyValue struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

// NormalizeCurrency keeps currency codes comparable across broker responses and configs.
func NormalizeCurrency(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
