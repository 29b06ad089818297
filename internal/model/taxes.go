package model

import "github.com/shopspring/decimal"

type Tariff string

const (
	InvestorTariff Tariff = "investor"
	TraderTariff   Tariff = "trader"
	PremiumTariff  Tariff = "premium"
)

var InvestorTaxes = map[InstrumentType]float64{
	Bond:     0.003,
	Share:    0.003,
	Etf:      0.003,
	Currency: 0.009,
}

var TraderTaxes = map[InstrumentType]float64{
	Bond:     0.0005,
	Share:    0.0005,
	Etf:      0.0005,
	Currency: 0.005,
}

var PremiumTaxes = map[InstrumentType]float64{
	Bond:     0.0004,
	Share:    0.0004,
	Etf:      0.0004,
	Currency: 0.004,
}

func (t Tariff) IsValid() bool {
	switch t {
	case InvestorTariff, TraderTariff, PremiumTariff:
		return true
	default:
		return false
	}
}

func (t Tariff) Taxes() map[InstrumentType]float64 {
	switch t {
	case TraderTariff:
		return TraderTaxes
	case PremiumTariff:
		return PremiumTaxes
	default:
		return InvestorTaxes
	}
}

// Commission maps an instrument type to its commission rate. A non-nil Flat rate wins over the table.
type Commission struct {
	Rates map[InstrumentType]decimal.Decimal
	Flat  *decimal.Decimal
}

func NewTariffCommission(t Tariff) Commission {
	taxes := t.Taxes()
	rates := make(map[InstrumentType]decimal.Decimal, len(taxes))
	for k, v := range taxes {
		rates[k] = decimal.NewFromFloat(v)
	}
	return Commission{Rates: rates}
}

func NewFlatCommission(rate decimal.Decimal) Commission {
	return Commission{Flat: &rate}
}

func (c Commission) Rate(t InstrumentType) decimal.Decimal {
	if c.Flat != nil {
		return *c.Flat
	}
	if v, ok := c.Rates[t]; ok {
		return v
	}
	return c.Rates[Share]
}
