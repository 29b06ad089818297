package tools

import (
	"fmt"
	"strconv"

	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
)

const BILLION int64 = 1000000000

// PriceScale matches the nano precision of Quotation.
const PriceScale int32 = 9

func UnitsNanoToDecimal(units int64, nano int32) decimal.Decimal {
	return decimal.New(units, 0).Add(decimal.New(int64(nano), -PriceScale))
}

func QuotationToDecimal(q *investapi.Quotation) decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	return UnitsNanoToDecimal(q.GetUnits(), q.GetNano())
}

// ParseQuotation converts the REST gateway representation, where units come as a string.
func ParseQuotation(units string, nano int32) (decimal.Decimal, error) {
	if units == "" {
		units = "0"
	}
	u, err := strconv.ParseInt(units, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: can't parse quotation units %q", err, units)
	}
	return UnitsNanoToDecimal(u, nano), nil
}

func DecimalToQuotation(d decimal.Decimal) *investapi.Quotation {
	intPart := d.IntPart()
	fracPart := d.Sub(decimal.NewFromInt(intPart))

	nano := fracPart.Mul(decimal.NewFromInt(BILLION)).IntPart()
	return &investapi.Quotation{
		Units: intPart,
		Nano:  int32(nano),
	}
}
