package revenue

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Split holds a ledger amount divided into confirmed and pending parts
type Split struct {
	Confirmed decimal.Decimal
	Pending   decimal.Decimal
}

func (s Split) Total() decimal.Decimal {
	return s.Confirmed.Add(s.Pending)
}

func (s *Split) Add(v decimal.Decimal, confirmed bool) {
	if confirmed {
		s.Confirmed = s.Confirmed.Add(v)
		return
	}
	s.Pending = s.Pending.Add(v)
}

func (s *Split) Merge(o Split) {
	s.Confirmed = s.Confirmed.Add(o.Confirmed)
	s.Pending = s.Pending.Add(o.Pending)
}

func (s Split) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Confirmed decimal.Decimal `json:"confirmed"`
		Pending   decimal.Decimal `json:"pending"`
		Total     decimal.Decimal `json:"total"`
	}{s.Confirmed, s.Pending, s.Total()})
}

// ROI is confirmed receipts as a percentage of commercial value, rounded to
// two decimals. It is 0 when there is no commercial value.
func ROI(receiptConfirmed, commercialTotal decimal.Decimal) float64 {
	if commercialTotal.IsZero() {
		return 0
	}
	return receiptConfirmed.Div(commercialTotal).Mul(hundred).Round(2).InexactFloat64()
}
