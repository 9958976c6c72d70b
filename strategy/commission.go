package strategy

import "math"

type CommissionType string

const (
	CommissionNone       CommissionType = ""
	CommissionFixed      CommissionType = "fixed"
	CommissionPercentage CommissionType = "percentage"
	CommissionCombined   CommissionType = "combined"
)

// CommissionModel prices one leg of a trade. The same model is charged on
// entry and on exit.
type CommissionModel struct {
	Type    CommissionType `json:"type" yaml:"type"`
	Fixed   float64        `json:"fixed,omitempty" yaml:"fixed,omitempty"`     // per leg, account currency
	Percent float64        `json:"percent,omitempty" yaml:"percent,omitempty"` // of notional, 0.1 = 0.1%
}

// Leg returns the commission for a leg with the given notional.
func (m CommissionModel) Leg(notional float64) float64 {
	notional = math.Abs(notional)
	switch m.Type {
	case CommissionFixed:
		return m.Fixed
	case CommissionPercentage:
		return notional * m.Percent / 100
	case CommissionCombined:
		return m.Fixed + notional*m.Percent/100
	default:
		return 0
	}
}

// fixedPart and rate split the model into cost = fixedPart + rate*notional.
func (m CommissionModel) fixedPart() float64 {
	if m.Type == CommissionFixed || m.Type == CommissionCombined {
		return m.Fixed
	}
	return 0
}

func (m CommissionModel) rate() float64 {
	if m.Type == CommissionPercentage || m.Type == CommissionCombined {
		return m.Percent / 100
	}
	return 0
}

// Affordable returns the largest whole quantity at price whose margin
// (notional/leverage) plus entry commission fits in cash.
func (m CommissionModel) Affordable(cash, price, leverage float64) float64 {
	if price <= 0 || leverage <= 0 {
		return 0
	}
	perUnit := price/leverage + price*m.rate()
	q := math.Floor((cash - m.fixedPart()) / perUnit)
	if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	// guard the floor against rounding at the boundary
	for q >= 1 && q*price/leverage+m.Leg(q*price) > cash {
		q--
	}
	return q
}
