package domain

import "time"

// PriceRuleKind is the predicate part of an Allociné price rule.
type PriceRuleKind string

const (
	// PriceRuleDefault matches every stock.
	PriceRuleDefault PriceRuleKind = "default"
	// PriceRuleWeekday matches showtimes from Monday to Friday (venue local time).
	PriceRuleWeekday PriceRuleKind = "weekday"
	// PriceRuleWeekend matches showtimes on Saturday and Sunday (venue local time).
	PriceRuleWeekend PriceRuleKind = "weekend"
)

// PriceRule is one (predicate, price) pair of a venue provider's ordered rule list.
type PriceRule struct {
	Kind  PriceRuleKind
	Price float64
}

// Matches reports whether the rule applies to the stock.
// loc is the venue timezone used for calendar predicates.
func (r PriceRule) Matches(stock *Stock, loc *time.Location) bool {
	switch r.Kind {
	case PriceRuleDefault:
		return true
	case PriceRuleWeekday, PriceRuleWeekend:
		if stock == nil || stock.BeginningDatetime == nil {
			return false
		}
		if loc == nil {
			loc = time.UTC
		}
		day := stock.BeginningDatetime.In(loc).Weekday()
		weekend := day == time.Saturday || day == time.Sunday

		return weekend == (r.Kind == PriceRuleWeekend)
	default:
		return false
	}
}

// ResolvePrice returns the price of the first matching rule.
// It never falls back to a default price: no match is a business rule error.
func ResolvePrice(rules []PriceRule, stock *Stock, loc *time.Location) (float64, error) {
	for _, rule := range rules {
		if rule.Matches(stock, loc) {
			return rule.Price, nil
		}
	}

	return 0, &BusinessRuleError{
		Rule:    "price_rule",
		Message: "no default price rule found for this stock",
	}
}
