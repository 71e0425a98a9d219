package engine

// StampDuty returns the transaction tax on a purchase price. Tiers apply to
// the whole price, not marginally. Returns 0 when the duty is disabled.
func StampDuty(price float64, enabled bool) float64 {
	if !enabled || price <= 0 {
		return 0
	}
	switch {
	case price <= 150000:
		return 0
	case price <= 250000:
		return price * 0.01
	case price <= 500000:
		return price * 0.02
	default:
		return price * 0.04
	}
}
