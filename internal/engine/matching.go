package engine

import (
	"math"

	"github.com/talgya/terrace/internal/entities"
)

// Offer matching: each household with active market participation places at
// most one offer per step. Buyers are processed in registry order within a
// single sequential pass; the pending-offer guard is checked before
// assignment, so a property claimed earlier in the pass is invisible to
// later bidders and the exclusive-offer invariant holds without locking.

// trade runs the full trading phase: price new listings, refresh market
// medians, place offers, then settle every offer whose dependency chain is
// complete this step.
func (s *Simulation) trade(step uint64, m *StepMetrics) {
	s.valueNewListings(step)
	s.refreshMarketMedians()

	for _, h := range s.Reg.Households {
		if h.OnMarket == entities.SegmentNone {
			continue
		}
		s.placeOffer(h, step, m)
	}

	for _, h := range s.Reg.Households {
		if h.Target == 0 {
			continue
		}
		if !s.chainComplete(h) {
			continue
		}
		switch h.OnMarket {
		case entities.SegmentPurchase, entities.SegmentBuyToLet:
			s.settlePurchase(h, step, m)
		case entities.SegmentRental:
			s.settleRental(h, step, m)
		}
	}
}

func (s *Simulation) refreshMarketMedians() {
	var prices, rents []float64
	for _, p := range s.Reg.Properties {
		if p.ForSale() {
			prices = append(prices, p.Price)
		}
		if p.ForRent() {
			rents = append(rents, p.RentPrice)
		}
	}
	s.medianSale = median(prices)
	s.medianRent = median(rents)
}

// annuityFactor converts a per-step repayment into the mortgage principal it
// services over n steps at per-step rate r.
func annuityFactor(r float64, n int) float64 {
	if r <= 0 {
		return float64(n)
	}
	return (1 - math.Pow(1+r, -float64(n))) / r
}

// maxRepayment is the per-step housing budget from the affordability policy.
func (s *Simulation) maxRepayment(h *entities.Household) float64 {
	return h.Income * s.Cfg.Affordability / (float64(s.Cfg.TicksPerYear) * 100)
}

// purchaseBudget computes a buyer's upper price bound: affordable new
// mortgage (less stamp duty) plus available deposit, capped by the
// loan-to-value limit on the deposit. For primary purchases the deposit
// includes net equity released if the buyer's own residence is itself listed.
func (s *Simulation) purchaseBudget(h *entities.Household) float64 {
	budget := annuityFactor(s.Cfg.RatePerStep(), s.Cfg.MortgageSteps()) * s.maxRepayment(h)
	budget -= StampDuty(budget, s.Cfg.StampDuty)

	deposit := h.Capital
	if h.OnMarket == entities.SegmentPurchase && h.Residence != 0 {
		if res := s.Reg.Property(h.Residence); res != nil && res.ForSale() {
			if i, ok := h.Owns(res.ID); ok {
				deposit += res.Price - h.Portfolio[i].Mortgage
			}
		}
	}

	upper := budget + deposit
	if s.Cfg.MaxLTV < 100 {
		capped := deposit / (1 - s.Cfg.MaxLTV/100)
		if capped < upper {
			upper = capped
		}
	}
	return upper
}

func (s *Simulation) placeOffer(h *entities.Household, step uint64, m *StepMetrics) {
	switch h.OnMarket {
	case entities.SegmentPurchase, entities.SegmentBuyToLet:
		s.placePurchaseOffer(h, step, m)
	case entities.SegmentRental:
		s.placeRentalOffer(h, step, m)
	}
}

func (s *Simulation) placePurchaseOffer(h *entities.Household, step uint64, m *StepMetrics) {
	upper := s.purchaseBudget(h)
	if upper <= 0 {
		// Negative affordability is a domain condition, not an error: a
		// housed buyer withdraws (and its own sale comes off the market); a
		// homeless one stays on the market without bidding.
		if h.Residence != 0 {
			s.leaveMarket(h)
			if h.OnMarket == entities.SegmentPurchase {
				if res := s.Reg.Property(h.Residence); res != nil {
					s.removeFromMarket(res)
				}
			}
		}
		return
	}
	lower := upper * 0.7

	var candidates []*entities.Property
	for _, p := range s.Reg.Properties {
		if !p.ForSale() || p.OfferedTo != 0 {
			continue
		}
		if p.Price <= lower || p.Price > upper {
			continue
		}
		if p.ID == h.Residence {
			continue
		}
		if _, owned := h.Owns(p.ID); owned {
			continue
		}
		candidates = append(candidates, p)
	}

	s.claimBest(h, candidates, step, m, func(p *entities.Property) float64 { return p.Price })
}

func (s *Simulation) placeRentalOffer(h *entities.Household, step uint64, m *StepMetrics) {
	upper := s.maxRepayment(h)
	if upper <= 0 {
		return
	}
	lower := upper * 0.7

	var candidates []*entities.Property
	for _, p := range s.Reg.Properties {
		if !p.ForRent() || p.OfferedTo != 0 {
			continue
		}
		if p.RentPrice <= lower || p.RentPrice > upper {
			continue
		}
		if p.ID == h.Residence {
			continue
		}
		candidates = append(candidates, p)
	}

	s.claimBest(h, candidates, step, m, func(p *entities.Property) float64 { return p.RentPrice })
}

// claimBest applies bounded rationality (uniform sample down to the search
// length), then claims the highest-priced candidate as the household's
// pending offer.
func (s *Simulation) claimBest(h *entities.Household, candidates []*entities.Property, step uint64, m *StepMetrics, price func(*entities.Property) float64) {
	if len(candidates) == 0 {
		return
	}
	if limit := s.Cfg.BuyerSearchLength; limit > 0 && len(candidates) > limit {
		sampled := make([]*entities.Property, 0, limit)
		for _, i := range s.Rng.Sample(len(candidates), limit) {
			sampled = append(sampled, candidates[i])
		}
		candidates = sampled
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if price(p) > price(best) {
			best = p
		}
	}

	best.OfferedTo = h.ID
	best.OfferStep = step
	h.Target = best.ID
	m.OffersPlaced++
}
