package engine

import (
	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/town"
)

// Valuation: a property that just entered the market asks the price of the
// most optimistic servicing realtor. Each realtor appraises from the median
// of its recent comparable transactions near the property, falling back to
// the median of nearby current listings of the same kind, then to its
// running territory average.

const (
	qualityMin = 0.3
	qualityMax = 3.0

	// Ratio damping bounds against thin comparable sets.
	dampLow  = 0.5
	dampHigh = 2.0
)

// valueNewListings prices every property that entered the market this step
// and refreshes its quality index from the new relative price.
func (s *Simulation) valueNewListings(step uint64) {
	for _, p := range s.Reg.Properties {
		if p.ListedSince != step {
			continue
		}
		switch p.Listing {
		case entities.ListedForSale:
			p.Price = s.valueListing(p, true)
			s.updateQuality(p, p.Price)
		case entities.ListedForRent:
			p.RentPrice = s.valueListing(p, false)
		}
	}
}

// valueListing returns the highest servicing-realtor valuation for p,
// quality- and optimism-adjusted, with single-step moves damped.
func (s *Simulation) valueListing(p *entities.Property, sale bool) float64 {
	var best float64
	for _, rid := range p.Realtors {
		rl := s.Reg.Realtor(rid)
		if rl == nil {
			continue
		}
		if v := s.appraise(rl, p, sale); v > best {
			best = v
		}
	}

	multiplier := p.Quality * (1 + s.Cfg.RealtorOptimism/100)

	old := p.Price
	floor := s.Cfg.PriceFloor
	if !sale {
		old = p.RentPrice
		floor = s.Cfg.RentFloor
	}
	// Below the floor the previous price carries no signal; accept the
	// appraisal outright. Above it, bound the move relative to the old price
	// so a thin comparable set cannot explode the price in one step.
	if old >= floor {
		if best < old*dampLow {
			best = old * dampLow
		}
		if best > old*dampHigh {
			best = old * dampHigh
		}
	}
	return best * multiplier
}

// appraise is one realtor's base valuation of p before adjustment.
func (s *Simulation) appraise(rl *entities.Realtor, p *entities.Property, sale bool) float64 {
	var comps []float64
	for _, rec := range rl.Records {
		if sale && rec.Kind != entities.RecordSale {
			continue
		}
		if !sale && rec.Kind != entities.RecordRent {
			continue
		}
		if !town.Within(p.Pos, rec.Pos, s.Cfg.Locality) {
			continue
		}
		if sale {
			comps = append(comps, rec.SalePrice)
		} else {
			comps = append(comps, rec.RentPrice)
		}
	}
	if len(comps) > 0 {
		return median(comps)
	}

	// No transactions nearby: fall back to nearby listings of the same kind.
	var listed []float64
	for _, other := range s.Reg.Properties {
		if other.ID == p.ID || other.Kind != p.Kind {
			continue
		}
		if !town.Within(p.Pos, other.Pos, s.Cfg.Locality) {
			continue
		}
		if sale && other.ForSale() && other.Price > 0 {
			listed = append(listed, other.Price)
		}
		if !sale && other.ForRent() && other.RentPrice > 0 {
			listed = append(listed, other.RentPrice)
		}
	}
	if len(listed) > 0 {
		return median(listed)
	}

	if sale {
		return rl.AvgPrice
	}
	return rl.AvgRent
}

// updateQuality rederives a property's quality index from its price relative
// to the locality, clamped to [0.3, 3.0].
func (s *Simulation) updateQuality(p *entities.Property, price float64) {
	if price <= 0 {
		return
	}
	var local []float64
	for _, other := range s.Reg.Properties {
		if other.ID == p.ID || other.Price <= 0 {
			continue
		}
		if town.Within(p.Pos, other.Pos, s.Cfg.Locality) {
			local = append(local, other.Price)
		}
	}
	med := median(local)
	if med <= 0 {
		return
	}
	q := price / med
	if q < qualityMin {
		q = qualityMin
	}
	if q > qualityMax {
		q = qualityMax
	}
	p.Quality = q
}
