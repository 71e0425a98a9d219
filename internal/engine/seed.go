package engine

import (
	"log/slog"

	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/town"
)

// SeedWorld populates an empty simulation: realtors on a ring around the
// center, housing stock on random plots with gradient-derived quality,
// owner-occupiers financed at their affordability limit, tenants matched to
// landlords, and the leftover vacant stock listed for the first step.
func (s *Simulation) SeedWorld() {
	ringRadius := float64(s.Grid.Width) / 4
	for _, pos := range s.Grid.RingPoints(ringRadius, s.Cfg.Realtors) {
		s.Reg.AddRealtor(&entities.Realtor{Pos: pos})
	}

	gradient := town.NewGradient(s.Cfg.Seed, float64(s.Grid.Width)/2)

	nHouses := int(float64(s.Grid.Plots()) * s.Cfg.Density / 100)
	nOwned := int(float64(nHouses) * s.Cfg.OwnedPercentage / 100)

	meanLife := float64(s.Cfg.HouseMeanLifetime * s.Cfg.TicksPerYear)
	var owned, rentals []*entities.Property
	for i, plot := range s.Rng.Sample(s.Grid.Plots(), nHouses) {
		pos := s.Grid.Point(plot)
		p := &entities.Property{
			Kind: entities.KindRentalMarket,
			// Quality follows the smooth gradient so early comparables are
			// spatially coherent rather than uniform noise.
			Quality:   0.5 + gradient.At(pos),
			EndOfLife: uint64(s.Rng.Exponential(meanLife)),
			Pos:       pos,
		}
		if i < nOwned {
			p.Kind = entities.KindOwnedMarket
		}
		s.Reg.AddProperty(p)
		s.plotTaken[plot] = p.ID
		s.assignRealtors(p)
		if p.Kind == entities.KindOwnedMarket {
			owned = append(owned, p)
		} else {
			rentals = append(rentals, p)
		}
	}

	occupancy := s.Cfg.InitialOccupancy / 100
	owners := s.seedOwners(owned, int(float64(len(owned))*occupancy))
	s.seedRenters(rentals, int(float64(len(rentals))*occupancy), owners)
	s.seedVacantStock(owned, rentals, owners)
	s.forgiveMortgages(owners)

	tpy := float64(s.Cfg.TicksPerYear)
	for _, h := range s.Reg.Households {
		h.Surplus = h.Income/tpy + h.TotalRentIncome() - h.TotalRepayment() - h.Rent
	}

	slog.Info("world seeded",
		"realtors", len(s.Reg.Realtors),
		"properties", len(s.Reg.Properties),
		"owned", len(owned),
		"rentals", len(rentals),
		"households", len(s.Reg.Households),
	)
}

// seedOwners creates owner-occupiers on the owned stock, each financed at its
// affordability limit; the unit's price equals the mortgage it supports.
func (s *Simulation) seedOwners(owned []*entities.Property, n int) []*entities.Household {
	r := s.Cfg.RatePerStep()
	steps := s.Cfg.MortgageSteps()
	annuity := annuityFactor(r, steps)

	var owners []*entities.Household
	for i := 0; i < n && i < len(owned); i++ {
		p := owned[i]

		income := s.Rng.Normal(s.Cfg.MeanIncome, s.Cfg.MeanIncome/6)
		if income < 0 {
			income = 0
		}
		capital := income * s.Cfg.CapitalOwner / 100

		maxRepayment := income * s.Cfg.Affordability / (float64(s.Cfg.TicksPerYear) * 100)
		maxMortgage := annuity * maxRepayment
		if s.Cfg.MaxLTV < 100 {
			byDeposit := capital * (s.Cfg.MaxLTV / 100) / (1 - s.Cfg.MaxLTV/100)
			if byDeposit < maxMortgage {
				maxMortgage = byDeposit
			}
		}

		h := s.Reg.AddHousehold(&entities.Household{
			Residence: p.ID,
			Income:    income,
			Capital:   capital,
			Tenure:    entities.TenureOwner,
			Portfolio: []entities.Ledger{{
				Property:  p.ID,
				Mortgage:  maxMortgage,
				Principal: maxMortgage,
				TermLeft:  steps,
				Rate:      r,
				RateLock:  s.Rng.IntBetween(s.Cfg.MinRateLockOwner, s.Cfg.MaxRateLockOwner) * s.Cfg.TicksPerYear,
				Repayment: maxMortgage / annuity,
			}},
			InvestmentPropensity: s.Rng.Float(),
		})

		p.Owner = h.ID
		p.Occupant = h.ID
		p.Price = maxMortgage
		s.fileRecord(p, entities.RecordSale, 0)

		owners = append(owners, h)
	}
	return owners
}

// seedRenters creates tenants on the rental stock. Each unit's landlord is a
// random owner-occupier who takes on a buy-to-let ledger whose repayment the
// rent exactly covers.
func (s *Simulation) seedRenters(rentals []*entities.Property, n int, owners []*entities.Household) {
	if len(owners) == 0 {
		return
	}
	r := s.Cfg.RatePerStep()
	steps := s.Cfg.MortgageSteps()
	annuity := annuityFactor(r, steps)

	for i := 0; i < n && i < len(rentals); i++ {
		p := rentals[i]

		income := s.Rng.Normal(s.Cfg.MeanIncome, s.Cfg.MeanIncome/6)
		if income < 0 {
			income = 0
		}
		rent := income * s.Cfg.Affordability / (float64(s.Cfg.TicksPerYear) * 100)
		price := annuity * rent

		h := s.Reg.AddHousehold(&entities.Household{
			Residence:            p.ID,
			Income:               income,
			Capital:              income * s.Cfg.CapitalRenter / 100,
			Rent:                 rent,
			Tenure:               entities.TenureRenter,
			InvestmentPropensity: s.Rng.Float(),
		})

		landlord := owners[s.Rng.IntN(len(owners))]
		landlord.Portfolio = append(landlord.Portfolio, entities.Ledger{
			Property:   p.ID,
			Mortgage:   price,
			Principal:  price,
			TermLeft:   steps,
			Rate:       r,
			RateLock:   s.Rng.IntBetween(s.Cfg.MinRateLockBTL, s.Cfg.MaxRateLockBTL) * s.Cfg.TicksPerYear,
			Repayment:  rent,
			RentIncome: rent,
		})

		p.Owner = landlord.ID
		p.Occupant = h.ID
		p.Price = price
		p.RentPrice = rent
		s.fileRecord(p, entities.RecordRent, 0)
	}
}

// seedVacantStock lists whatever the occupancy rate left empty. Vacant owned
// units go on the sale market unowned; vacant rentals are assigned a random
// landlord and listed at the median seeded rent. Listings carry the first
// step's date so the opening valuation pass prices them.
func (s *Simulation) seedVacantStock(owned, rentals []*entities.Property, owners []*entities.Household) {
	firstStep := s.LastStep + 1

	var rents []float64
	for _, p := range rentals {
		if p.RentPrice > 0 {
			rents = append(rents, p.RentPrice)
		}
	}
	medianRent := median(rents)

	for _, p := range owned {
		if p.Occupant == 0 {
			s.putOnMarket(p, firstStep)
		}
	}
	for _, p := range rentals {
		if p.Occupant != 0 {
			continue
		}
		if len(owners) > 0 {
			landlord := owners[s.Rng.IntN(len(owners))]
			primary := landlord.Portfolio[0]
			landlord.Portfolio = append(landlord.Portfolio, entities.Ledger{
				Property:  p.ID,
				Mortgage:  primary.Mortgage,
				Principal: primary.Principal,
				TermLeft:  s.Cfg.MortgageSteps(),
				Rate:      s.Cfg.RatePerStep(),
				RateLock:  s.Rng.IntBetween(s.Cfg.MinRateLockBTL, s.Cfg.MaxRateLockBTL) * s.Cfg.TicksPerYear,
				Repayment: primary.Repayment,
			})
			p.Owner = landlord.ID
			if res := s.Reg.Property(landlord.Residence); res != nil {
				p.Price = res.Price
			}
		}
		p.RentPrice = medianRent
		s.putOnMarket(p, firstStep)
	}
}

// forgiveMortgages zeroes the ledgers of a configured share of owners,
// seeding a mortgage-free cohort.
func (s *Simulation) forgiveMortgages(owners []*entities.Household) {
	n := int(float64(len(owners)) * s.Cfg.FullyPaidOwners / 100)
	if n <= 0 {
		return
	}
	for _, i := range s.Rng.Sample(len(owners), n) {
		h := owners[i]
		for j := range h.Portfolio {
			l := &h.Portfolio[j]
			l.Mortgage = 0
			l.Principal = 0
			l.TermLeft = 0
			l.Rate = 0
			l.RateLock = 0
			l.Repayment = 0
		}
	}
}
