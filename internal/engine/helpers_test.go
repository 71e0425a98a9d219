package engine

import (
	"github.com/talgya/terrace/internal/config"
	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/entropy"
	"github.com/talgya/terrace/internal/town"
)

// newTestSim builds a small empty simulation with one realtor covering the
// whole grid.
func newTestSim() *Simulation {
	cfg := config.Default()
	cfg.GridWidth = 10
	cfg.GridHeight = 10
	cfg.Realtors = 1
	cfg.RealtorTerritory = 50
	cfg.Locality = 50

	s := NewSimulation(cfg, town.NewGrid(cfg.GridWidth, cfg.GridHeight), entropy.NewSource(1))
	s.Reg.AddRealtor(&entities.Realtor{Pos: s.Grid.Center()})
	return s
}

// addProperty registers a property on the given plot with the sole test
// realtor servicing it.
func (s *Simulation) addTestProperty(plot int, kind entities.PropertyKind, price float64) *entities.Property {
	p := &entities.Property{
		Kind:      kind,
		Quality:   1,
		Price:     price,
		EndOfLife: 1 << 40,
		Pos:       s.Grid.Point(plot),
	}
	s.Reg.AddProperty(p)
	s.plotTaken[plot] = p.ID
	s.assignRealtors(p)
	return p
}

// addOwnerOccupier registers a household owning and occupying p with the
// given outstanding mortgage.
func (s *Simulation) addOwnerOccupier(p *entities.Property, income, capital, mortgage float64) *entities.Household {
	r := s.Cfg.RatePerStep()
	h := s.Reg.AddHousehold(&entities.Household{
		Residence: p.ID,
		Income:    income,
		Capital:   capital,
		Tenure:    entities.TenureOwner,
		Portfolio: []entities.Ledger{{
			Property:  p.ID,
			Mortgage:  mortgage,
			Principal: mortgage,
			TermLeft:  s.Cfg.MortgageSteps(),
			Rate:      r,
			RateLock:  4,
			Repayment: mortgage / annuityFactor(r, s.Cfg.MortgageSteps()),
		}},
	})
	p.Owner = h.ID
	p.Occupant = h.ID
	return h
}

// addRenter registers a tenant household in p, with the landlord collecting
// the rent on its matching ledger.
func (s *Simulation) addRenter(p *entities.Property, landlord *entities.Household, income, rent float64) *entities.Household {
	h := s.Reg.AddHousehold(&entities.Household{
		Residence: p.ID,
		Income:    income,
		Rent:      rent,
		Tenure:    entities.TenureRenter,
	})
	p.Occupant = h.ID
	p.Owner = landlord.ID
	p.RentPrice = rent
	landlord.Portfolio = append(landlord.Portfolio, entities.Ledger{
		Property:   p.ID,
		RentIncome: rent,
	})
	return h
}
