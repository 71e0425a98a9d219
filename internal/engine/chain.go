package engine

import (
	"github.com/talgya/terrace/internal/entities"
)

// Chain resolution: a trade settles only when every dependent trade behind
// it can also complete this step. A seller occupying their only property
// cannot vacate until their own purchase is secured; a sitting tenant cannot
// hand over a rental until they have somewhere to go.
//
// A chain that loops back to its own initiator is treated as resolvable:
// that rule terminates mutual-exchange rings, at the cost of occasionally
// settling a loop that never actually frees the initiator's own property.
// See DESIGN.md for the modelling discussion.
//
// The walk is iterative with a visited set rather than recursive, so depth
// is bounded by the live population no matter how the reference graph is
// shaped. A revisited non-origin household is treated like the origin: the
// walk has closed a cycle and the chain is declared complete.

// chainComplete reports whether the household's pending offer can settle
// this step.
func (s *Simulation) chainComplete(origin *entities.Household) bool {
	cur := origin
	visited := make(map[entities.HouseholdID]bool)

	for {
		if cur.OnMarket == entities.SegmentNone || cur.Target == 0 {
			return false
		}
		target := s.Reg.Property(cur.Target)
		if target == nil {
			return false
		}

		var next *entities.Household
		switch cur.OnMarket {
		case entities.SegmentPurchase, entities.SegmentBuyToLet:
			seller := s.Reg.Household(target.Owner)
			if seller == nil {
				return true // unowned stock sells freely
			}
			if len(seller.Portfolio) > 1 {
				return true // multi-property seller needn't rehouse first
			}
			if seller.ID == cur.ID || seller.ID == origin.ID {
				return true
			}
			next = seller
		case entities.SegmentRental:
			occupant := s.Reg.Household(target.Occupant)
			if occupant == nil {
				return true // vacant unit
			}
			if occupant.ID == origin.ID {
				return true
			}
			next = occupant
		default:
			return false
		}

		if visited[next.ID] {
			return true
		}
		visited[cur.ID] = true
		cur = next
	}
}
