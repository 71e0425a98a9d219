package entities

// Registry owns the canonical collections of properties, households, and
// realtors. All creation and destruction goes through it: creation assigns a
// fresh identity, destruction clears every back-reference in the same step so
// no dangling handle can be observed afterward.
//
// Iteration order over the ordered slices is insertion order, which keeps
// per-step processing deterministic. The simulation is single-threaded; the
// registry does no locking.
type Registry struct {
	Properties []*Property
	Households []*Household
	Realtors   []*Realtor

	propIndex  map[PropertyID]*Property
	houseIndex map[HouseholdID]*Household
	realtIndex map[RealtorID]*Realtor

	nextProperty  PropertyID
	nextHousehold HouseholdID
	nextRealtor   RealtorID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		propIndex:     make(map[PropertyID]*Property),
		houseIndex:    make(map[HouseholdID]*Household),
		realtIndex:    make(map[RealtorID]*Realtor),
		nextProperty:  1,
		nextHousehold: 1,
		nextRealtor:   1,
	}
}

// Property returns the property with the given ID, or nil.
func (r *Registry) Property(id PropertyID) *Property {
	if id == 0 {
		return nil
	}
	return r.propIndex[id]
}

// Household returns the household with the given ID, or nil.
func (r *Registry) Household(id HouseholdID) *Household {
	if id == 0 {
		return nil
	}
	return r.houseIndex[id]
}

// Realtor returns the realtor with the given ID, or nil.
func (r *Registry) Realtor(id RealtorID) *Realtor {
	if id == 0 {
		return nil
	}
	return r.realtIndex[id]
}

// AddProperty registers p, assigning it a fresh identity.
func (r *Registry) AddProperty(p *Property) *Property {
	p.ID = r.nextProperty
	r.nextProperty++
	r.Properties = append(r.Properties, p)
	r.propIndex[p.ID] = p
	return p
}

// AddHousehold registers h, assigning it a fresh identity.
func (r *Registry) AddHousehold(h *Household) *Household {
	h.ID = r.nextHousehold
	r.nextHousehold++
	r.Households = append(r.Households, h)
	r.houseIndex[h.ID] = h
	return h
}

// AddRealtor registers rl, assigning it a fresh identity.
func (r *Registry) AddRealtor(rl *Realtor) *Realtor {
	rl.ID = r.nextRealtor
	r.nextRealtor++
	r.Realtors = append(r.Realtors, rl)
	r.realtIndex[rl.ID] = rl
	return rl
}

// AdoptProperty registers a property that already has an identity, such as
// one restored from a snapshot, and keeps fresh identities above it.
func (r *Registry) AdoptProperty(p *Property) {
	r.Properties = append(r.Properties, p)
	r.propIndex[p.ID] = p
	if p.ID >= r.nextProperty {
		r.nextProperty = p.ID + 1
	}
}

// AdoptHousehold registers a household that already has an identity.
func (r *Registry) AdoptHousehold(h *Household) {
	r.Households = append(r.Households, h)
	r.houseIndex[h.ID] = h
	if h.ID >= r.nextHousehold {
		r.nextHousehold = h.ID + 1
	}
}

// AdoptRealtor registers a realtor that already has an identity.
func (r *Registry) AdoptRealtor(rl *Realtor) {
	r.Realtors = append(r.Realtors, rl)
	r.realtIndex[rl.ID] = rl
	if rl.ID >= r.nextRealtor {
		r.nextRealtor = rl.ID + 1
	}
}

// RemoveProperty destroys a property, clearing every reference to it:
// the occupant's residence, the owner's portfolio ledger, any pending offer
// on either side, and the servicing realtors' records.
func (r *Registry) RemoveProperty(id PropertyID) {
	p := r.Property(id)
	if p == nil {
		return
	}

	if occ := r.Household(p.Occupant); occ != nil && occ.Residence == id {
		occ.Residence = 0
	}
	if owner := r.Household(p.Owner); owner != nil {
		if i, ok := owner.Owns(id); ok {
			owner.Portfolio = append(owner.Portfolio[:i], owner.Portfolio[i+1:]...)
		}
	}
	if bidder := r.Household(p.OfferedTo); bidder != nil && bidder.Target == id {
		bidder.Target = 0
	}
	for _, hh := range r.Households {
		if hh.Target == id {
			hh.Target = 0
		}
	}
	for _, rid := range p.Realtors {
		if rl := r.Realtor(rid); rl != nil {
			rl.Records = dropRecords(rl.Records, id)
		}
	}

	delete(r.propIndex, id)
	r.Properties = removeProp(r.Properties, id)
}

// RemoveHousehold destroys a household, clearing ownership and occupancy on
// every property that referenced it and any pending offer it held.
func (r *Registry) RemoveHousehold(id HouseholdID) {
	h := r.Household(id)
	if h == nil {
		return
	}

	for _, l := range h.Portfolio {
		if p := r.Property(l.Property); p != nil && p.Owner == id {
			p.Owner = 0
		}
	}
	for _, p := range r.Properties {
		if p.Occupant == id {
			p.Occupant = 0
		}
		if p.OfferedTo == id {
			p.OfferedTo = 0
			p.OfferStep = 0
		}
	}

	delete(r.houseIndex, id)
	r.Households = removeHouse(r.Households, id)
}

func dropRecords(records []TransactionRecord, id PropertyID) []TransactionRecord {
	n := 0
	for _, rec := range records {
		if rec.Property != id {
			records[n] = rec
			n++
		}
	}
	return records[:n]
}

func removeProp(list []*Property, id PropertyID) []*Property {
	for i, p := range list {
		if p.ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeHouse(list []*Household, id HouseholdID) []*Household {
	for i, h := range list {
		if h.ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
