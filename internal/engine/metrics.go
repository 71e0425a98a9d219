package engine

import "sort"

// StepMetrics counts what happened during a single step. A fresh value is
// built per step; nothing accumulates across steps.
type StepMetrics struct {
	Step uint64 `json:"step"`

	// Population turnover.
	Entries     uint64 `json:"entries"`
	NaturalExit uint64 `json:"natural_exit"`

	// Homelessness and discouragement.
	Homeless            uint64 `json:"homeless"`
	Discouraged         uint64 `json:"discouraged"`
	DiscouragedPurchase uint64 `json:"discouraged_purchase"`
	DiscouragedBuyToLet uint64 `json:"discouraged_buy_to_let"`
	DiscouragedRental   uint64 `json:"discouraged_rental"`

	// Income shocks.
	Upshocked   uint64 `json:"upshocked"`
	Downshocked uint64 `json:"downshocked"`

	// Participation screening.
	PoorOwners        uint64  `json:"poor_owners"`
	EvictedOwners     uint64  `json:"evicted_owners"`
	EvictedRenters    uint64  `json:"evicted_renters"`
	ForcedSales       uint64  `json:"forced_sales"`
	MeanIncomeEvicted float64 `json:"mean_income_evicted"`
	EnterPurchase     uint64  `json:"enter_purchase"`
	EnterBuyToLet     uint64  `json:"enter_buy_to_let"`
	EnterRental       uint64  `json:"enter_rental"`

	// Trading.
	OffersPlaced uint64 `json:"offers_placed"`
	Sales        uint64 `json:"sales"`
	Lettings     uint64 `json:"lettings"`
	Moves        uint64 `json:"moves"`

	// Stock dynamics.
	Constructed          uint64 `json:"constructed"`
	Demolished           uint64 `json:"demolished"`
	DemolishedEndOfLife  uint64 `json:"demolished_end_of_life"`
	DemolishedCheap      uint64 `json:"demolished_cheap"`

	// Market prices at the matching phase.
	MedianSalePrice float64 `json:"median_sale_price"`
	MedianRentPrice float64 `json:"median_rent_price"`
}

// Census is a point-in-time summary of the population and stock.
type Census struct {
	Step       uint64 `json:"step"`
	Properties int    `json:"properties"`
	Households int    `json:"households"`

	OwnedMarket  int `json:"owned_market"`
	RentalMarket int `json:"rental_market"`

	ListedForSale int `json:"listed_for_sale"`
	ListedForRent int `json:"listed_for_rent"`

	Owners   int `json:"owners"`
	Renters  int `json:"renters"`
	Homeless int `json:"homeless"`

	OnPurchaseMarket int `json:"on_purchase_market"`
	OnBuyToLetMarket int `json:"on_buy_to_let_market"`
	OnRentalMarket   int `json:"on_rental_market"`

	MeanIncome  float64 `json:"mean_income"`
	MeanCapital float64 `json:"mean_capital"`

	MedianSalePrice float64 `json:"median_sale_price"`
	MedianRentPrice float64 `json:"median_rent_price"`
}

// Distributions carries the raw vectors behind the census aggregates.
type Distributions struct {
	Incomes  []float64 `json:"incomes"`
	Capitals []float64 `json:"capitals"`
	Prices   []float64 `json:"prices"`
	Rents    []float64 `json:"rents"`
}

// median returns the median of vs, 0 for an empty slice. vs is not modified.
func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// mean returns the arithmetic mean of vs, 0 for an empty slice.
func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
