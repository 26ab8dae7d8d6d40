package calculator

import "math"

// DistributeItemPrices splits total into count item prices that sum
// back to total exactly. The work happens in integer cents: every item
// gets the floor share, and the leftover cents are handed out one each
// to the items at the front of the slice. Returns nil when count is
// not positive.
func DistributeItemPrices(total float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	cents := int64(math.Round(total * 100))
	if cents < 0 {
		cents = 0
	}
	base := cents / int64(count)
	leftover := cents % int64(count)

	prices := make([]float64, count)
	for i := range prices {
		share := base
		if int64(i) < leftover {
			share++
		}
		prices[i] = float64(share) / 100
	}
	return prices
}
