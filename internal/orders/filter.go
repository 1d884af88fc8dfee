package orders

import "github.com/rampline/rampline/internal/models"

// FilterOrders applies the filter's variant-matching rules to a result
// set. The service already evaluates the filters it supports natively;
// this pass makes the combined result exact regardless of which side
// evaluated what.
func FilterOrders(states []models.OrderState, filter *models.OrderFilter) []models.OrderState {
	if filter == nil {
		return states
	}
	filtered := make([]models.OrderState, 0, len(states))
	for _, s := range states {
		if filter.Matches(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
