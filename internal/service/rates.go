package service

import (
	"context"
	"fmt"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

// ResolveTier maps a minute count onto a zone's tier schedule. Tiers must be
// sorted ascending by minute threshold. The first tier whose threshold covers
// the requested minutes applies (ceiling match); past the highest tier the
// highest price applies, there is no overage. Pure: same inputs, same tier.
func ResolveTier(tiers []models.RateTier, minutes int) (*models.RateTier, error) {
	if len(tiers) == 0 {
		return nil, ErrNoRatesConfigured
	}
	for i := range tiers {
		if tiers[i].Minutes >= minutes {
			return &tiers[i], nil
		}
	}
	return &tiers[len(tiers)-1], nil
}

// PriceForMinutes loads the zone's active schedule and resolves the price for
// the given minute count.
func PriceForMinutes(ctx context.Context, catalog storage.CatalogStore, zoneID string, minutes int) (models.Money, *models.RateTier, error) {
	tiers, err := catalog.ActiveTiers(ctx, zoneID)
	if err != nil {
		return 0, nil, fmt.Errorf("load rate tiers: %w", err)
	}
	tier, err := ResolveTier(tiers, minutes)
	if err != nil {
		return 0, nil, err
	}
	return tier.Price, tier, nil
}

// ceilMinutes converts elapsed seconds to billable minutes, rounding up.
func ceilMinutes(seconds int64) int {
	if seconds <= 0 {
		return 0
	}
	return int((seconds + 59) / 60)
}
