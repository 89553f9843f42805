package app

import (
	"context"

	"ancile/internal/domain"
)

// DefaultRiskScore is what the guest scorer returns until a trained model is wired in.
const DefaultRiskScore = 0.15

// StaticScorer returns one score for every guest.
type StaticScorer struct{ Value float64 }

func (s StaticScorer) Score(_ context.Context, _ domain.BookingIntent) (float64, error) {
	return s.Value, nil
}
