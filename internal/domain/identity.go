package domain

type IdentityRequest struct {
	GuestName      string `json:"guest_name"`
	PassportNumber string `json:"passport_number"`
	IDType         string `json:"id_type"`
}

type IdentityResult struct {
	Status                 string  `json:"status"` // passed|failed
	RiskAssessment         string  `json:"risk_assessment"`
	FacialMatchProbability float64 `json:"facial_match_probability"`
}

// CheckoutSession is what the payment provider hands back for a booking.
type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
	TotalCents  int64
	MarkupCents int64
	FeeCents    int64
	NetCents    int64
}

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// WebhookEvent is a verified notification from the payment provider.
type WebhookEvent struct {
	Type      string
	SessionID string
}
