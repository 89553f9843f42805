package domain

import (
	"fmt"
	"time"
)

// BookingIntent is the payload a guest sends once per submit action.
type BookingIntent struct {
	GroupID         string  `json:"group_id"`
	RoomType        string  `json:"room_type"`
	GuestName       string  `json:"guest_name"`
	GuestEmail      string  `json:"guest_email"`
	RelationToHost  string  `json:"relation_to_host"`
	RoomPrice       float64 `json:"room_price"`
	BookingLeadTime int     `json:"booking_lead_time"`
	OriginCity      string  `json:"origin_city"`
	AgentID         string  `json:"agent_id"`
}

// BookingResult is the 2xx body of POST /bookings/initiate.
type BookingResult struct {
	LockToken   string  `json:"lock_token"`
	CheckoutURL string  `json:"checkout_url"`
	RiskScore   float64 `json:"risk_score"`
}

type BookingStatus string

const (
	StatusCreated         BookingStatus = "created"
	StatusIdentityPending BookingStatus = "identity_pending"
	StatusIdentityPassed  BookingStatus = "identity_passed"
	StatusIdentityFailed  BookingStatus = "identity_failed"
	StatusPaymentPending  BookingStatus = "payment_pending"
	StatusConfirmed       BookingStatus = "confirmed"
	StatusCancelled       BookingStatus = "cancelled"
)

// transitions lists the legal next states. Identity verification is optional:
// a created booking may go straight to payment.
var transitions = map[BookingStatus][]BookingStatus{
	StatusCreated:         {StatusIdentityPending, StatusPaymentPending, StatusCancelled},
	StatusIdentityPending: {StatusIdentityPassed, StatusIdentityFailed},
	StatusIdentityPassed:  {StatusPaymentPending, StatusCancelled},
	StatusIdentityFailed:  {StatusCancelled},
	StatusPaymentPending:  {StatusConfirmed, StatusCancelled},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Booking is the gateway-side record of one initiated booking.
type Booking struct {
	ID          string
	GroupID     string
	RoomType    string
	GuestName   string
	GuestEmail  string
	AgentID     string
	PriceCents  int64
	RiskScore   float64
	LockToken   string
	SessionID   string
	CheckoutURL string
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition moves b to the next status or fails with ErrInvalidTransition.
func (b *Booking) Transition(to BookingStatus, at time.Time) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}
