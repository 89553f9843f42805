package domain

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInventoryFull     = errors.New("inventory fully allocated or held")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrPayment           = errors.New("payment gateway error")
	// ErrWebhookDisabled means no signing secret is configured, so no event can be trusted.
	ErrWebhookDisabled = errors.New("webhook signing secret not configured")
	ErrAlreadyReferred = errors.New("agent already referred by another agent")
)

type GroupRepository interface {
	GetGroup(ctx context.Context, subdomain string) (Group, error)
	GetBlock(ctx context.Context, groupID, roomType string) (InventoryBlock, error)
	ListRegions(ctx context.Context) ([]Region, error)
}

// BookingRepository writes status changes only when the stored status still
// equals from; otherwise they fail with ErrInvalidTransition.
type BookingRepository interface {
	SaveBooking(ctx context.Context, b Booking) error
	GetBookingBySession(ctx context.Context, sessionID string) (Booking, error)
	UpdateStatus(ctx context.Context, b Booking, from BookingStatus) error
	// ConfirmBooking stores b's status and counts one more booked unit on its
	// block, atomically. Nothing changes when either step fails.
	ConfirmBooking(ctx context.Context, b Booking, from BookingStatus) error
}

// AgentRepository stores the referral tree. LinkReferral is idempotent for
// the same referrer and fails with ErrAlreadyReferred for a different one.
type AgentRepository interface {
	LinkReferral(ctx context.Context, c Conversion, at time.Time) error
	NetworkVolume(ctx context.Context, referrerID string) ([]AgentVolume, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// InventoryLocker holds a unit of a room block while the guest pays.
type InventoryLocker interface {
	ActiveLocks(ctx context.Context, groupID, roomType string) (int, error)
	Acquire(ctx context.Context, groupID, roomType string, ttl time.Duration) (string, error)
	Release(ctx context.Context, groupID, roomType, token string) error
}

type RiskScorer interface {
	Score(ctx context.Context, intent BookingIntent) (float64, error)
}

type CheckoutProvider interface {
	CreateSession(ctx context.Context, guestEmail, roomName string, totalCents, markupCents int64) (CheckoutSession, error)
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// GatewayClient is the storefront's view of the booking gateway.
type GatewayClient interface {
	GetGroup(ctx context.Context, subdomain string) (GroupView, error)
	InitiateBooking(ctx context.Context, in BookingIntent) (BookingResult, error)
	VerifyIdentity(ctx context.Context, in IdentityRequest) (IdentityResult, error)
}

// RemoteError is a non-2xx answer from the gateway. Detail carries the
// server's problem `detail` member verbatim and is empty when it sent none.
// Body keeps the raw response text for logs; it is never shown to guests.
type RemoteError struct {
	Status int
	Detail string
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return "remote status " + strconv.Itoa(e.Status)
	}
	return e.Detail
}
