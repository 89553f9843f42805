package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ancile/internal/adapters/observability"
	"ancile/internal/domain"
)

// DefaultMarkupCents is the agent's share of every booking ($50.00).
const DefaultMarkupCents = 5000

// fallbackRisk is used when the scorer fails.
const fallbackRisk = 0.5

type BookingService struct {
	groups   domain.GroupRepository
	bookings domain.BookingRepository
	locks    domain.InventoryLocker
	risk     domain.RiskScorer
	pay      domain.CheckoutProvider
	cache    *GroupService

	lockTTL     time.Duration
	markupCents int64
	now         func() time.Time
}

type BookingDeps struct {
	Groups   domain.GroupRepository
	Bookings domain.BookingRepository
	Locks    domain.InventoryLocker
	Risk     domain.RiskScorer
	Payments domain.CheckoutProvider
	GroupSvc *GroupService
}

func NewBookingService(d BookingDeps, lockTTL time.Duration) *BookingService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &BookingService{
		groups:      d.Groups,
		bookings:    d.Bookings,
		locks:       d.Locks,
		risk:        d.Risk,
		pay:         d.Payments,
		cache:       d.GroupSvc,
		lockTTL:     lockTTL,
		markupCents: DefaultMarkupCents,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Initiate scores the guest, holds one unit of the room block, and opens a
// checkout session. A payment setup failure releases the hold.
func (s *BookingService) Initiate(ctx context.Context, in domain.BookingIntent) (domain.BookingResult, error) {
	risk, err := s.risk.Score(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("risk scoring failed")
		risk = fallbackRisk
	}
	log.Info().Float64("risk_score", risk).Str("group", in.GroupID).Msg("guest risk score")

	block, err := s.groups.GetBlock(ctx, in.GroupID, in.RoomType)
	if err != nil {
		return domain.BookingResult{}, fmt.Errorf("room block %s/%s: %w", in.GroupID, in.RoomType, err)
	}

	token, err := s.hold(ctx, block)
	if err != nil {
		observability.ObserveBooking("gateway", "sold_out")
		return domain.BookingResult{}, err
	}

	total := int64(math.Round(in.RoomPrice * 100))
	sess, err := s.pay.CreateSession(ctx, in.GuestEmail, in.RoomType, total, s.markupCents)
	if err != nil {
		s.release(ctx, block, token)
		log.Error().Err(err).Msg("payment init failed")
		observability.ObserveBooking("gateway", "payment_error")
		return domain.BookingResult{}, fmt.Errorf("%w: %w", domain.ErrPayment, err)
	}

	now := s.now()
	b := domain.Booking{
		ID:          uuid.NewString(),
		GroupID:     block.GroupID,
		RoomType:    block.RoomType,
		GuestName:   in.GuestName,
		GuestEmail:  in.GuestEmail,
		AgentID:     in.AgentID,
		PriceCents:  total,
		RiskScore:   risk,
		LockToken:   token,
		SessionID:   sess.SessionID,
		CheckoutURL: sess.CheckoutURL,
		Status:      domain.StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.Transition(domain.StatusPaymentPending, now); err != nil {
		s.release(ctx, block, token)
		return domain.BookingResult{}, err
	}
	if err := s.bookings.SaveBooking(ctx, b); err != nil {
		s.release(ctx, block, token)
		return domain.BookingResult{}, fmt.Errorf("save booking: %w", err)
	}

	observability.ObserveBooking("gateway", "locked")
	return domain.BookingResult{LockToken: token, CheckoutURL: sess.CheckoutURL, RiskScore: risk}, nil
}

// hold counts confirmed bookings plus active holds against the allocation
// before taking a new hold. Count-then-set is not atomic; two racing guests
// can both pass the check for the last unit.
func (s *BookingService) hold(ctx context.Context, block domain.InventoryBlock) (string, error) {
	active, err := s.locks.ActiveLocks(ctx, block.GroupID, block.RoomType)
	if err != nil {
		return "", fmt.Errorf("count locks: %w", err)
	}
	if block.Remaining(active) <= 0 {
		log.Warn().
			Int("allocated", block.TotalAllocated).
			Int("booked", block.TotalBooked).
			Int("active_locks", active).
			Msg("inventory full")
		return "", domain.ErrInventoryFull
	}
	return s.locks.Acquire(ctx, block.GroupID, block.RoomType, s.lockTTL)
}

func (s *BookingService) release(ctx context.Context, block domain.InventoryBlock, token string) {
	if err := s.locks.Release(ctx, block.GroupID, block.RoomType, token); err != nil {
		log.Error().Err(err).Str("token", token).Msg("lock release failed")
	}
}

// HandleWebhook applies a verified payment event. It reports whether the event
// changed anything.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	ev, err := s.pay.VerifyWebhook(payload, signature)
	if err != nil {
		return false, err
	}
	switch ev.Type {
	case domain.EventCheckoutCompleted:
		return true, s.ConfirmCheckout(ctx, ev.SessionID)
	case domain.EventCheckoutExpired:
		return true, s.CancelCheckout(ctx, ev.SessionID)
	default:
		return false, nil
	}
}

// ConfirmCheckout commits the held unit: booked count +1, hold released.
// The status change and the count are stored together, so a webhook retried
// after a failed write cannot count the unit twice.
func (s *BookingService) ConfirmCheckout(ctx context.Context, sessionID string) error {
	b, err := s.bookings.GetBookingBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	from := b.Status
	if err := b.Transition(domain.StatusConfirmed, s.now()); err != nil {
		return err
	}
	if err := s.bookings.ConfirmBooking(ctx, b, from); err != nil {
		return fmt.Errorf("confirm booking %s: %w", b.ID, err)
	}
	block := domain.InventoryBlock{GroupID: b.GroupID, RoomType: b.RoomType}
	s.release(ctx, block, b.LockToken)
	if s.cache != nil {
		if full, err := s.groups.GetBlock(ctx, b.GroupID, b.RoomType); err == nil {
			block = full
		}
		s.cache.Invalidate(ctx, block)
	}
	log.Info().Str("session", sessionID).Str("booking", b.ID).Msg("payment confirmed, inventory committed")
	observability.ObserveBooking("gateway", "confirmed")
	return nil
}

// CancelCheckout gives the held unit back.
func (s *BookingService) CancelCheckout(ctx context.Context, sessionID string) error {
	b, err := s.bookings.GetBookingBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	from := b.Status
	if err := b.Transition(domain.StatusCancelled, s.now()); err != nil {
		return err
	}
	if err := s.bookings.UpdateStatus(ctx, b, from); err != nil {
		return fmt.Errorf("cancel booking %s: %w", b.ID, err)
	}
	s.release(ctx, domain.InventoryBlock{GroupID: b.GroupID, RoomType: b.RoomType}, b.LockToken)
	observability.ObserveBooking("gateway", "cancelled")
	return nil
}

// IsConflict reports errors that mean "already handled" for webhook retries.
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition)
}
