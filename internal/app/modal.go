package app

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"ancile/internal/adapters/observability"
	"ancile/internal/domain"
)

var (
	ErrModalClosed        = errors.New("booking modal is not open")
	ErrSubmissionInFlight = errors.New("a booking submission is already in flight")
	ErrMissingField       = errors.New("required field missing")
)

const (
	NetworkFailureDetail = "Network error: unable to reach booking service"
	GenericFailureDetail = "Booking Failed"
)

type SubmitState string

const (
	StateIdle       SubmitState = "idle"
	StateSubmitting SubmitState = "submitting"
)

// Booker is the one gateway call the modal needs.
type Booker interface {
	InitiateBooking(ctx context.Context, in domain.BookingIntent) (domain.BookingResult, error)
}

// IntentDefaults fills the intent fields the guest never types.
type IntentDefaults struct {
	GroupID      string
	LeadTimeDays int
	OriginCity   string
	AgentID      string
}

type BookingForm struct {
	GuestName      string
	GuestEmail     string
	RelationToHost string
}

// Outcome is what the guest is shown after a submission settles.
type Outcome struct {
	OK          bool
	RiskScore   float64
	CheckoutURL string
	LockToken   string
	Detail      string // failure detail, verbatim from the gateway when it sent one
	Message     string
}

// BookingModal owns the room selected at open time and the submit control.
// The price submitted is the one captured by Open; it is never re-read.
type BookingModal struct {
	booker   Booker
	defaults IntentDefaults

	mu    sync.Mutex
	open  bool
	room  string
	price float64
	state SubmitState
}

func NewBookingModal(b Booker, d IntentDefaults) *BookingModal {
	return &BookingModal{booker: b, defaults: d, state: StateIdle}
}

func (m *BookingModal) Open(o domain.RoomOffering) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	m.room = o.DisplayName
	m.price = o.NightlyPrice
}

// Close hides the modal. A pending submission still settles.
func (m *BookingModal) Close() {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
}

func (m *BookingModal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *BookingModal) State() SubmitState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Selected returns the room name and price captured at open time.
func (m *BookingModal) Selected() (string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room, m.price
}

// Submit sends one booking intent. While a submission is pending further calls
// return ErrSubmissionInFlight without touching the network. Gateway and network
// failures are reported in the Outcome, not as errors, and leave the modal open.
func (m *BookingModal) Submit(ctx context.Context, f BookingForm) (Outcome, error) {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return Outcome{}, ErrModalClosed
	}
	if m.state == StateSubmitting {
		m.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	if err := f.validate(); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	m.state = StateSubmitting
	intent := m.intent(f)
	m.mu.Unlock()

	res, err := m.booker.InitiateBooking(ctx, intent)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle

	if err != nil {
		out := failureOutcome(err)
		observability.ObserveBooking("client", "failed")
		log.Warn().Err(err).Str("room", intent.RoomType).Msg("booking submission failed")
		return out, nil
	}

	observability.ObserveBooking("client", "locked")
	// no redirect is performed; the checkout URL is only surfaced and logged
	log.Info().Str("checkout_url", res.CheckoutURL).Float64("risk_score", res.RiskScore).Msg("booking locked")
	m.open = false
	return Outcome{
		OK:          true,
		RiskScore:   res.RiskScore,
		CheckoutURL: res.CheckoutURL,
		LockToken:   res.LockToken,
		Message: "Booking Locked!\nRisk Score: " + strconv.FormatFloat(res.RiskScore, 'f', -1, 64) +
			"\nCheckout: " + res.CheckoutURL,
	}, nil
}

func (m *BookingModal) intent(f BookingForm) domain.BookingIntent {
	return domain.BookingIntent{
		GroupID:         m.defaults.GroupID,
		RoomType:        m.room,
		GuestName:       strings.TrimSpace(f.GuestName),
		GuestEmail:      strings.TrimSpace(f.GuestEmail),
		RelationToHost:  strings.TrimSpace(f.RelationToHost),
		RoomPrice:       m.price,
		BookingLeadTime: m.defaults.LeadTimeDays,
		OriginCity:      m.defaults.OriginCity,
		AgentID:         m.defaults.AgentID,
	}
}

func (f BookingForm) validate() error {
	switch {
	case strings.TrimSpace(f.GuestName) == "":
		return errors.Join(ErrMissingField, errors.New("guest name"))
	case strings.TrimSpace(f.GuestEmail) == "":
		return errors.Join(ErrMissingField, errors.New("guest email"))
	case strings.TrimSpace(f.RelationToHost) == "":
		return errors.Join(ErrMissingField, errors.New("relation to host"))
	}
	return nil
}

func failureOutcome(err error) Outcome {
	var re *domain.RemoteError
	detail := NetworkFailureDetail
	if errors.As(err, &re) {
		detail = re.Detail
		if detail == "" {
			detail = GenericFailureDetail
		}
	}
	return Outcome{Detail: detail, Message: "Booking Error: " + detail}
}
