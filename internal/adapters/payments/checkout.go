package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ancile/internal/domain"
)

// FlatFeeCents is the platform's fixed take per booking ($20.00).
const FlatFeeCents = 2000

var (
	ErrMarkupExceedsTotal = errors.New("markup cannot exceed total amount")
	ErrBadSignature       = errors.New("invalid webhook signature")
	ErrBadPayload         = errors.New("invalid webhook payload")
)

// Checkout issues hosted-checkout sessions. The platform is merchant of record:
// it keeps net + fee and transfers only the markup to the agent.
type Checkout struct {
	base   string
	secret []byte
}

func NewCheckout(base, webhookSecret string) *Checkout {
	return &Checkout{base: strings.TrimRight(base, "/"), secret: []byte(webhookSecret)}
}

func (c *Checkout) CreateSession(_ context.Context, guestEmail, roomName string, totalCents, markupCents int64) (domain.CheckoutSession, error) {
	if markupCents >= totalCents {
		return domain.CheckoutSession{}, fmt.Errorf("%w: markup %d, total %d", ErrMarkupExceedsTotal, markupCents, totalCents)
	}
	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	q := url.Values{}
	q.Set("session_id", id)
	q.Set("email", guestEmail)
	q.Set("item", "Booking: "+roomName)

	s := domain.CheckoutSession{
		SessionID:   id,
		CheckoutURL: c.base + "/checkout?" + q.Encode(),
		TotalCents:  totalCents,
		MarkupCents: markupCents,
		FeeCents:    FlatFeeCents,
		NetCents:    totalCents - markupCents - FlatFeeCents,
	}
	log.Info().Str("session", id).Int64("total_cents", totalCents).Int64("markup_cents", markupCents).Msg("checkout session created")
	return s, nil
}

// Sign returns the signature header value for payload.
func (c *Checkout) Sign(payload []byte) string {
	m := hmac.New(sha256.New, c.secret)
	m.Write(payload)
	return "sha256=" + hex.EncodeToString(m.Sum(nil))
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks the HMAC signature and parses the event. Without a
// secret every event is refused.
func (c *Checkout) VerifyWebhook(payload []byte, signature string) (domain.WebhookEvent, error) {
	if len(c.secret) == 0 {
		return domain.WebhookEvent{}, domain.ErrWebhookDisabled
	}
	if !hmac.Equal([]byte(c.Sign(payload)), []byte(strings.TrimSpace(signature))) {
		return domain.WebhookEvent{}, ErrBadSignature
	}
	var b webhookBody
	if err := json.Unmarshal(payload, &b); err != nil || b.Type == "" {
		return domain.WebhookEvent{}, ErrBadPayload
	}
	return domain.WebhookEvent{Type: b.Type, SessionID: b.Data.Object.ID}, nil
}
