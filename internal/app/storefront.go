package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ancile/internal/domain"
)

type FallbackMode string

const (
	// FallbackMock serves MockInventory when the gateway fails.
	FallbackMock FallbackMode = "mock"
	// FallbackNone surfaces the failure to the caller.
	FallbackNone FallbackMode = "none"
)

// ParseFallbackMode accepts "mock", "none" or empty (mock). Unknown values
// return FallbackMock with an error so the caller can report them.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch m := FallbackMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", FallbackMock:
		return FallbackMock, nil
	case FallbackNone:
		return FallbackNone, nil
	default:
		return FallbackMock, fmt.Errorf("unknown fallback mode %q", s)
	}
}

const (
	SourceLive = "live"
	SourceMock = "mock"
)

// ErrInventoryUnavailable wraps gateway failures when no fallback is configured.
var ErrInventoryUnavailable = errors.New("failed to load live inventory")

type Inventory struct {
	Subdomain string
	GroupID   string
	Name      string
	Source    string // live|mock
	Cards     []domain.RoomCard
	Err       error // gateway failure that was masked by the mock fallback
}

type Storefront struct {
	gw       domain.GatewayClient
	fallback FallbackMode
	defaults IntentDefaults
}

func NewStorefront(gw domain.GatewayClient, mode FallbackMode, d IntentDefaults) *Storefront {
	if mode == "" {
		mode = FallbackMock
	}
	return &Storefront{gw: gw, fallback: mode, defaults: d}
}

// LoadInventory fetches a group's rooms and turns them into labeled cards.
func (s *Storefront) LoadInventory(ctx context.Context, subdomain string) (Inventory, error) {
	g, err := s.gw.GetGroup(ctx, subdomain)
	if err != nil {
		if s.fallback != FallbackMock {
			return Inventory{Subdomain: subdomain}, fmt.Errorf("%w: %w", ErrInventoryUnavailable, err)
		}
		log.Warn().Err(err).Str("group", subdomain).Msg("gateway unavailable, falling back to mock inventory")
		return Inventory{
			Subdomain: subdomain,
			GroupID:   subdomain,
			Source:    SourceMock,
			Cards:     BuildCards(MockInventory()),
			Err:       err,
		}, nil
	}

	inv := Inventory{
		Subdomain: subdomain,
		GroupID:   g.GroupID,
		Name:      g.Name,
		Source:    SourceLive,
		Cards:     BuildCards(g.Inventory),
	}
	for _, c := range inv.Cards {
		if len(c.Issues) > 0 {
			log.Debug().Str("room", c.Offering.DisplayName).Strs("issues", c.Issues).Msg("room record defaulted")
		}
	}
	return inv, nil
}

// LoadMany loads several groups with at most workers requests in flight.
// Results keep the order of subdomains; failed loads carry their error.
func (s *Storefront) LoadMany(ctx context.Context, subdomains []string, workers int) ([]Inventory, []error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Inventory, len(subdomains))
	errs := make([]error, len(subdomains))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, sd := range subdomains {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, sd string) {
			defer wg.Done()
			defer sem.Release(1)
			out[i], errs[i] = s.LoadInventory(ctx, sd)
		}(i, sd)
	}
	wg.Wait()
	return out, errs
}

// NewModal opens a booking modal bound to the group the inventory came from.
func (s *Storefront) NewModal(inv Inventory) *BookingModal {
	d := s.defaults
	if d.GroupID == "" {
		d.GroupID = inv.GroupID
	}
	if d.GroupID == "" {
		d.GroupID = inv.Subdomain
	}
	return NewBookingModal(s.gw, d)
}

// VerifyGuest runs the identity check and renders the result the way the
// booking modal shows it.
func (s *Storefront) VerifyGuest(ctx context.Context, req domain.IdentityRequest) (domain.IdentityResult, string, error) {
	res, err := s.gw.VerifyIdentity(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("identity verification failed")
		return domain.IdentityResult{}, "Identity Verification Node Offline.", err
	}
	msg := fmt.Sprintf("Identity Verification: %s\nRisk Level: %s\nFacial Match: %s%%",
		strings.ToUpper(res.Status), res.RiskAssessment,
		strconv.FormatFloat(res.FacialMatchProbability*100, 'f', 2, 64))
	return res, msg, nil
}
