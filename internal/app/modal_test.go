package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ancile/internal/adapters/ancile"
	"ancile/internal/app"
	"ancile/internal/domain"
)

var demoDefaults = app.IntentDefaults{GroupID: "grp_12345", LeadTimeDays: 90, OriginCity: "New York", AgentID: "web-direct"}

var guest = app.BookingForm{GuestName: "Ada Lovelace", GuestEmail: "ada@example.com", RelationToHost: "Friend"}

func newModal(t *testing.T, h http.HandlerFunc) (*app.BookingModal, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := ancile.New(ts.URL, 10)
	if err != nil {
		t.Fatal(err)
	}
	return app.NewBookingModal(c, demoDefaults), ts
}

func openSuite(m *app.BookingModal) {
	m.Open(app.NormalizeRoom(app.MockInventory()[0]))
}

func TestSubmit_SuccessSurfacesRiskAndCheckout(t *testing.T) {
	var got domain.BookingIntent
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings/initiate" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"risk_score":12,"checkout_url":"https://x","lock_token":"tok"}`))
	})
	openSuite(m)

	out, err := m.Submit(context.Background(), guest)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.OK || out.RiskScore != 12 || out.CheckoutURL != "https://x" {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.Contains(out.Message, "Risk Score: 12") || !strings.Contains(out.Message, "Checkout: https://x") {
		t.Fatalf("message = %q", out.Message)
	}
	if m.IsOpen() {
		t.Fatalf("modal should close after success")
	}
	if m.State() != app.StateIdle {
		t.Fatalf("state = %s", m.State())
	}

	want := domain.BookingIntent{
		GroupID: "grp_12345", RoomType: "Royal Ocean Suite", GuestName: "Ada Lovelace",
		GuestEmail: "ada@example.com", RelationToHost: "Friend", RoomPrice: 450,
		BookingLeadTime: 90, OriginCity: "New York", AgentID: "web-direct",
	}
	if got != want {
		t.Fatalf("intent = %+v, want %+v", got, want)
	}
}

func TestSubmit_FailureShowsDetailVerbatim(t *testing.T) {
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Room unavailable"}`))
	})
	openSuite(m)

	out, err := m.Submit(context.Background(), guest)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.OK || out.Detail != "Room unavailable" {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Message != "Booking Error: Room unavailable" {
		t.Fatalf("message = %q", out.Message)
	}
	if !m.IsOpen() || m.State() != app.StateIdle {
		t.Fatalf("modal should stay open and re-enabled: open=%v state=%s", m.IsOpen(), m.State())
	}
}

func TestSubmit_FailureWithoutDetail(t *testing.T) {
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	openSuite(m)

	out, _ := m.Submit(context.Background(), guest)
	if out.Detail != app.GenericFailureDetail {
		t.Fatalf("detail = %q", out.Detail)
	}
}

func TestSubmit_HTMLErrorPageIsNotShown(t *testing.T) {
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html><body>502 Bad Gateway</body></html>`))
	})
	openSuite(m)

	out, err := m.Submit(context.Background(), guest)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Detail != app.GenericFailureDetail || out.Message != "Booking Error: Booking Failed" {
		t.Fatalf("outcome = %+v", out)
	}
	if !m.IsOpen() || m.State() != app.StateIdle {
		t.Fatalf("open=%v state=%s", m.IsOpen(), m.State())
	}
}

func TestSubmit_NetworkFailure(t *testing.T) {
	m, ts := newModal(t, func(w http.ResponseWriter, r *http.Request) {})
	ts.Close()
	openSuite(m)

	out, err := m.Submit(context.Background(), guest)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Detail != app.NetworkFailureDetail || !m.IsOpen() {
		t.Fatalf("outcome = %+v open=%v", out, m.IsOpen())
	}
}

func TestSubmit_BackToBackIsOneRequest(t *testing.T) {
	var hits int32
	arrived := make(chan struct{})
	unblock := make(chan struct{})
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(arrived)
		}
		<-unblock
		_, _ = w.Write([]byte(`{"risk_score":0.15,"checkout_url":"https://x"}`))
	})
	openSuite(m)

	done := make(chan app.Outcome, 1)
	go func() {
		out, _ := m.Submit(context.Background(), guest)
		done <- out
	}()

	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never reached the server")
	}
	if m.State() != app.StateSubmitting {
		t.Fatalf("state = %s, want submitting", m.State())
	}
	if _, err := m.Submit(context.Background(), guest); !errors.Is(err, app.ErrSubmissionInFlight) {
		t.Fatalf("second submit err = %v", err)
	}
	close(unblock)

	out := <-done
	if !out.OK {
		t.Fatalf("first submission outcome = %+v", out)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}
}

func TestSubmit_Guards(t *testing.T) {
	var hits int32
	m, _ := newModal(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	if _, err := m.Submit(context.Background(), guest); !errors.Is(err, app.ErrModalClosed) {
		t.Fatalf("closed modal err = %v", err)
	}
	openSuite(m)
	if _, err := m.Submit(context.Background(), app.BookingForm{GuestName: "Ada", GuestEmail: " "}); !errors.Is(err, app.ErrMissingField) {
		t.Fatalf("missing field err = %v", err)
	}
	m.Close()
	if m.IsOpen() {
		t.Fatal("Close did not close")
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("guards must not hit the network, got %d requests", n)
	}
}

func TestOpen_CapturesPriceAtOpenTime(t *testing.T) {
	m := app.NewBookingModal(nil, demoDefaults)
	room := app.NormalizeRoom(domain.RawRoom{"name": "Deluxe Twin", "price": 195.0})
	m.Open(room)
	room.NightlyPrice = 999
	name, price := m.Selected()
	if name != "Deluxe Twin" || price != 195 {
		t.Fatalf("selected = %s %v", name, price)
	}
}
