//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"ancile/internal/domain"
	mysqlrepo "ancile/internal/storage/mysql"
)

// migrationsDir honours MIGRATIONS_DIR and falls back to the repo's migrations/.
func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=ancile",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/ancile?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_GroupsBlocksBookings(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// seeded by 002_seed_demo.sql
	g, err := repo.GetGroup(ctx, "demo")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.ID != "grp_12345" || len(g.Blocks) != 2 || g.Blocks[0].RoomType != "DELUXE_OCEAN" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if byID, err := repo.GetGroup(ctx, "grp_12345"); err != nil || byID.Subdomain != "demo" {
		t.Fatalf("lookup by id: %+v %v", byID, err)
	}
	if _, err := repo.GetGroup(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	b, err := repo.GetBlock(ctx, "demo", "STANDARD_GARDEN")
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if b.GroupID != "grp_12345" || b.TotalAllocated != 20 || b.TotalBooked != 15 {
		t.Fatalf("unexpected block: %+v", b)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	bk := domain.Booking{
		ID: "0b7e5f5e-8f3c-4c55-9d3e-1a2b3c4d5e6f", GroupID: "grp_12345", RoomType: "DELUXE_OCEAN",
		GuestName: "Ana", GuestEmail: "ana@example.com", AgentID: "web-direct",
		PriceCents: 25000, RiskScore: 0.15, LockToken: "5a0e5c1e-0000-4000-8000-000000000001",
		SessionID: "cs_1", CheckoutURL: "https://pay.example/checkout?session_id=cs_1",
		Status: domain.StatusPaymentPending, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.SaveBooking(ctx, bk); err != nil {
		t.Fatalf("SaveBooking: %v", err)
	}
	got, err := repo.GetBookingBySession(ctx, "cs_1")
	if err != nil {
		t.Fatalf("GetBookingBySession: %v", err)
	}
	if got.ID != bk.ID || got.Status != domain.StatusPaymentPending || got.PriceCents != 25000 {
		t.Fatalf("unexpected booking: %+v", got)
	}

	confirmed := got
	if err := confirmed.Transition(domain.StatusConfirmed, now.Add(time.Second)); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := repo.ConfirmBooking(ctx, confirmed, domain.StatusPaymentPending); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	again, _ := repo.GetBookingBySession(ctx, "cs_1")
	if again.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s", again.Status)
	}
	ocean, _ := repo.GetBlock(ctx, "grp_12345", "DELUXE_OCEAN")
	if ocean.TotalBooked != 39 {
		t.Fatalf("booked = %d, want 39", ocean.TotalBooked)
	}

	// a second confirm from a stale read changes nothing
	if err := repo.ConfirmBooking(ctx, confirmed, domain.StatusPaymentPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	ocean, _ = repo.GetBlock(ctx, "grp_12345", "DELUXE_OCEAN")
	if ocean.TotalBooked != 39 {
		t.Fatalf("booked after replay = %d, want 39", ocean.TotalBooked)
	}
	cancelled := got
	_ = cancelled.Transition(domain.StatusCancelled, now)
	if err := repo.UpdateStatus(ctx, cancelled, domain.StatusPaymentPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	regions, err := repo.ListRegions(ctx)
	if err != nil || len(regions) != 2 {
		t.Fatalf("ListRegions: %+v %v", regions, err)
	}
	if regions[0].City != "Bali" || regions[0].Alert != "CRITICAL: Shortage of 730 rooms. Acquire inventory now." {
		t.Fatalf("unexpected first region: %+v", regions[0])
	}
}

func TestRepo_MySQL_ConfirmRollsBackWhenBlockIsFull(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	if _, err := db.Exec(`UPDATE inventory_blocks SET total_booked = total_allocated WHERE room_type = 'DELUXE_OCEAN'`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	bk := domain.Booking{
		ID: "1c2d3e4f-0000-4000-8000-000000000002", GroupID: "grp_12345", RoomType: "DELUXE_OCEAN",
		GuestName: "Ben", GuestEmail: "ben@example.com", AgentID: "web-direct",
		PriceCents: 25000, RiskScore: 0.15, LockToken: "5a0e5c1e-0000-4000-8000-000000000002",
		SessionID: "cs_full", CheckoutURL: "https://pay.example/checkout?session_id=cs_full",
		Status: domain.StatusPaymentPending, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.SaveBooking(ctx, bk); err != nil {
		t.Fatalf("SaveBooking: %v", err)
	}
	confirmed := bk
	_ = confirmed.Transition(domain.StatusConfirmed, now)
	if err := repo.ConfirmBooking(ctx, confirmed, domain.StatusPaymentPending); !errors.Is(err, domain.ErrInventoryFull) {
		t.Fatalf("expected ErrInventoryFull, got %v", err)
	}
	got, _ := repo.GetBookingBySession(ctx, "cs_full")
	if got.Status != domain.StatusPaymentPending {
		t.Fatalf("status change was not rolled back: %s", got.Status)
	}
}

func TestRepo_MySQL_Referrals(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	link := domain.Conversion{NewAgentID: "agt_b", NewAgentName: "Sarah Smith Travel", ReferrerID: "agt_a"}
	if err := repo.LinkReferral(ctx, link, now); err != nil {
		t.Fatalf("LinkReferral: %v", err)
	}
	if err := repo.LinkReferral(ctx, link, now); err != nil {
		t.Fatalf("same link twice should be a no-op: %v", err)
	}
	other := domain.Conversion{NewAgentID: "agt_b", ReferrerID: "agt_c"}
	if err := repo.LinkReferral(ctx, other, now); !errors.Is(err, domain.ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
	// the existing unreferred seed agent can still be claimed
	if err := repo.LinkReferral(ctx, domain.Conversion{NewAgentID: "web-direct", ReferrerID: "agt_a"}, now); err != nil {
		t.Fatalf("claim existing agent: %v", err)
	}

	for i, st := range []domain.BookingStatus{domain.StatusConfirmed, domain.StatusConfirmed, domain.StatusPaymentPending} {
		bk := domain.Booking{
			ID: fmt.Sprintf("2d3e4f5a-0000-4000-8000-00000000001%d", i), GroupID: "grp_12345", RoomType: "DELUXE_OCEAN",
			GuestName: "G", GuestEmail: "g@example.com", AgentID: "agt_b",
			PriceCents: 100000, RiskScore: 0.15, LockToken: fmt.Sprintf("5a0e5c1e-0000-4000-8000-00000000001%d", i),
			SessionID: fmt.Sprintf("cs_ref_%d", i), CheckoutURL: "https://pay.example/checkout",
			Status: st, CreatedAt: now, UpdatedAt: now,
		}
		if err := repo.SaveBooking(ctx, bk); err != nil {
			t.Fatalf("SaveBooking: %v", err)
		}
	}

	vols, err := repo.NetworkVolume(ctx, "agt_a")
	if err != nil {
		t.Fatalf("NetworkVolume: %v", err)
	}
	if len(vols) != 2 || vols[0].AgentID != "agt_b" || vols[0].VolumeCents != 200000 || vols[1].VolumeCents != 0 {
		t.Fatalf("volumes = %+v", vols)
	}
}
