package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"ancile/internal/adapters/ancile"
	"ancile/internal/adapters/observability"
	"ancile/internal/app"
	"ancile/internal/domain"
	"ancile/internal/shared"
)

func main() {
	cfg := shared.Load()

	var (
		groups   = flag.String("groups", cfg.AncileGroup, "comma-separated group subdomains to list")
		book     = flag.String("book", "", "room name to book from the first group")
		name     = flag.String("name", "", "guest name")
		email    = flag.String("email", "", "guest email")
		relation = flag.String("relation", "", "relation to host")
		passport = flag.String("passport", "", "verify this passport number before booking")
		idType   = flag.String("id-type", "passport", "identity document type")
	)
	flag.Parse()

	// logs go to stderr, cards to stdout
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ancile.New(cfg.AncileBase, cfg.AncileRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gateway client")
	}
	mode, err := app.ParseFallbackMode(cfg.FallbackMode)
	if err != nil {
		log.Warn().Err(err).Msg("using mock fallback")
	}
	sf := app.NewStorefront(client, mode, app.IntentDefaults{
		LeadTimeDays: cfg.LeadTimeDays,
		OriginCity:   cfg.OriginCity,
		AgentID:      cfg.AgentID,
	})

	subs := splitList(*groups)
	log.Info().Str("base", cfg.AncileBase).Strs("groups", subs).Int("workers", cfg.Workers).Msg("storefront starting")

	invs, errs := sf.LoadMany(ctx, subs, cfg.Workers)
	failed := 0
	for i, inv := range invs {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(os.Stdout, "%s: failed to load inventory: %v\n\n", subs[i], errs[i])
			continue
		}
		printInventory(os.Stdout, inv)
	}

	if *passport != "" {
		_, msg, err := sf.VerifyGuest(ctx, domain.IdentityRequest{GuestName: *name, PassportNumber: *passport, IDType: *idType})
		fmt.Fprintln(os.Stdout, msg)
		if err != nil {
			os.Exit(1)
		}
	}

	if *book != "" {
		if len(invs) == 0 || errs[0] != nil {
			log.Fatal().Msg("no inventory to book from")
		}
		os.Exit(submit(ctx, sf, invs[0], *book, app.BookingForm{GuestName: *name, GuestEmail: *email, RelationToHost: *relation}))
	}

	if failed == len(subs) {
		os.Exit(1)
	}
}

func submit(ctx context.Context, sf *app.Storefront, inv app.Inventory, room string, form app.BookingForm) int {
	var offer *domain.RoomOffering
	for i := range inv.Cards {
		if strings.EqualFold(inv.Cards[i].Offering.DisplayName, room) {
			offer = &inv.Cards[i].Offering
			break
		}
	}
	if offer == nil {
		fmt.Fprintf(os.Stdout, "no room named %q in %s\n", room, inv.Subdomain)
		return 2
	}

	m := sf.NewModal(inv)
	m.Open(*offer)
	out, err := m.Submit(ctx, form)
	if errors.Is(err, app.ErrMissingField) {
		fmt.Fprintf(os.Stdout, "%v (use -name, -email, -relation)\n", err)
		return 2
	}
	if err != nil {
		log.Error().Err(err).Msg("submit failed")
		return 1
	}
	fmt.Fprintln(os.Stdout, out.Message)
	if !out.OK {
		return 1
	}
	return 0
}

func printInventory(w io.Writer, inv app.Inventory) {
	title := inv.Name
	if title == "" {
		title = inv.Subdomain
	}
	fmt.Fprintf(w, "%s [%s]\n", title, inv.Source)
	if inv.Source == app.SourceMock {
		fmt.Fprintf(w, "  (live inventory unavailable: %v)\n", inv.Err)
	}
	for _, c := range inv.Cards {
		o := c.Offering
		fmt.Fprintf(w, "  %-24s $%8.2f  %-20s %s\n", o.DisplayName, o.NightlyPrice, c.Stock.Text, strings.Join(o.Features, ", "))
		if len(c.Issues) > 0 {
			fmt.Fprintf(w, "    ! %s\n", strings.Join(c.Issues, "; "))
		}
	}
	fmt.Fprintln(w)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
