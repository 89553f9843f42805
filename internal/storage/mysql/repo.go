package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ancile/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetGroup(ctx context.Context, subdomain string) (domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRowContext(ctx, getGroupSQL, subdomain, subdomain).
		Scan(&g.ID, &g.Subdomain, &g.Name, &g.HeroImage, &g.EventDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Group{}, domain.ErrNotFound
		}
		return domain.Group{}, err
	}

	rows, err := r.db.QueryContext(ctx, listBlocksSQL, g.ID)
	if err != nil {
		return domain.Group{}, err
	}
	defer rows.Close()

	for rows.Next() {
		b := domain.InventoryBlock{GroupID: g.ID, Subdomain: g.Subdomain}
		if err := rows.Scan(&b.RoomType, &b.Price, &b.TotalAllocated, &b.TotalBooked); err != nil {
			return domain.Group{}, err
		}
		g.Blocks = append(g.Blocks, b)
	}
	return g, rows.Err()
}

func (r *Repo) GetBlock(ctx context.Context, groupID, roomType string) (domain.InventoryBlock, error) {
	var b domain.InventoryBlock
	err := r.db.QueryRowContext(ctx, getBlockSQL, groupID, groupID, roomType).
		Scan(&b.GroupID, &b.Subdomain, &b.RoomType, &b.Price, &b.TotalAllocated, &b.TotalBooked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InventoryBlock{}, domain.ErrNotFound
		}
		return domain.InventoryBlock{}, err
	}
	return b, nil
}

func (r *Repo) ListRegions(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.db.QueryContext(ctx, listRegionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		var rg domain.Region
		if err := rows.Scan(&rg.City, &rg.Country, &rg.Month, &rg.DemandScore, &rg.SupplyRooms); err != nil {
			return nil, err
		}
		rg.Alert = regionAlert(rg)
		out = append(out, rg)
	}
	return out, rows.Err()
}

func regionAlert(rg domain.Region) string {
	if gap := rg.DemandScore - rg.SupplyRooms; gap > 0 {
		return fmt.Sprintf("CRITICAL: Shortage of %d rooms. Acquire inventory now.", gap)
	}
	return "Stable: Surplus inventory."
}

func (r *Repo) SaveBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID, b.GroupID, b.RoomType, b.GuestName, b.GuestEmail, b.AgentID,
		b.PriceCents, b.RiskScore, b.LockToken, b.SessionID, b.CheckoutURL,
		string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (r *Repo) GetBookingBySession(ctx context.Context, sessionID string) (domain.Booking, error) {
	var b domain.Booking
	var status string
	err := r.db.QueryRowContext(ctx, getBookingBySessionSQL, sessionID).Scan(
		&b.ID, &b.GroupID, &b.RoomType, &b.GuestName, &b.GuestEmail, &b.AgentID,
		&b.PriceCents, &b.RiskScore, &b.LockToken, &b.SessionID, &b.CheckoutURL,
		&status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	return b, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, b domain.Booking, from domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, string(b.Status), b.UpdatedAt, b.ID, string(from))
	if err != nil {
		return err
	}
	return expectOneRow(res, fmt.Errorf("%w: booking %s is no longer %s", domain.ErrInvalidTransition, b.ID, from))
}

// ConfirmBooking runs the guarded status update and the booked-count increment
// in one transaction.
func (r *Repo) ConfirmBooking(ctx context.Context, b domain.Booking, from domain.BookingStatus) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, updateBookingStatusSQL, string(b.Status), b.UpdatedAt, b.ID, string(from))
	if err != nil {
		return err
	}
	if err = expectOneRow(res, fmt.Errorf("%w: booking %s is no longer %s", domain.ErrInvalidTransition, b.ID, from)); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, incrementBookedSQL, b.GroupID, b.RoomType)
	if err != nil {
		return err
	}
	if err = expectOneRow(res, fmt.Errorf("%w: %s/%s", domain.ErrInventoryFull, b.GroupID, b.RoomType)); err != nil {
		return err
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
