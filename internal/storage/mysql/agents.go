package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ancile/internal/domain"
)

// LinkReferral records c.ReferrerID as the referrer of c.NewAgentID, creating
// either agent row when missing.
func (r *Repo) LinkReferral(ctx context.Context, c domain.Conversion, at time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, ensureAgentSQL, c.ReferrerID, at); err != nil {
		return err
	}

	var current sql.NullString
	err = tx.QueryRowContext(ctx, lockAgentSQL, c.NewAgentID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx, insertReferredAgentSQL, c.NewAgentID, c.NewAgentName, c.ReferrerID, at); err != nil {
			return err
		}
	case err != nil:
		return err
	case !current.Valid:
		if _, err = tx.ExecContext(ctx, setReferrerSQL, c.ReferrerID, c.NewAgentName, c.NewAgentName, c.NewAgentID); err != nil {
			return err
		}
	case current.String != c.ReferrerID:
		err = fmt.Errorf("%w: %s is linked to %s", domain.ErrAlreadyReferred, c.NewAgentID, current.String)
		return err
	}
	return tx.Commit()
}

func (r *Repo) NetworkVolume(ctx context.Context, referrerID string) ([]domain.AgentVolume, error) {
	rows, err := r.db.QueryContext(ctx, networkVolumeSQL, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AgentVolume
	for rows.Next() {
		var v domain.AgentVolume
		if err := rows.Scan(&v.AgentID, &v.VolumeCents); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
