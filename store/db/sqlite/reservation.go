package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

func (d *DB) CreateReservation(ctx context.Context, create *store.Reservation) (*store.Reservation, error) {
	details, err := store.MarshalReservationDetails(create.Details)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal reservation details")
	}
	stmt := "INSERT INTO `reservation` (`id`, `user_id`, `details`, `has_completed_payment`) VALUES (?, ?, ?, ?) RETURNING `created_ts`"
	if err := d.db.QueryRowContext(ctx, stmt, create.ID, create.UserID, details, create.HasCompletedPayment).Scan(&create.CreatedTs); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListReservations(ctx context.Context, find *store.FindReservation) ([]*store.Reservation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "`id` = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "`user_id` = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		"SELECT `id`, `user_id`, `details`, `has_completed_payment`, `created_ts` FROM `reservation` WHERE %s ORDER BY `created_ts` DESC",
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Reservation{}
	for rows.Next() {
		r := &store.Reservation{}
		var details string
		if err := rows.Scan(&r.ID, &r.UserID, &details, &r.HasCompletedPayment, &r.CreatedTs); err != nil {
			return nil, err
		}
		if r.Details, err = store.UnmarshalReservationDetails(details); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal details of reservation %s", r.ID)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (d *DB) UpdateReservation(ctx context.Context, update *store.UpdateReservation) (*store.Reservation, error) {
	set, args := []string{}, []any{}
	if v := update.HasCompletedPayment; v != nil {
		set, args = append(set, "`has_completed_payment` = ?"), append(args, *v)
	}
	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := fmt.Sprintf("UPDATE `reservation` SET %s WHERE `id` = ?", strings.Join(set, ", "))
		if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
			return nil, err
		}
	}
	list, err := d.ListReservations(ctx, &store.FindReservation{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("reservation %s not found", update.ID)
	}
	return list[0], nil
}
