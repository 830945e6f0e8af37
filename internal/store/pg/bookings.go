package pg

import (
	"context"

	"jamaat.org/internal/listing"
)

// CreateBooking inserts the booking and takes a seat in one transaction. The
// capacity guard lives in the update so concurrent bookings cannot oversell.
func (s *Store) CreateBooking(ctx context.Context, b *listing.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into bookings(id, event_id, user_id, booked_at)
		values ($1,$2,$3,$4)
	`, b.ID, b.Event, b.User, b.BookedAt); err != nil {
		return translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	res, err := tx.ExecContext(ctx, `
		update events set booked_count = booked_count + 1
		where id = $1 and (capacity = 0 or booked_count < capacity)
	`, b.Event)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return listing.ErrEventFull
	}
	return tx.Commit()
}

func (s *Store) GetBooking(ctx context.Context, id string) (*listing.Booking, error) {
	var b listing.Booking
	err := s.db.QueryRowContext(ctx, `
		select id, event_id, user_id, booked_at from bookings where id = $1
	`, id).Scan(&b.ID, &b.Event, &b.User, &b.BookedAt)
	if err != nil {
		return nil, translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	return &b, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]listing.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, event_id, user_id, booked_at from bookings
		where user_id = $1
		order by booked_at asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []listing.Booking
	for rows.Next() {
		var b listing.Booking
		if err := rows.Scan(&b.ID, &b.Event, &b.User, &b.BookedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBooking removes the booking and releases its seat.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var eventID string
	err = tx.QueryRowContext(ctx, `delete from bookings where id = $1 returning event_id`, id).Scan(&eventID)
	if err != nil {
		return translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	if _, err := tx.ExecContext(ctx, `
		update events set booked_count = greatest(booked_count - 1, 0) where id = $1
	`, eventID); err != nil {
		return err
	}
	return tx.Commit()
}
