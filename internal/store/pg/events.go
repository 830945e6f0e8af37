package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jamaat.org/internal/listing"
)

const eventColumns = `id, title, description, date, location, image, organiser_id, event_type, capacity, booked_count, mosque_id, created_at, updated_at`

func (s *Store) CreateEvent(ctx context.Context, e *listing.Event) error {
	_, err := s.db.ExecContext(ctx, `
		insert into events(`+eventColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, e.ID, e.Title, e.Description, e.Date, e.Location, e.Image, e.Organiser, string(e.EventType),
		e.Capacity, e.BookedCount, e.Mosque, e.CreatedAt, e.UpdatedAt)
	return translate(err, listing.ErrNotFound, listing.ErrConflict)
}

func (s *Store) GetEvent(ctx context.Context, id string) (*listing.Event, error) {
	row := s.db.QueryRowContext(ctx, `select `+eventColumns+` from events where id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	return &e, nil
}

// ListEvents returns the requested page and the total number of matching events.
func (s *Store) ListEvents(ctx context.Context, f listing.EventFilter) ([]listing.EventListing, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Keyword != "" {
		args = append(args, "%"+escapeLike(f.Keyword)+"%")
		where = append(where, fmt.Sprintf("e.title ilike $%d", len(args)))
	}
	if f.Upcoming {
		args = append(args, f.Now)
		where = append(where, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if f.Mosque != "" {
		args = append(args, f.Mosque)
		where = append(where, fmt.Sprintf("e.mosque_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from events e`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	args = append(args, f.Limit, f.Offset())
	query := fmt.Sprintf(`
		select e.id, e.title, e.description, e.date, e.location, e.image, e.organiser_id, e.event_type,
			e.capacity, e.booked_count, e.mosque_id, e.created_at, e.updated_at,
			u.id, u.username, u.email,
			m.id, m.name, m.address, m.longitude, m.latitude
		from events e
		left join users u on u.id = e.organiser_id
		left join mosques m on m.id = e.mosque_id%s
		order by e.date asc, e.id asc
		limit $%d offset $%d
	`, clause, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []listing.EventListing
	for rows.Next() {
		var (
			item                    listing.EventListing
			eventType               string
			userID, username, email sql.NullString
			mosqueID, name, address sql.NullString
			lon, lat                sql.NullFloat64
		)
		err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &item.Date, &item.Location, &item.Image,
			&item.Organiser, &eventType, &item.Capacity, &item.BookedCount, &item.Mosque,
			&item.CreatedAt, &item.UpdatedAt,
			&userID, &username, &email,
			&mosqueID, &name, &address, &lon, &lat,
		)
		if err != nil {
			return nil, 0, err
		}
		item.EventType = listing.EventType(eventType)
		if userID.Valid {
			item.OrganiserDetails = &listing.Person{ID: userID.String, Username: username.String, Email: email.String}
		}
		if mosqueID.Valid {
			item.MosqueDetails = &listing.MosqueSummary{
				ID:       mosqueID.String,
				Name:     name.String,
				Address:  address.String,
				Location: listing.NewPoint(lon.Float64, lat.Float64),
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, upd listing.EventUpdate, now time.Time) (*listing.Event, error) {
	var eventType *string
	if upd.EventType != nil {
		t := string(*upd.EventType)
		eventType = &t
	}
	row := s.db.QueryRowContext(ctx, `
		update events set
			title = coalesce($2, title),
			description = coalesce($3, description),
			date = coalesce($4, date),
			location = coalesce($5, location),
			image = coalesce($6, image),
			event_type = coalesce($7, event_type),
			capacity = coalesce($8, capacity),
			updated_at = $9
		where id = $1
		returning `+eventColumns,
		id, upd.Title, upd.Description, upd.Date, upd.Location, upd.Image, eventType, upd.Capacity, now)
	e, err := scanEvent(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrCheckViolation && pgErr.ConstraintName == eventCapacityConstraint {
			return nil, listing.ErrBelowBooked
		}
		return nil, translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	return &e, nil
}

// DeleteEvent removes the event; its bookings go with it through the foreign key.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from events where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return listing.ErrNotFound
	}
	return nil
}

func scanEvent(row scanner) (listing.Event, error) {
	var (
		e         listing.Event
		eventType string
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Image, &e.Organiser,
		&eventType, &e.Capacity, &e.BookedCount, &e.Mosque, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return listing.Event{}, err
	}
	e.EventType = listing.EventType(eventType)
	return e, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
