package pg

import (
	"context"
	"database/sql"

	"jamaat.org/internal/listing"
)

const mosqueColumns = `id, name, address, longitude, latitude, admin_id, description, image, created_at, updated_at`

func (s *Store) CreateMosque(ctx context.Context, m *listing.Mosque) error {
	_, err := s.db.ExecContext(ctx, `
		insert into mosques(`+mosqueColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, m.ID, m.Name, m.Address, m.Location.Coordinates[0], m.Location.Coordinates[1],
		nullIfEmpty(m.Admin), m.Description, m.Image, m.CreatedAt, m.UpdatedAt)
	return translate(err, listing.ErrNotFound, listing.ErrConflict)
}

func (s *Store) GetMosque(ctx context.Context, id string) (*listing.Mosque, error) {
	row := s.db.QueryRowContext(ctx, `select `+mosqueColumns+` from mosques where id = $1`, id)
	m, err := scanMosque(row)
	if err != nil {
		return nil, translate(err, listing.ErrNotFound, listing.ErrConflict)
	}
	return &m, nil
}

func (s *Store) ListMosques(ctx context.Context) ([]listing.Mosque, error) {
	rows, err := s.db.QueryContext(ctx, `select `+mosqueColumns+` from mosques order by created_at asc, id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []listing.Mosque
	for rows.Next() {
		m, err := scanMosque(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMosque(row scanner) (listing.Mosque, error) {
	var (
		m        listing.Mosque
		lon, lat float64
		admin    sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Address, &lon, &lat, &admin, &m.Description, &m.Image, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return listing.Mosque{}, err
	}
	m.Location = listing.NewPoint(lon, lat)
	m.Admin = admin.String
	return m, nil
}
