package repository

import (
	"context"
	"database/sql"

	"github.com/yihan-study/seat-booking/internal/model"
)

// StoreRepo provides read access to the stores table.  Stores are
// managed by an external back-office flow, so this side only lists and
// fetches them.
type StoreRepo struct {
	db *sql.DB
}

// NewStoreRepo returns a new StoreRepo bound to the provided database.
func NewStoreRepo(db *sql.DB) *StoreRepo { return &StoreRepo{db: db} }

const storeColumns = `id, name, description, address, phone, cancel_deadline_hours, total_seats, created_at, updated_at`

func scanStore(row interface{ Scan(...interface{}) error }, s *model.Store) error {
	return row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Address, &s.Phone,
		&s.CancelDeadlineHours, &s.TotalSeats, &s.CreatedAt, &s.UpdatedAt,
	)
}

// List returns all stores ordered by name.
func (r *StoreRepo) List(ctx context.Context) ([]model.Store, error) {
	const q = `SELECT ` + storeColumns + ` FROM stores ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stores := make([]model.Store, 0)
	for rows.Next() {
		var s model.Store
		if err := scanStore(rows, &s); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetByID loads a single store.  Returns sql.ErrNoRows when absent.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (*model.Store, error) {
	const q = `SELECT ` + storeColumns + ` FROM stores WHERE id = ?`
	var s model.Store
	if err := scanStore(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
