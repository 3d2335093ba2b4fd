package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/brgy-docs-api/internal/models"
)

const barangayColumns = `id, name, address, municipality, province, active, pricing, created_at, updated_at`

// BarangayRepository persists barangay tenant configuration.
type BarangayRepository struct {
	db *sqlx.DB
}

// NewBarangayRepository constructs the repository.
func NewBarangayRepository(db *sqlx.DB) *BarangayRepository {
	return &BarangayRepository{db: db}
}

// Create inserts a new barangay row.
func (r *BarangayRepository) Create(ctx context.Context, barangay *models.Barangay) error {
	if barangay.ID == "" {
		barangay.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if barangay.CreatedAt.IsZero() {
		barangay.CreatedAt = now
	}
	barangay.UpdatedAt = now
	const query = `INSERT INTO barangays (id, name, address, municipality, province, active, pricing, created_at, updated_at)
	VALUES (:id, :name, :address, :municipality, :province, :active, :pricing, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, barangay); err != nil {
		return fmt.Errorf("create barangay: %w", err)
	}
	return nil
}

// GetByID fetches a barangay by identifier.
func (r *BarangayRepository) GetByID(ctx context.Context, id string) (*models.Barangay, error) {
	query := `SELECT ` + barangayColumns + ` FROM barangays WHERE id = $1`
	var barangay models.Barangay
	if err := r.db.GetContext(ctx, &barangay, query, id); err != nil {
		return nil, err
	}
	return &barangay, nil
}

// List returns every barangay, active first then by name.
func (r *BarangayRepository) List(ctx context.Context) ([]models.Barangay, error) {
	query := `SELECT ` + barangayColumns + ` FROM barangays ORDER BY active DESC, name ASC`
	var barangays []models.Barangay
	if err := r.db.SelectContext(ctx, &barangays, query); err != nil {
		return nil, fmt.Errorf("list barangays: %w", err)
	}
	return barangays, nil
}

// UpdatePricing replaces the fee table.
func (r *BarangayRepository) UpdatePricing(ctx context.Context, id string, pricing models.PricingTable, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE barangays SET pricing = $2, updated_at = $3 WHERE id = $1`,
		id, pricing, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update barangay pricing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pricing update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive toggles the soft-deactivation flag.
func (r *BarangayRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE barangays SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set barangay active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check active update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
