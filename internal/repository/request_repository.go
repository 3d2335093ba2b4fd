package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/brgy-docs-api/internal/models"
)

// ErrDuplicateTracking is returned when an insert collides on the
// per-barangay tracking number; the caller regenerates and retries.
var ErrDuplicateTracking = errors.New("tracking number already exists")

const requestColumns = `id, barangay_id, resident_id, resident_name, document_type, amount, status,
       tracking_number, version, request_date, approval_date, payment_submitted_date,
       payment_verified_date, release_date, payment_details, rejection_reason`

// RequestRepository persists document request records.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row in its initial state.
func (r *RequestRepository) Create(ctx context.Context, request *models.DocumentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusPending
	}
	if request.RequestDate.IsZero() {
		request.RequestDate = time.Now().UTC()
	}
	const query = `INSERT INTO document_requests
	(id, barangay_id, resident_id, resident_name, document_type, amount, status, tracking_number, version, request_date)
	VALUES (:id, :barangay_id, :resident_id, :resident_name, :document_type, :amount, :status, :tracking_number, :version, :request_date)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateTracking
		}
		return fmt.Errorf("create document request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE id = $1`
	var request models.DocumentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + requestColumns + ` FROM document_requests`)

	conditions := make([]string, 0, 4)
	if filter.BarangayID != "" {
		args = append(args, filter.BarangayID)
		conditions = append(conditions, fmt.Sprintf("barangay_id = $%d", len(args)))
	}
	if filter.ResidentID != "" {
		args = append(args, filter.ResidentID)
		conditions = append(conditions, fmt.Sprintf("resident_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY request_date DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list document requests: %w", err)
	}
	return requests, nil
}

// TransitionUpdate groups the columns a single transition may write. The
// update is conditional on the observed status and version; zero rows
// affected means another caller got there first.
type TransitionUpdate struct {
	ID          string
	FromStatus  models.RequestStatus
	FromVersion int64
	ToStatus    models.RequestStatus

	ApprovalDate         *time.Time
	PaymentSubmittedDate *time.Time
	PaymentVerifiedDate  *time.Time
	ReleaseDate          *time.Time
	PaymentDetails       *models.PaymentDetails
	RejectionReason      *string
}

// ApplyTransition performs the compare-and-swap status update. Returns
// sql.ErrNoRows when the record no longer matches the observed
// (status, version) pair.
func (r *RequestRepository) ApplyTransition(ctx context.Context, u TransitionUpdate) error {
	setParts := []string{
		"status = :to_status",
		"version = version + 1",
	}
	if u.ApprovalDate != nil {
		setParts = append(setParts, "approval_date = :approval_date")
	}
	if u.PaymentSubmittedDate != nil {
		setParts = append(setParts, "payment_submitted_date = :payment_submitted_date")
	}
	if u.PaymentVerifiedDate != nil {
		setParts = append(setParts, "payment_verified_date = :payment_verified_date")
	}
	if u.ReleaseDate != nil {
		setParts = append(setParts, "release_date = :release_date")
	}
	if u.PaymentDetails != nil {
		setParts = append(setParts, "payment_details = :payment_details")
	}
	if u.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	}
	query := fmt.Sprintf(
		"UPDATE document_requests SET %s WHERE id = :id AND status = :from_status AND version = :from_version",
		strings.Join(setParts, ", "),
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                     u.ID,
		"from_status":            u.FromStatus,
		"from_version":           u.FromVersion,
		"to_status":              u.ToStatus,
		"approval_date":          u.ApprovalDate,
		"payment_submitted_date": u.PaymentSubmittedDate,
		"payment_verified_date":  u.PaymentVerifiedDate,
		"release_date":           u.ReleaseDate,
		"payment_details":        u.PaymentDetails,
		"rejection_reason":       u.RejectionReason,
	})
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request unconditionally.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM document_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
