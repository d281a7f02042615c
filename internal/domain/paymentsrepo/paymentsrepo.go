package paymentsrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostedpay/internal/infra/dbx"
	"hostedpay/internal/payments"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

const sessionColumns = `
	id, merchant_session, amount_cents, status, transaction_id, message,
	test_mode, merchant_reference, created_at, updated_at`

func scanSession(row pgx.Row) (*payments.Session, error) {
	var s payments.Session
	err := row.Scan(
		&s.ID,
		&s.MerchantSession,
		&s.AmountCents,
		&s.Status,
		&s.TransactionID,
		&s.Message,
		&s.TestMode,
		&s.MerchantReference,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Create(ctx context.Context, s *payments.Session) (*payments.Session, error) {
	if s.Status == "" {
		s.Status = payments.StatusPending
	}
	if err := r.q.QueryRow(ctx, `
		INSERT INTO payment_sessions (amount_cents, status, test_mode, merchant_reference)
		VALUES ($1, $2::payment_status, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.AmountCents, s.Status, s.TestMode, s.MerchantReference).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	return s, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*payments.Session, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM payment_sessions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payments.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	return s, nil
}

// Save writes the mutable fields. Rows that are already success or failure
// are left alone, so a duplicate callback racing the first one converges on
// whichever finalised first.
func (r *Repository) Save(ctx context.Context, s *payments.Session) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_sessions
		   SET merchant_session=$2,
		       status=$3::payment_status,
		       transaction_id=$4,
		       message=$5,
		       test_mode=$6,
		       merchant_reference=$7,
		       updated_at=now()
		 WHERE id=$1
		   AND status NOT IN ('success', 'failure')
	`, s.ID, s.MerchantSession, s.Status, s.TransactionID, s.Message, s.TestMode, s.MerchantReference)
	if err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_sessions WHERE id=$1)`, s.ID).Scan(&exists); err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	if !exists {
		return payments.ErrSessionNotFound
	}
	return nil
}

// List returns sessions with optional filters:
// - status: if "" => no status filter
// - since: if nil => no time filter, else created_at >= *since
// The second value is the total count for pagination.
func (r *Repository) List(
	ctx context.Context,
	status payments.Status,
	since *time.Time,
	limit, offset int,
) ([]*payments.Session, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT `+sessionColumns+`,
  COUNT(*) OVER() AS total_count
FROM payment_sessions
WHERE
  ($1 = '' OR status = $1::payment_status)
  AND ($2::timestamptz IS NULL OR created_at >= $2::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`,
		string(status),
		since,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment sessions: %w", err)
	}
	defer rows.Close()

	var (
		out   []*payments.Session
		total int
	)

	for rows.Next() {
		var s payments.Session
		if err := rows.Scan(
			&s.ID,
			&s.MerchantSession,
			&s.AmountCents,
			&s.Status,
			&s.TransactionID,
			&s.Message,
			&s.TestMode,
			&s.MerchantReference,
			&s.CreatedAt,
			&s.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment session: %w", err)
		}
		out = append(out, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return out, total, nil
}
