package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

const paymentColumns = `id, reservation_id, amount, method, status, reference, paid_at, failure_reason, notes, created_at, updated_at`

type paymentRow struct {
	ID            string     `db:"id"`
	ReservationID string     `db:"reservation_id"`
	Amount        int64      `db:"amount"`
	Method        string     `db:"method"`
	Status        string     `db:"status"`
	Reference     string     `db:"reference"`
	PaidAt        *time.Time `db:"paid_at"`
	FailureReason string     `db:"failure_reason"`
	Notes         string     `db:"notes"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *paymentRow) toEntity() *payment.Payment {
	return &payment.Payment{
		ID:            r.ID,
		ReservationID: r.ReservationID,
		Amount:        r.Amount,
		Method:        payment.Method(r.Method),
		Status:        payment.Status(r.Status),
		Reference:     r.Reference,
		PaidAt:        r.PaidAt,
		FailureReason: r.FailureReason,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type PaymentRepository struct{ db *sqlx.DB }

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	query := `INSERT INTO payments (reservation_id, amount, method, status, reference, paid_at, failure_reason, notes, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := sqlTx.QueryRowContext(ctx, query,
		p.ReservationID, p.Amount, string(p.Method), string(p.Status), p.Reference,
		p.PaidAt, p.FailureReason, p.Notes, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation && constraintName(err) == "payments_reference_key" {
			return payment.ErrReferenceCollision
		}
		return fmt.Errorf("支払い作成に失敗: %w", translateError(err))
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	var row paymentRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		if isNotFound(err) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("支払い取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *PaymentRepository) ListByReservation(ctx context.Context, tx transaction.Tx, reservationID string) ([]*payment.Payment, error) {
	var rows []paymentRow
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, executor(r.db, tx), &rows, query, reservationID); err != nil {
		if isNotFound(err) {
			return []*payment.Payment{}, nil
		}
		return nil, fmt.Errorf("支払い一覧取得に失敗: %w", translateError(err))
	}
	result := make([]*payment.Payment, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *PaymentRepository) CountByReservation(ctx context.Context, tx transaction.Tx, reservationID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM payments WHERE reservation_id = $1`
	if err := sqlx.GetContext(ctx, executor(r.db, tx), &count, query, reservationID); err != nil {
		return 0, fmt.Errorf("支払い件数取得に失敗: %w", translateError(err))
	}
	return count, nil
}

func (r *PaymentRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM payments WHERE reference = $1)`, reference); err != nil {
		return false, fmt.Errorf("支払い番号確認に失敗: %w", err)
	}
	return exists, nil
}

func (r *PaymentRepository) Update(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	query := `UPDATE payments SET amount = $1, method = $2, status = $3, paid_at = $4, failure_reason = $5, notes = $6, updated_at = $7 WHERE id = $8`
	result, err := sqlTx.ExecContext(ctx, query,
		p.Amount, string(p.Method), string(p.Status), p.PaidAt, p.FailureReason, p.Notes, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("支払い更新に失敗: %w", translateError(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("支払い削除に失敗: %w", translateError(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

type paymentStatsRow struct {
	Total         int   `db:"total"`
	Pending       int   `db:"pending"`
	Completed     int   `db:"completed"`
	Failed        int   `db:"failed"`
	Cancelled     int   `db:"cancelled"`
	Refunded      int   `db:"refunded"`
	Revenue       int64 `db:"revenue"`
	AverageAmount int64 `db:"average_amount"`
}

type methodRevenueRow struct {
	Method  string `db:"method"`
	Revenue int64  `db:"revenue"`
}

func (r *PaymentRepository) Stats(ctx context.Context) (*payment.Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'refunded') AS refunded,
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0) AS revenue,
			COALESCE(AVG(amount) FILTER (WHERE status = 'completed'), 0)::BIGINT AS average_amount
		FROM payments`
	var row paymentStatsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("支払い集計に失敗: %w", err)
	}

	var byMethod []methodRevenueRow
	methodQuery := `SELECT method, SUM(amount) AS revenue FROM payments WHERE status = 'completed' GROUP BY method`
	if err := r.db.SelectContext(ctx, &byMethod, methodQuery); err != nil {
		return nil, fmt.Errorf("支払い方法別集計に失敗: %w", err)
	}

	stats := &payment.Stats{
		Total: row.Total, Pending: row.Pending, Completed: row.Completed,
		Failed: row.Failed, Cancelled: row.Cancelled, Refunded: row.Refunded,
		Revenue: row.Revenue, AverageAmount: row.AverageAmount,
		RevenueByMethod: make(map[payment.Method]int64, len(byMethod)),
	}
	for _, m := range byMethod {
		stats.RevenueByMethod[payment.Method(m.Method)] = m.Revenue
	}
	return stats, nil
}

var _ payment.Repository = (*PaymentRepository)(nil)
