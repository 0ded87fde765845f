package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

const reservationColumns = `id, user_id, room_id, check_in, check_out, total_nights, total_price, status, guest_count, notes, reference, confirmed_at, cancelled_at, completed_at, created_at, updated_at`

const (
	maxListLimit     = 100
	defaultListLimit = 20
)

type reservationRow struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	RoomID      string     `db:"room_id"`
	CheckIn     time.Time  `db:"check_in"`
	CheckOut    time.Time  `db:"check_out"`
	TotalNights int        `db:"total_nights"`
	TotalPrice  int64      `db:"total_price"`
	Status      string     `db:"status"`
	GuestCount  int        `db:"guest_count"`
	Notes       string     `db:"notes"`
	Reference   string     `db:"reference"`
	ConfirmedAt *time.Time `db:"confirmed_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, UserID: r.UserID, RoomID: r.RoomID,
		CheckIn: r.CheckIn, CheckOut: r.CheckOut,
		TotalNights: r.TotalNights, TotalPrice: r.TotalPrice,
		Status: reservation.Status(r.Status), GuestCount: r.GuestCount,
		Notes: r.Notes, Reference: r.Reference,
		ConfirmedAt: r.ConfirmedAt, CancelledAt: r.CancelledAt, CompletedAt: r.CompletedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservations(rows []reservationRow) []*reservation.Reservation {
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result
}

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	query := `INSERT INTO reservations (user_id, room_id, check_in, check_out, total_nights, total_price, status, guest_count, notes, reference, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err := sqlTx.QueryRowContext(ctx, query,
		res.UserID, res.RoomID, res.CheckIn, res.CheckOut, res.TotalNights, res.TotalPrice,
		string(res.Status), res.GuestCount, res.Notes, res.Reference, res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation && constraintName(err) == "reservations_reference_key" {
			return reservation.ErrReferenceCollision
		}
		return fmt.Errorf("予約作成に失敗: %w", translateError(err))
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id); err != nil {
		if isNotFound(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return nil, ErrTxRequired
	}
	var row reservationRow
	if err := sqlTx.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id); err != nil {
		if isNotFound(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約ロックに失敗: %w", translateError(err))
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE reference = $1)`, reference); err != nil {
		return false, fmt.Errorf("予約番号確認に失敗: %w", err)
	}
	return exists, nil
}

func (r *ReservationRepository) ListActiveByRoom(ctx context.Context, tx transaction.Tx, roomID string) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE room_id = $1 AND status IN ('pending', 'confirmed') ORDER BY check_in`
	if err := sqlx.SelectContext(ctx, executor(r.db, tx), &rows, query, roomID); err != nil {
		if isNotFound(err) {
			return []*reservation.Reservation{}, nil
		}
		return nil, fmt.Errorf("客室の予約取得に失敗: %w", translateError(err))
	}
	return toReservations(rows), nil
}

func (r *ReservationRepository) List(ctx context.Context, f reservation.ListFilter) ([]*reservation.Reservation, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.RoomID != "" {
		add("room_id = $%d", f.RoomID)
	}
	if f.HotelID != "" {
		add("room_id IN (SELECT id FROM rooms WHERE hotel_id = $%d)", f.HotelID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != nil {
		add("check_in >= $%d", *f.From)
	}
	if f.To != nil {
		add("check_out <= $%d", *f.To)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isNotFound(err) {
			return []*reservation.Reservation{}, nil
		}
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

func (r *ReservationRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'confirmed' AND check_in >= $1 AND check_in < $2 ORDER BY check_in`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("今後の予約取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

func (r *ReservationRepository) ListCurrentGuests(ctx context.Context, hotelID string, at time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'confirmed' AND check_in <= $1 AND check_out > $1`
	args := []interface{}{at}
	if hotelID != "" {
		query += ` AND room_id IN (SELECT id FROM rooms WHERE hotel_id = $2)`
		args = append(args, hotelID)
	}
	query += ` ORDER BY check_out`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isNotFound(err) {
			return []*reservation.Reservation{}, nil
		}
		return nil, fmt.Errorf("滞在中の予約取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

func (r *ReservationRepository) ListFinishedConfirmed(ctx context.Context, before time.Time, limit int) ([]*reservation.Reservation, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'confirmed' AND check_out <= $1 ORDER BY check_out LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, before, limit); err != nil {
		return nil, fmt.Errorf("チェックアウト済み予約取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

type reservationStatsRow struct {
	Total            int   `db:"total"`
	Pending          int   `db:"pending"`
	Confirmed        int   `db:"confirmed"`
	Cancelled        int   `db:"cancelled"`
	Completed        int   `db:"completed"`
	Revenue          int64 `db:"revenue"`
	CreatedThisMonth int   `db:"created_this_month"`
}

func (r *ReservationRepository) Stats(ctx context.Context, hotelID string, monthStart time.Time) (*reservation.Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COALESCE(SUM(total_price) FILTER (WHERE status IN ('confirmed', 'completed')), 0) AS revenue,
			COUNT(*) FILTER (WHERE created_at >= $1) AS created_this_month
		FROM reservations`
	args := []interface{}{monthStart}
	if hotelID != "" {
		query += ` WHERE room_id IN (SELECT id FROM rooms WHERE hotel_id = $2)`
		args = append(args, hotelID)
	}
	var row reservationStatsRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("予約集計に失敗: %w", err)
	}
	return &reservation.Stats{
		Total: row.Total, Pending: row.Pending, Confirmed: row.Confirmed,
		Cancelled: row.Cancelled, Completed: row.Completed,
		Revenue: row.Revenue, CreatedThisMonth: row.CreatedThisMonth,
	}, nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	query := `UPDATE reservations SET check_in = $1, check_out = $2, total_nights = $3, total_price = $4, status = $5, guest_count = $6, notes = $7, confirmed_at = $8, cancelled_at = $9, completed_at = $10, updated_at = $11 WHERE id = $12`
	result, err := sqlTx.ExecContext(ctx, query,
		res.CheckIn, res.CheckOut, res.TotalNights, res.TotalPrice, string(res.Status), res.GuestCount,
		res.Notes, res.ConfirmedAt, res.CancelledAt, res.CompletedAt, res.UpdatedAt, res.ID,
	)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", translateError(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return ErrTxRequired
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == pgerrcode.ForeignKeyViolation {
			return reservation.ErrHasPayments
		}
		return fmt.Errorf("予約削除に失敗: %w", translateError(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
