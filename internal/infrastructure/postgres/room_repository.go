package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

const roomColumns = `id, hotel_id, room_number, price_per_night, capacity, is_available, created_at, updated_at`

type roomRow struct {
	ID            string    `db:"id"`
	HotelID       string    `db:"hotel_id"`
	RoomNumber    string    `db:"room_number"`
	PricePerNight int64     `db:"price_per_night"`
	Capacity      int       `db:"capacity"`
	IsAvailable   bool      `db:"is_available"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *roomRow) toEntity() *room.Room {
	return &room.Room{
		ID: r.ID, HotelID: r.HotelID, RoomNumber: r.RoomNumber,
		PricePerNight: r.PricePerNight, Capacity: r.Capacity, IsAvailable: r.IsAvailable,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type RoomRepository struct{ db *sqlx.DB }

func NewRoomRepository(db *sqlx.DB) *RoomRepository { return &RoomRepository{db: db} }

func (r *RoomRepository) Create(ctx context.Context, rm *room.Room) error {
	query := `INSERT INTO rooms (hotel_id, room_number, price_per_night, capacity, is_available, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, rm.HotelID, rm.RoomNumber, rm.PricePerNight, rm.Capacity, rm.IsAvailable, rm.CreatedAt, rm.UpdatedAt).Scan(&rm.ID)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return room.ErrRoomNumberAlreadyUsed
		}
		return fmt.Errorf("客室作成に失敗: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*room.Room, error) {
	var row roomRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id); err != nil {
		if isNotFound(err) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("客室取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *RoomRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*room.Room, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return nil, ErrTxRequired
	}
	var row roomRow
	if err := sqlTx.GetContext(ctx, &row, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id); err != nil {
		if isNotFound(err) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("客室ロックに失敗: %w", translateError(err))
	}
	return row.toEntity(), nil
}

func (r *RoomRepository) ListByHotel(ctx context.Context, hotelID string) ([]*room.Room, error) {
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+roomColumns+` FROM rooms WHERE hotel_id = $1 ORDER BY room_number`, hotelID); err != nil {
		if isNotFound(err) {
			return []*room.Room{}, nil
		}
		return nil, fmt.Errorf("客室一覧取得に失敗: %w", err)
	}
	result := make([]*room.Room, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *RoomRepository) UpdateAvailability(ctx context.Context, rm *room.Room) error {
	result, err := r.db.ExecContext(ctx, `UPDATE rooms SET is_available = $1, updated_at = $2 WHERE id = $3`, rm.IsAvailable, rm.UpdatedAt, rm.ID)
	if err != nil {
		if isNotFound(err) {
			return room.ErrRoomNotFound
		}
		return fmt.Errorf("客室更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return room.ErrRoomNotFound
	}
	return nil
}

var _ room.Repository = (*RoomRepository)(nil)
