package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

// ListFilter は予約一覧の検索条件
type ListFilter struct {
	UserID  string
	RoomID  string
	HotelID string
	Status  Status
	From    *time.Time // チェックインがこの日時以降
	To      *time.Time // チェックアウトがこの日時以前
	Limit   int
	Offset  int
}

// Stats は予約の集計値
type Stats struct {
	Total            int
	Pending          int
	Confirmed        int
	Cancelled        int
	Completed        int
	Revenue          int64 // 確定済み・完了済みの合計金額
	CreatedThisMonth int
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUpdate は予約行を排他ロックして取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// ExistsByReference は予約番号が使用済みかを返す
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// ListActiveByRoom は客室の保留中・確定済み予約を取得する
	// tx が nil の場合はトランザクション外で読み取る
	ListActiveByRoom(ctx context.Context, tx transaction.Tx, roomID string) ([]*Reservation, error)

	// List は条件に一致する予約を新しい順に取得する
	List(ctx context.Context, filter ListFilter) ([]*Reservation, error)

	// ListUpcoming はチェックインが [from, to) の確定済み予約を取得する
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*Reservation, error)

	// ListCurrentGuests は at 時点で滞在中の確定済み予約を取得する
	ListCurrentGuests(ctx context.Context, hotelID string, at time.Time) ([]*Reservation, error)

	// ListFinishedConfirmed はチェックアウトが before 以前の確定済み予約を取得する
	ListFinishedConfirmed(ctx context.Context, before time.Time, limit int) ([]*Reservation, error)

	// Stats は予約の集計値を取得する
	Stats(ctx context.Context, hotelID string, monthStart time.Time) (*Stats, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// Delete は予約を削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error
}
