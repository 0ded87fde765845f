package room

import (
	"context"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

// Repository は客室リポジトリのインターフェース
type Repository interface {
	// Create は新しい客室を作成する
	Create(ctx context.Context, room *Room) error

	// GetByID はIDから客室を取得する
	GetByID(ctx context.Context, id string) (*Room, error)

	// GetByIDForUpdate は客室行を排他ロックして取得する（トランザクション必須）
	// 同じ客室への予約書き込みはこのロックで直列化される
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Room, error)

	// ListByHotel はホテルの客室一覧を取得する
	ListByHotel(ctx context.Context, hotelID string) ([]*Room, error)

	// UpdateAvailability は販売状態を更新する
	UpdateAvailability(ctx context.Context, room *Room) error
}
