package payment

import (
	"context"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

// Stats は支払いの集計値
type Stats struct {
	Total           int
	Pending         int
	Completed       int
	Failed          int
	Cancelled       int
	Refunded        int
	Revenue         int64 // 完了済みの合計
	AverageAmount   int64 // 完了済みの平均
	RevenueByMethod map[Method]int64
}

// Repository は支払いリポジトリのインターフェース
type Repository interface {
	// Create は新しい支払いを作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, payment *Payment) error

	// GetByID はIDから支払いを取得する
	GetByID(ctx context.Context, id string) (*Payment, error)

	// ListByReservation は予約の支払い一覧を作成順に取得する
	// tx が nil の場合はトランザクション外で読み取る
	ListByReservation(ctx context.Context, tx transaction.Tx, reservationID string) ([]*Payment, error)

	// CountByReservation は予約の支払い件数を返す
	CountByReservation(ctx context.Context, tx transaction.Tx, reservationID string) (int, error)

	// ExistsByReference は支払い番号が使用済みかを返す
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// Update は支払いを更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, payment *Payment) error

	// Delete は支払いを削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error

	// Stats は支払いの集計値を取得する
	Stats(ctx context.Context) (*Stats, error)
}
