package transaction

import (
	"context"
	"errors"
)

// ErrTransient はシリアライズ失敗・デッドロック・ロックタイムアウトなど
// 同じ入力で再実行すれば成功し得るストレージエラーを表す
var ErrTransient = errors.New("一時的なストレージエラーが発生しました")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

// IsTransient は再試行可能なエラーかを返す
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
