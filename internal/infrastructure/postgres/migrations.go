package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

// ErrDirtySchema は前回のマイグレーションが途中で止まっている状態
// schema_migrations を手で直すまで起動しない
var ErrDirtySchema = errors.New("スキーマが不整合な状態です")

// RunMigrations は客室・予約・支払いのスキーマを最新にする
// 適用後のバージョンをログに残す
func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("マイグレーションドライバー作成エラー: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("マイグレーションソース読み込みエラー (%s): %w", migrationsPath, err)
	}

	before, dirty, err := schemaVersion(m)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w: version=%d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("マイグレーション実行エラー: %w", err)
	}

	after, _, err := schemaVersion(m)
	if err != nil {
		return err
	}
	if after == before {
		logger.Debug("スキーマは最新です", zap.Uint("version", after))
		return nil
	}
	logger.Info("スキーマを更新しました", zap.Uint("from", before), zap.Uint("to", after))
	return nil
}

// schemaVersion は未適用の場合 0 を返す
func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("スキーマバージョン取得エラー: %w", err)
	}
	return v, dirty, nil
}
