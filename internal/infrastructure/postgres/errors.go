package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

// pgCode は PostgreSQL のエラーコードを返す（pq.Error 以外は空文字）
func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// constraintName は違反した制約名を返す
func constraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// translateError はリトライ可能なエラーと期間重複をドメインのエラーに変換する
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %v", transaction.ErrTransient, err)
	case pgerrcode.ExclusionViolation:
		return fmt.Errorf("%w: %v", reservation.ErrConflict, err)
	}
	return err
}

// isNotFound は行が存在しない、またはIDの形式が不正な場合に true を返す
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || pgCode(err) == pgerrcode.InvalidTextRepresentation
}
