package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

// runInTx は fn をトランザクション内で実行し、成功時のみコミットする
func runInTx(ctx context.Context, txm transaction.Manager, fn func(tx transaction.Tx) error) error {
	tx, err := txm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	committed = true
	return nil
}

// withRetry は一時的なストレージエラーを同じ入力で1度だけ再試行する
// 再試行でも失敗した場合は Conflict として返す
func (o *serviceOptions) withRetry(operation string, fn func() error) error {
	err := fn()
	if !transaction.IsTransient(err) {
		return err
	}
	if o.metrics != nil {
		o.metrics.TransactionRetriesTotal.WithLabelValues(operation).Inc()
	}
	logger.Warn("一時的なエラーのため再試行します", zap.String("operation", operation), zap.Error(err))

	err = fn()
	if transaction.IsTransient(err) {
		return fmt.Errorf("%w: 再試行後も競合が解消しませんでした: %v", reservation.ErrConflict, err)
	}
	return err
}

func (o *serviceOptions) observeReservation(operation string, err error) {
	if o.metrics != nil {
		o.metrics.ReservationsTotal.WithLabelValues(operation, resultOf(err)).Inc()
	}
}

func (o *serviceOptions) observePayment(operation string, err error) {
	if o.metrics != nil {
		o.metrics.PaymentsTotal.WithLabelValues(operation, resultOf(err)).Inc()
	}
}

// resultOf はメトリクス用にエラーを分類する
func resultOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, reservation.ErrConflict):
		return "conflict"
	case errors.Is(err, payment.ErrOverpaymentRejected):
		return "overpayment"
	case errors.Is(err, reservation.ErrInvalidTransition), errors.Is(err, payment.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, reservation.ErrForbidden):
		return "forbidden"
	case errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, payment.ErrPaymentNotFound):
		return "not_found"
	case errors.Is(err, reservation.ErrInvalidRange),
		errors.Is(err, reservation.ErrCapacityExceeded),
		errors.Is(err, reservation.ErrInvalidGuestCount),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidMethod):
		return "invalid"
	}
	return "error"
}
