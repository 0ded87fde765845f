package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/refcode"
)

// PaymentService は予約に対する支払いと精算状況を扱う
// 同じ予約の支払い操作は予約行のロックで直列化する
type PaymentService struct {
	txManager       transaction.Manager
	paymentRepo     payment.Repository
	reservationRepo reservation.Repository
	opts            serviceOptions
}

func NewPaymentService(txm transaction.Manager, pr payment.Repository, rr reservation.Repository, opts ...Option) *PaymentService {
	return &PaymentService{
		txManager:       txm,
		paymentRepo:     pr,
		reservationRepo: rr,
		opts:            newServiceOptions(opts),
	}
}

type RecordPaymentInput struct {
	ReservationID string
	Amount        int64
	Method        payment.Method
	Notes         string
}

// RecordPayment は確定済みの予約に保留中の支払いを登録する（所有者または管理者）
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput, actor reservation.Actor) (p *payment.Payment, err error) {
	defer func() { s.opts.observePayment("record", err) }()

	draft := payment.NewPayment(input.ReservationID, input.Amount, input.Method, input.Notes, s.opts.now())
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < refcode.DefaultAttempts; attempt++ {
		var ref string
		ref, err = refcode.Unique(ctx, refcode.Payment, s.paymentRepo.ExistsByReference, refcode.DefaultAttempts)
		if err != nil {
			return nil, err
		}
		err = s.opts.withRetry("record_payment", func() error {
			p, err = s.record(ctx, input, ref, actor)
			return err
		})
		if !errors.Is(err, payment.ErrReferenceCollision) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.opts.publishPayment(ctx, kafkainfra.EventPaymentRecorded, p)
	logger.Info("支払いを登録しました",
		zap.String("payment_id", p.ID),
		zap.String("reservation_id", p.ReservationID),
		zap.Int64("amount", p.Amount),
	)
	return p, nil
}

func (s *PaymentService) record(ctx context.Context, input RecordPaymentInput, ref string, actor reservation.Actor) (*payment.Payment, error) {
	var p *payment.Payment
	err := runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
		res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, input.ReservationID)
		if err != nil {
			return err
		}
		if err := actor.CanAccess(res); err != nil {
			return err
		}
		if res.Status != reservation.StatusConfirmed {
			return payment.ErrReservationNotConfirmed
		}
		existing, err := s.paymentRepo.ListByReservation(ctx, tx, res.ID)
		if err != nil {
			return err
		}
		if err := payment.EnsureWithinTotal(res.TotalPrice, existing, "", input.Amount); err != nil {
			return err
		}

		p = payment.NewPayment(res.ID, input.Amount, input.Method, input.Notes, s.opts.now())
		p.Reference = ref
		return s.paymentRepo.Create(ctx, tx, p)
	})
	return p, err
}

// mutate は予約行をロックした上で支払いを変更し、保存する
// fn には同じ予約の全支払いと予約が渡される
func (s *PaymentService) mutate(
	ctx context.Context,
	operation string,
	paymentID string,
	fn func(res *reservation.Reservation, p *payment.Payment, all []*payment.Payment) error,
) (*payment.Payment, error) {
	current, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var p *payment.Payment
	err = s.opts.withRetry(operation, func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, current.ReservationID)
			if err != nil {
				return err
			}
			all, err := s.paymentRepo.ListByReservation(ctx, tx, res.ID)
			if err != nil {
				return err
			}
			p = findPayment(all, paymentID)
			if p == nil {
				return payment.ErrPaymentNotFound
			}
			if err := fn(res, p, all); err != nil {
				return err
			}
			return s.paymentRepo.Update(ctx, tx, p)
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func findPayment(payments []*payment.Payment, id string) *payment.Payment {
	for _, p := range payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// UpdatePayment は保留中の支払いの金額・方法・備考を変更する（所有者または管理者）
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID string, changes payment.Changes, actor reservation.Actor) (p *payment.Payment, err error) {
	defer func() { s.opts.observePayment("update", err) }()

	p, err = s.mutate(ctx, "update_payment", paymentID, func(res *reservation.Reservation, p *payment.Payment, all []*payment.Payment) error {
		if err := actor.CanAccess(res); err != nil {
			return err
		}
		if err := p.Apply(changes, s.opts.now()); err != nil {
			return err
		}
		if changes.Amount != nil {
			return payment.EnsureWithinTotal(res.TotalPrice, all, p.ID, p.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.opts.publishPayment(ctx, kafkainfra.EventPaymentUpdated, p)
	return p, nil
}

// CompletePayment は支払いを完了にする（管理者のみ）
// 完了済み合計が予約金額を超える場合は拒否する
func (s *PaymentService) CompletePayment(ctx context.Context, paymentID string, actor reservation.Actor) (p *payment.Payment, err error) {
	defer func() { s.opts.observePayment("complete", err) }()

	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	p, err = s.mutate(ctx, "complete_payment", paymentID, func(res *reservation.Reservation, p *payment.Payment, all []*payment.Payment) error {
		if err := p.Complete(s.opts.now()); err != nil {
			return err
		}
		return payment.EnsureWithinTotal(res.TotalPrice, all, p.ID, p.Amount)
	})
	if err != nil {
		return nil, err
	}
	s.opts.publishPayment(ctx, kafkainfra.EventPaymentCompleted, p)
	logger.Info("支払いが完了しました", zap.String("payment_id", p.ID), zap.String("reservation_id", p.ReservationID))
	return p, nil
}

// FailPayment は支払いを失敗にし、理由を記録する（管理者のみ）
func (s *PaymentService) FailPayment(ctx context.Context, paymentID, reason string, actor reservation.Actor) (p *payment.Payment, err error) {
	defer func() { s.opts.observePayment("fail", err) }()

	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	p, err = s.mutate(ctx, "fail_payment", paymentID, func(_ *reservation.Reservation, p *payment.Payment, _ []*payment.Payment) error {
		return p.Fail(reason, s.opts.now())
	})
	if err != nil {
		return nil, err
	}
	s.opts.publishPayment(ctx, kafkainfra.EventPaymentFailed, p)
	return p, nil
}

// CancelPayment は保留中の支払いを取り消す（所有者または管理者）
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID string, actor reservation.Actor) (p *payment.Payment, err error) {
	defer func() { s.opts.observePayment("cancel", err) }()

	p, err = s.mutate(ctx, "cancel_payment", paymentID, func(res *reservation.Reservation, p *payment.Payment, _ []*payment.Payment) error {
		if err := actor.CanAccess(res); err != nil {
			return err
		}
		return p.Cancel(s.opts.now())
	})
	if err != nil {
		return nil, err
	}
	s.opts.publishPayment(ctx, kafkainfra.EventPaymentCancelled, p)
	return p, nil
}

// DeletePayment は完了前の支払いを削除する（管理者のみ）
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID string, actor reservation.Actor) (err error) {
	defer func() { s.opts.observePayment("delete", err) }()

	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	current, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	var p *payment.Payment
	err = s.opts.withRetry("delete_payment", func() error {
		return runInTx(ctx, s.txManager, func(tx transaction.Tx) error {
			if _, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, current.ReservationID); err != nil {
				return err
			}
			all, err := s.paymentRepo.ListByReservation(ctx, tx, current.ReservationID)
			if err != nil {
				return err
			}
			p = findPayment(all, paymentID)
			if p == nil {
				return payment.ErrPaymentNotFound
			}
			if err := p.CheckDeletable(); err != nil {
				return err
			}
			return s.paymentRepo.Delete(ctx, tx, paymentID)
		})
	})
	if err != nil {
		return err
	}
	s.opts.publishPayment(ctx, kafkainfra.EventPaymentDeleted, p)
	return nil
}

// GetPayment は支払いを取得する（所有者または管理者）
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string, actor reservation.Actor) (*payment.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleReservation(ctx, p.ReservationID, actor); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayments は予約の支払い一覧を取得する（所有者または管理者）
func (s *PaymentService) ListPayments(ctx context.Context, reservationID string, actor reservation.Actor) ([]*payment.Payment, error) {
	if _, err := s.accessibleReservation(ctx, reservationID, actor); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByReservation(ctx, nil, reservationID)
}

// GetSettlementStatus は予約の精算状況を返す（所有者または管理者）
func (s *PaymentService) GetSettlementStatus(ctx context.Context, reservationID string, actor reservation.Actor) (*payment.Settlement, error) {
	res, err := s.accessibleReservation(ctx, reservationID, actor)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByReservation(ctx, nil, reservationID)
	if err != nil {
		return nil, err
	}
	settlement := payment.Summarize(res.ID, res.TotalPrice, payments)
	return &settlement, nil
}

// GetPaymentStats は支払いの集計値を取得する（管理者のみ）
func (s *PaymentService) GetPaymentStats(ctx context.Context, actor reservation.Actor) (*payment.Stats, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.paymentRepo.Stats(ctx)
}

func (s *PaymentService) accessibleReservation(ctx context.Context, reservationID string, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if err := actor.CanAccess(res); err != nil {
		return nil, err
	}
	return res, nil
}
