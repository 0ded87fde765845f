package payment

import (
	"strings"
	"time"
)

// Status は支払いの状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Method は支払い方法を表す
type Method string

const (
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodCash     Method = "cash"
	MethodWallet   Method = "wallet"
	MethodOther    Method = "other"
)

// Methods は受け付ける支払い方法の一覧
var Methods = []Method{MethodCard, MethodTransfer, MethodCash, MethodWallet, MethodOther}

// Valid は定義済みの支払い方法かを返す
func (m Method) Valid() bool {
	for _, v := range Methods {
		if m == v {
			return true
		}
	}
	return false
}

// Payment は予約に対する支払いエンティティを表す
type Payment struct {
	ID            string
	ReservationID string
	Amount        int64 // 最小通貨単位
	Method        Method
	Status        Status
	Reference     string
	PaidAt        *time.Time // 完了時のみ設定
	FailureReason string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPayment は保留中の支払いを作成する
func NewPayment(reservationID string, amount int64, method Method, notes string, now time.Time) *Payment {
	return &Payment{
		ReservationID: reservationID,
		Amount:        amount,
		Method:        method,
		Status:        StatusPending,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate は支払いの検証を行う
func (p *Payment) Validate() error {
	if p.ReservationID == "" {
		return ErrReservationIDRequired
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

// IsPending は支払いが保留中かを返す
func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}

// IsCompleted は支払いが完了済みかを返す
func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// Complete は保留中の支払いを完了にする
// 合計金額の上限確認は呼び出し側が予約ロック下で行う
func (p *Payment) Complete(now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	p.Status = StatusCompleted
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

// Fail は保留中の支払いを失敗にし、理由を記録する
func (p *Payment) Fail(reason string, now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	p.Status = StatusFailed
	p.FailureReason = reason
	if reason != "" {
		p.Notes = strings.TrimSpace(p.Notes + "\n失敗理由: " + reason)
	}
	p.UpdatedAt = now
	return nil
}

// Cancel は保留中の支払いを取り消す
func (p *Payment) Cancel(now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	p.Status = StatusCancelled
	p.UpdatedAt = now
	return nil
}

// Changes は保留中の支払いに対する変更内容
type Changes struct {
	Amount *int64
	Method *Method
	Notes  *string
}

// Apply は保留中の支払いの金額・方法・備考を変更する
func (p *Payment) Apply(c Changes, now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	if c.Amount != nil {
		if *c.Amount <= 0 {
			return ErrInvalidAmount
		}
		p.Amount = *c.Amount
	}
	if c.Method != nil {
		if !c.Method.Valid() {
			return ErrInvalidMethod
		}
		p.Method = *c.Method
	}
	if c.Notes != nil {
		p.Notes = *c.Notes
	}
	p.UpdatedAt = now
	return nil
}

// CheckDeletable は削除可能かを返す
func (p *Payment) CheckDeletable() error {
	if p.Status == StatusCompleted {
		return ErrPaymentCompleted
	}
	return nil
}

func (p *Payment) requirePending() error {
	switch p.Status {
	case StatusPending:
		return nil
	case StatusCompleted:
		return ErrPaymentCompleted
	case StatusFailed:
		return ErrPaymentFailed
	}
	return ErrPaymentNotPending
}
