package reservation

import (
	"time"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/pricing"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid は定義済みの状態かを返す
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Reservation は客室予約エンティティを表す
type Reservation struct {
	ID          string
	UserID      string
	RoomID      string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalNights int
	TotalPrice  int64 // 作成時・日程変更時の料金で固定
	Status      Status
	GuestCount  int
	Notes       string
	Reference   string
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReservation は保留中の予約を作成する
func NewReservation(userID, roomID string, period stay.Range, guestCount int, notes string, quote pricing.Quote, now time.Time) *Reservation {
	return &Reservation{
		UserID:      userID,
		RoomID:      roomID,
		CheckIn:     period.CheckIn,
		CheckOut:    period.CheckOut,
		TotalNights: quote.Nights,
		TotalPrice:  quote.Total,
		Status:      StatusPending,
		GuestCount:  guestCount,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Stay は宿泊期間を返す
func (r *Reservation) Stay() stay.Range {
	return stay.Range{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// IsActive は客室を占有する状態（保留中・確定済み）かを返す
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsTerminal はこれ以上遷移できない状態かを返す
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusCompleted
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if r.RoomID == "" {
		return ErrRoomIDRequired
	}
	if err := r.Stay().Validate(); err != nil {
		return err
	}
	if r.TotalNights < 1 {
		return pricing.ErrTooFewNights
	}
	if r.GuestCount <= 0 {
		return ErrInvalidGuestCount
	}
	return nil
}

// Confirm は保留中の予約を確定する
// 空室の再確認は呼び出し側がロック下で行う
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする
func (r *Reservation) Cancel(now time.Time) error {
	switch r.Status {
	case StatusCancelled:
		return ErrReservationAlreadyCancelled
	case StatusCompleted:
		return ErrReservationCompleted
	}
	if r.Stay().StartedBy(now) {
		return ErrReservationAlreadyStarted
	}
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

// Complete はチェックアウト済みの確定予約を完了にする
func (r *Reservation) Complete(now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrReservationNotConfirmed
	}
	if now.Before(r.CheckOut) {
		return ErrStayNotFinished
	}
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

// CheckMutable は actor が予約内容を変更できるかを返す
// 保留中は所有者と管理者、確定済みは管理者のみ、終端状態は誰も変更できない
func (r *Reservation) CheckMutable(actor Actor) error {
	if err := actor.CanAccess(r); err != nil {
		return err
	}
	switch r.Status {
	case StatusCancelled:
		return ErrReservationAlreadyCancelled
	case StatusCompleted:
		return ErrReservationCompleted
	case StatusConfirmed:
		if !actor.IsAdmin {
			return ErrReservationNotModifiable
		}
	}
	return nil
}

// Reschedule は日程と料金を差し替える
func (r *Reservation) Reschedule(period stay.Range, quote pricing.Quote, now time.Time) {
	r.CheckIn = period.CheckIn
	r.CheckOut = period.CheckOut
	r.TotalNights = quote.Nights
	r.TotalPrice = quote.Total
	r.UpdatedAt = now
}

// ChangeGuestCount は宿泊人数を定員内で変更する
func (r *Reservation) ChangeGuestCount(guests, capacity int, now time.Time) error {
	if guests <= 0 {
		return ErrInvalidGuestCount
	}
	if guests > capacity {
		return ErrCapacityExceeded
	}
	r.GuestCount = guests
	r.UpdatedAt = now
	return nil
}

// ChangeNotes は備考を変更する
func (r *Reservation) ChangeNotes(notes string, now time.Time) {
	r.Notes = notes
	r.UpdatedAt = now
}

// Blocks は占有中の予約を空室判定用のブロックに変換する
func Blocks(reservations []*Reservation) []stay.Block {
	blocks := make([]stay.Block, 0, len(reservations))
	for _, r := range reservations {
		if !r.IsActive() {
			continue
		}
		blocks = append(blocks, stay.Block{ReservationID: r.ID, Range: r.Stay()})
	}
	return blocks
}
