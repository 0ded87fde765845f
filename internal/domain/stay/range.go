package stay

import (
	"errors"
	"time"
)

// ErrInvalidRange はチェックインがチェックアウト以降の場合のエラー
var ErrInvalidRange = errors.New("チェックインはチェックアウトより前である必要があります")

// Range は宿泊期間を半開区間 [CheckIn, CheckOut) で表す
type Range struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewRange は宿泊期間を作成する
func NewRange(checkIn, checkOut time.Time) (Range, error) {
	r := Range{CheckIn: checkIn, CheckOut: checkOut}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate はチェックインがチェックアウトより前かを検証する
func (r Range) Validate() error {
	if !r.CheckIn.Before(r.CheckOut) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps は2つの期間が1泊以上重なるかを返す
func (r Range) Overlaps(other Range) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// Nights はチェックイン日とチェックアウト日の暦日差を返す
func (r Range) Nights() int {
	in := DateOf(r.CheckIn)
	out := DateOf(r.CheckOut.In(r.CheckIn.Location()))
	return int(out.Sub(in).Hours() / 24)
}

// StartedBy はチェックイン日が now の日付以前かを返す
func (r Range) StartedBy(now time.Time) bool {
	return !DateOf(r.CheckIn).After(DateOf(now.In(r.CheckIn.Location())))
}

// CheckInBefore はチェックイン日が now の日付より前かを返す
func (r Range) CheckInBefore(now time.Time) bool {
	return DateOf(r.CheckIn).Before(DateOf(now.In(r.CheckIn.Location())))
}

// DateOf は時刻をその暦日の0時（UTC基準の日付値）に丸める
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
