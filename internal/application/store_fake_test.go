package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/transaction"
)

// memStore はトランザクションをグローバルな排他ロックで表現するインメモリストア
// Rollback と失敗したコミットは Begin 時点のスナップショットに戻す
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rooms        map[string]room.Room
	reservations map[string]reservation.Reservation
	payments     map[string]payment.Payment
	paymentOrder []string

	// 次の N 回のコミットを一時エラーで失敗させる
	failCommits int
	commits     int
}

type memSnapshot struct {
	rooms        map[string]room.Room
	reservations map[string]reservation.Reservation
	payments     map[string]payment.Payment
	paymentOrder []string
}

func newMemStore() *memStore {
	return &memStore{
		rooms:        map[string]room.Room{},
		reservations: map[string]reservation.Reservation{},
		payments:     map[string]payment.Payment{},
	}
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		rooms:        make(map[string]room.Room, len(s.rooms)),
		reservations: make(map[string]reservation.Reservation, len(s.reservations)),
		payments:     make(map[string]payment.Payment, len(s.payments)),
		paymentOrder: append([]string(nil), s.paymentOrder...),
	}
	for k, v := range s.rooms {
		snap.rooms[k] = v
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.rooms = snap.rooms
	s.reservations = snap.reservations
	s.payments = snap.payments
	s.paymentOrder = snap.paymentOrder
}

// seedRoom と seedReservation は制約を通さずに直接書き込む
func (s *memStore) seedRoom(r room.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

func (s *memStore) seedReservation(r reservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = r
}

// seedPayment は金額の検証を通さずに支払いを登録する
func (s *memStore) seedPayment(p payment.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	s.paymentOrder = append(s.paymentOrder, p.ID)
}

func (s *memStore) injectTransientCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits = n
}

func (s *memStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *memStore) activeByRoom(roomID string) []*reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*reservation.Reservation
	for _, r := range s.reservations {
		if r.RoomID == roomID && r.IsActive() {
			c := r
			result = append(result, &c)
		}
	}
	return result
}

// --- transaction.Manager ---

type memTx struct {
	s    *memStore
	snap memSnapshot
	done bool
}

func (s *memStore) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()
	return &memTx{s: s, snap: snap}, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("トランザクションは終了済みです")
	}
	t.done = true
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failCommits > 0 {
		t.s.failCommits--
		t.s.restore(t.snap)
		return fmt.Errorf("%w: could not serialize access", transaction.ErrTransient)
	}
	t.s.commits++
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	t.s.restore(t.snap)
	t.s.mu.Unlock()
	t.s.txMu.Unlock()
	return nil
}

func requireTx(tx transaction.Tx) error {
	mt, ok := tx.(*memTx)
	if !ok || mt == nil || mt.done {
		return errors.New("トランザクションが必要です")
	}
	return nil
}

// --- room.Repository ---

type memRoomRepo struct{ s *memStore }

func (r memRoomRepo) Create(_ context.Context, rm *room.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.rooms {
		if existing.HotelID == rm.HotelID && existing.RoomNumber == rm.RoomNumber {
			return room.ErrRoomNumberAlreadyUsed
		}
	}
	rm.ID = uuid.NewString()
	r.s.rooms[rm.ID] = *rm
	return nil
}

func (r memRoomRepo) GetByID(_ context.Context, id string) (*room.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rm, ok := r.s.rooms[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return &rm, nil
}

func (r memRoomRepo) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*room.Room, error) {
	if err := requireTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r memRoomRepo) ListByHotel(_ context.Context, hotelID string) ([]*room.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*room.Room{}
	for _, rm := range r.s.rooms {
		if rm.HotelID == hotelID {
			c := rm
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomNumber < result[j].RoomNumber })
	return result, nil
}

func (r memRoomRepo) UpdateAvailability(_ context.Context, rm *room.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.rooms[rm.ID]
	if !ok {
		return room.ErrRoomNotFound
	}
	existing.IsAvailable = rm.IsAvailable
	existing.UpdatedAt = rm.UpdatedAt
	r.s.rooms[rm.ID] = existing
	return nil
}

// --- reservation.Repository ---

type memReservationRepo struct{ s *memStore }

// checkExclusion はデータベースの排他制約と同じ判定を行う
func (r memReservationRepo) checkExclusion(res *reservation.Reservation) error {
	if !res.IsActive() {
		return nil
	}
	for _, other := range r.s.reservations {
		if other.ID == res.ID || other.RoomID != res.RoomID || !other.IsActive() {
			continue
		}
		if other.Stay().Overlaps(res.Stay()) {
			return fmt.Errorf("%w: exclusion constraint", reservation.ErrConflict)
		}
	}
	return nil
}

func (r memReservationRepo) Create(_ context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.reservations {
		if other.Reference == res.Reference {
			return reservation.ErrReferenceCollision
		}
	}
	if err := r.checkExclusion(res); err != nil {
		return err
	}
	res.ID = uuid.NewString()
	r.s.reservations[res.ID] = *res
	return nil
}

func (r memReservationRepo) GetByID(_ context.Context, id string) (*reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return &res, nil
}

func (r memReservationRepo) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	if err := requireTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r memReservationRepo) ExistsByReference(_ context.Context, ref string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range r.s.reservations {
		if res.Reference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r memReservationRepo) ListActiveByRoom(_ context.Context, _ transaction.Tx, roomID string) ([]*reservation.Reservation, error) {
	return r.s.activeByRoom(roomID), nil
}

func (r memReservationRepo) selectWhere(pred func(reservation.Reservation) bool) []*reservation.Reservation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*reservation.Reservation{}
	for _, res := range r.s.reservations {
		if pred(res) {
			c := res
			result = append(result, &c)
		}
	}
	return result
}

func (r memReservationRepo) hotelOf(roomID string) string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.rooms[roomID].HotelID
}

func (r memReservationRepo) List(_ context.Context, f reservation.ListFilter) ([]*reservation.Reservation, error) {
	hotels := map[string]string{}
	r.s.mu.Lock()
	for id, rm := range r.s.rooms {
		hotels[id] = rm.HotelID
	}
	r.s.mu.Unlock()

	result := r.selectWhere(func(res reservation.Reservation) bool {
		switch {
		case f.UserID != "" && res.UserID != f.UserID,
			f.RoomID != "" && res.RoomID != f.RoomID,
			f.HotelID != "" && hotels[res.RoomID] != f.HotelID,
			f.Status != "" && res.Status != f.Status,
			f.From != nil && res.CheckIn.Before(*f.From),
			f.To != nil && res.CheckOut.After(*f.To):
			return false
		}
		return true
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if f.Offset >= len(result) {
		return []*reservation.Reservation{}, nil
	}
	result = result[f.Offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r memReservationRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]*reservation.Reservation, error) {
	result := r.selectWhere(func(res reservation.Reservation) bool {
		return res.Status == reservation.StatusConfirmed && !res.CheckIn.Before(from) && res.CheckIn.Before(to)
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CheckIn.Before(result[j].CheckIn) })
	return result, nil
}

func (r memReservationRepo) ListCurrentGuests(_ context.Context, hotelID string, at time.Time) ([]*reservation.Reservation, error) {
	candidates := r.selectWhere(func(res reservation.Reservation) bool {
		return res.Status == reservation.StatusConfirmed && !res.CheckIn.After(at) && res.CheckOut.After(at)
	})
	result := []*reservation.Reservation{}
	for _, res := range candidates {
		if hotelID == "" || r.hotelOf(res.RoomID) == hotelID {
			result = append(result, res)
		}
	}
	return result, nil
}

func (r memReservationRepo) ListFinishedConfirmed(_ context.Context, before time.Time, limit int) ([]*reservation.Reservation, error) {
	result := r.selectWhere(func(res reservation.Reservation) bool {
		return res.Status == reservation.StatusConfirmed && !res.CheckOut.After(before)
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CheckOut.Before(result[j].CheckOut) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r memReservationRepo) Stats(_ context.Context, hotelID string, monthStart time.Time) (*reservation.Stats, error) {
	all := r.selectWhere(func(reservation.Reservation) bool { return true })
	stats := &reservation.Stats{}
	for _, res := range all {
		if hotelID != "" && r.hotelOf(res.RoomID) != hotelID {
			continue
		}
		stats.Total++
		switch res.Status {
		case reservation.StatusPending:
			stats.Pending++
		case reservation.StatusConfirmed:
			stats.Confirmed++
			stats.Revenue += res.TotalPrice
		case reservation.StatusCancelled:
			stats.Cancelled++
		case reservation.StatusCompleted:
			stats.Completed++
			stats.Revenue += res.TotalPrice
		}
		if !res.CreatedAt.Before(monthStart) {
			stats.CreatedThisMonth++
		}
	}
	return stats, nil
}

func (r memReservationRepo) Update(_ context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[res.ID]; !ok {
		return reservation.ErrReservationNotFound
	}
	if err := r.checkExclusion(res); err != nil {
		return err
	}
	r.s.reservations[res.ID] = *res
	return nil
}

func (r memReservationRepo) Delete(_ context.Context, tx transaction.Tx, id string) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[id]; !ok {
		return reservation.ErrReservationNotFound
	}
	for _, p := range r.s.payments {
		if p.ReservationID == id {
			return reservation.ErrHasPayments
		}
	}
	delete(r.s.reservations, id)
	return nil
}

// --- payment.Repository ---

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) Create(_ context.Context, tx transaction.Tx, p *payment.Payment) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[p.ReservationID]; !ok {
		return reservation.ErrReservationNotFound
	}
	for _, other := range r.s.payments {
		if other.Reference == p.Reference {
			return payment.ErrReferenceCollision
		}
	}
	p.ID = uuid.NewString()
	r.s.payments[p.ID] = *p
	r.s.paymentOrder = append(r.s.paymentOrder, p.ID)
	return nil
}

func (r memPaymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return &p, nil
}

func (r memPaymentRepo) ListByReservation(_ context.Context, _ transaction.Tx, reservationID string) ([]*payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*payment.Payment{}
	for _, id := range r.s.paymentOrder {
		p, ok := r.s.payments[id]
		if ok && p.ReservationID == reservationID {
			result = append(result, &p)
		}
	}
	return result, nil
}

func (r memPaymentRepo) CountByReservation(ctx context.Context, tx transaction.Tx, reservationID string) (int, error) {
	payments, err := r.ListByReservation(ctx, tx, reservationID)
	return len(payments), err
}

func (r memPaymentRepo) ExistsByReference(_ context.Context, ref string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.Reference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r memPaymentRepo) Update(_ context.Context, tx transaction.Tx, p *payment.Payment) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.ID]; !ok {
		return payment.ErrPaymentNotFound
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r memPaymentRepo) Delete(_ context.Context, tx transaction.Tx, id string) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[id]; !ok {
		return payment.ErrPaymentNotFound
	}
	delete(r.s.payments, id)
	return nil
}

func (r memPaymentRepo) Stats(_ context.Context) (*payment.Stats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &payment.Stats{RevenueByMethod: map[payment.Method]int64{}}
	for _, p := range r.s.payments {
		stats.Total++
		switch p.Status {
		case payment.StatusPending:
			stats.Pending++
		case payment.StatusCompleted:
			stats.Completed++
			stats.Revenue += p.Amount
			stats.RevenueByMethod[p.Method] += p.Amount
		case payment.StatusFailed:
			stats.Failed++
		case payment.StatusCancelled:
			stats.Cancelled++
		case payment.StatusRefunded:
			stats.Refunded++
		}
	}
	if stats.Completed > 0 {
		stats.AverageAmount = stats.Revenue / int64(stats.Completed)
	}
	return stats, nil
}

var (
	_ transaction.Manager    = (*memStore)(nil)
	_ room.Repository        = memRoomRepo{}
	_ reservation.Repository = memReservationRepo{}
	_ payment.Repository     = memPaymentRepo{}
)
