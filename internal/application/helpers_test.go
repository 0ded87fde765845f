package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/pricing"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/stay"
	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
	redisinfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/metrics"
)

// === Mock implementations ===

// MockLockManager implements redisinfra.LockManagerInterface
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryDelay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

// MockLock implements redisinfra.Lock
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLock) Extend(ctx context.Context, ttl time.Duration) error {
	args := m.Called(ctx, ttl)
	return args.Error(0)
}

// MockAvailabilityCache implements redisinfra.AvailabilityCacheInterface
type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) Get(ctx context.Context, roomID string, r stay.Range) (bool, error) {
	args := m.Called(ctx, roomID, r)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityCache) Generation(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAvailabilityCache) Set(ctx context.Context, roomID string, r stay.Range, gen int64, available bool, ttl time.Duration) error {
	args := m.Called(ctx, roomID, r, gen, available, ttl)
	return args.Error(0)
}

// memAvailabilityCache は世代付きのインメモリ空室キャッシュ
// beforeSet は Set の直前に呼ばれる
type memAvailabilityCache struct {
	mu        sync.Mutex
	entries   map[string]bool
	gens      map[string]int64
	beforeSet func()
}

func newMemAvailabilityCache() *memAvailabilityCache {
	return &memAvailabilityCache{entries: map[string]bool{}, gens: map[string]int64{}}
}

func memCacheKey(roomID string, r stay.Range) string {
	return roomID + "|" + r.CheckIn.String() + "|" + r.CheckOut.String()
}

func (c *memAvailabilityCache) Get(_ context.Context, roomID string, r stay.Range) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	free, ok := c.entries[memCacheKey(roomID, r)]
	if !ok {
		return false, redisinfra.ErrCacheMiss
	}
	return free, nil
}

func (c *memAvailabilityCache) Generation(_ context.Context, roomID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[roomID], nil
}

func (c *memAvailabilityCache) Set(_ context.Context, roomID string, r stay.Range, gen int64, available bool, _ time.Duration) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[roomID] != gen {
		return nil
	}
	c.entries[memCacheKey(roomID, r)] = available
	return nil
}

func (c *memAvailabilityCache) Invalidate(_ context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[roomID]++
	for k := range c.entries {
		if strings.HasPrefix(k, roomID+"|") {
			delete(c.entries, k)
		}
	}
	return nil
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockPublisher implements kafkainfra.PublisherInterface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e kafkainfra.Event) {
	m.Called(ctx, e)
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(e kafkainfra.Event) bool { return e.Type == eventType })
}

// === Test helper ===

var (
	admin = reservation.Actor{UserID: "admin-1", IsAdmin: true}
	guest = reservation.Actor{UserID: "user-1"}
	other = reservation.Actor{UserID: "user-2"}
)

const (
	testRoomID  = "room-1"
	testHotelID = "hotel-1"
	testRate    = int64(500000)
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testClock は進められる固定時計
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	store        *memStore
	clock        *testClock
	publisher    *MockPublisher
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	reservations *ReservationService
	payments     *PaymentService
	rooms        *RoomService
}

type envConfig struct {
	lockManager redisinfra.LockManagerInterface
	cache       redisinfra.AvailabilityCacheInterface
}

type envOption func(*envConfig)

func withLockManager(lm redisinfra.LockManagerInterface) envOption {
	return func(c *envConfig) { c.lockManager = lm }
}

func withCache(cache redisinfra.AvailabilityCacheInterface) envOption {
	return func(c *envConfig) { c.cache = cache }
}

// newTestEnv は 2024-01-05 10:00 UTC 固定の時計と、1泊 500000・定員2名の客室を1室持つ環境を作る
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store := newMemStore()
	store.seedRoom(room.Room{
		ID: testRoomID, HotelID: testHotelID, RoomNumber: "101",
		PricePerNight: testRate, Capacity: 2, IsAvailable: true,
	})

	clock := &testClock{now: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)}
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	options := []Option{WithClock(clock.Now), WithPublisher(publisher), WithMetrics(m)}
	roomRepo := memRoomRepo{s: store}
	resRepo := memReservationRepo{s: store}
	payRepo := memPaymentRepo{s: store}

	return &testEnv{
		store:        store,
		clock:        clock,
		publisher:    publisher,
		metrics:      m,
		registry:     reg,
		reservations: NewReservationService(store, resRepo, roomRepo, payRepo, cfg.lockManager, cfg.cache, options...),
		payments:     NewPaymentService(store, payRepo, resRepo, options...),
		rooms:        NewRoomService(roomRepo, cfg.cache),
	}
}

func (e *testEnv) create(t *testing.T, actor reservation.Actor, checkIn, checkOut time.Time) *reservation.Reservation {
	t.Helper()
	res, err := e.reservations.CreateReservation(context.Background(), CreateReservationInput{
		UserID: actor.UserID, RoomID: testRoomID,
		CheckIn: checkIn, CheckOut: checkOut, GuestCount: 2,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) createConfirmed(t *testing.T, checkIn, checkOut time.Time) *reservation.Reservation {
	t.Helper()
	res := e.create(t, guest, checkIn, checkOut)
	res, err := e.reservations.ConfirmReservation(context.Background(), res.ID, admin)
	require.NoError(t, err)
	return res
}

// seedReservation は制約を通さずに予約を直接登録する
func (e *testEnv) seedReservation(id string, status reservation.Status, checkIn, checkOut time.Time) reservation.Reservation {
	period := stay.Range{CheckIn: checkIn, CheckOut: checkOut}
	quote, _ := pricing.Calculate(period, testRate)
	res := reservation.NewReservation(guest.UserID, testRoomID, period, 1, "", quote, e.clock.Now())
	res.ID = id
	res.Reference = id
	res.Status = status
	e.store.seedReservation(*res)
	return *res
}

func (e *testEnv) record(t *testing.T, reservationID string, amount int64) *payment.Payment {
	t.Helper()
	p, err := e.payments.RecordPayment(context.Background(), RecordPaymentInput{
		ReservationID: reservationID, Amount: amount, Method: payment.MethodCard,
	}, guest)
	require.NoError(t, err)
	return p
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			matched := true
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					matched = false
				}
			}
			if matched {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
