package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
)

// MockRoomService はRoomServiceInterfaceのモック
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) CreateRoom(ctx context.Context, input application.CreateRoomInput, actor reservation.Actor) (*room.Room, error) {
	args := m.Called(ctx, input, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

func (m *MockRoomService) GetRoom(ctx context.Context, id string) (*room.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

func (m *MockRoomService) ListRoomsByHotel(ctx context.Context, hotelID string) ([]*room.Room, error) {
	args := m.Called(ctx, hotelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*room.Room), args.Error(1)
}

func (m *MockRoomService) SetRoomAvailability(ctx context.Context, id string, available bool, actor reservation.Actor) (*room.Room, error) {
	args := m.Called(ctx, id, available, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) reservation(args mock.Arguments) (*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) reservations(args mock.Arguments) ([]*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CheckAvailability(ctx context.Context, input application.CheckAvailabilityInput) (bool, error) {
	args := m.Called(ctx, input)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	return m.reservation(m.Called(ctx, input))
}

func (m *MockReservationService) ConfirmReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error) {
	return m.reservation(m.Called(ctx, id, actor))
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error) {
	return m.reservation(m.Called(ctx, id, actor))
}

func (m *MockReservationService) UpdateReservation(ctx context.Context, id string, input application.UpdateReservationInput, actor reservation.Actor) (*reservation.Reservation, error) {
	return m.reservation(m.Called(ctx, id, input, actor))
}

func (m *MockReservationService) DeleteReservation(ctx context.Context, id string, actor reservation.Actor) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error) {
	return m.reservation(m.Called(ctx, id, actor))
}

func (m *MockReservationService) ListReservations(ctx context.Context, filter reservation.ListFilter, actor reservation.Actor) ([]*reservation.Reservation, error) {
	return m.reservations(m.Called(ctx, filter, actor))
}

func (m *MockReservationService) GetReservationStats(ctx context.Context, hotelID string, actor reservation.Actor) (*reservation.Stats, error) {
	args := m.Called(ctx, hotelID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Stats), args.Error(1)
}

func (m *MockReservationService) ListUpcomingReservations(ctx context.Context, daysAhead int, actor reservation.Actor) ([]*reservation.Reservation, error) {
	return m.reservations(m.Called(ctx, daysAhead, actor))
}

func (m *MockReservationService) ListCurrentGuests(ctx context.Context, hotelID string, actor reservation.Actor) ([]*reservation.Reservation, error) {
	return m.reservations(m.Called(ctx, hotelID, actor))
}

// MockPaymentService はPaymentServiceInterfaceのモック
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) payment(args mock.Arguments) (*payment.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, input application.RecordPaymentInput, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, input, actor))
}

func (m *MockPaymentService) UpdatePayment(ctx context.Context, id string, changes payment.Changes, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, id, changes, actor))
}

func (m *MockPaymentService) CompletePayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, id, actor))
}

func (m *MockPaymentService) FailPayment(ctx context.Context, id, reason string, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, id, reason, actor))
}

func (m *MockPaymentService) CancelPayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, id, actor))
}

func (m *MockPaymentService) DeletePayment(ctx context.Context, id string, actor reservation.Actor) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error) {
	return m.payment(m.Called(ctx, id, actor))
}

func (m *MockPaymentService) ListPayments(ctx context.Context, reservationID string, actor reservation.Actor) ([]*payment.Payment, error) {
	args := m.Called(ctx, reservationID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

func (m *MockPaymentService) GetSettlementStatus(ctx context.Context, reservationID string, actor reservation.Actor) (*payment.Settlement, error) {
	args := m.Called(ctx, reservationID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Settlement), args.Error(1)
}

func (m *MockPaymentService) GetPaymentStats(ctx context.Context, actor reservation.Actor) (*payment.Stats, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Stats), args.Error(1)
}
