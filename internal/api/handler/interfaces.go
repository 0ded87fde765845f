package handler

import (
	"context"

	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
)

// RoomServiceInterface は客室サービスのインターフェース
type RoomServiceInterface interface {
	CreateRoom(ctx context.Context, input application.CreateRoomInput, actor reservation.Actor) (*room.Room, error)
	GetRoom(ctx context.Context, id string) (*room.Room, error)
	ListRoomsByHotel(ctx context.Context, hotelID string) ([]*room.Room, error)
	SetRoomAvailability(ctx context.Context, id string, available bool, actor reservation.Actor) (*room.Room, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CheckAvailability(ctx context.Context, input application.CheckAvailabilityInput) (bool, error)
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	ConfirmReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error)
	UpdateReservation(ctx context.Context, id string, input application.UpdateReservationInput, actor reservation.Actor) (*reservation.Reservation, error)
	DeleteReservation(ctx context.Context, id string, actor reservation.Actor) error
	GetReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error)
	ListReservations(ctx context.Context, filter reservation.ListFilter, actor reservation.Actor) ([]*reservation.Reservation, error)
	GetReservationStats(ctx context.Context, hotelID string, actor reservation.Actor) (*reservation.Stats, error)
	ListUpcomingReservations(ctx context.Context, daysAhead int, actor reservation.Actor) ([]*reservation.Reservation, error)
	ListCurrentGuests(ctx context.Context, hotelID string, actor reservation.Actor) ([]*reservation.Reservation, error)
}

// PaymentServiceInterface は支払いサービスのインターフェース
type PaymentServiceInterface interface {
	RecordPayment(ctx context.Context, input application.RecordPaymentInput, actor reservation.Actor) (*payment.Payment, error)
	UpdatePayment(ctx context.Context, id string, changes payment.Changes, actor reservation.Actor) (*payment.Payment, error)
	CompletePayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error)
	FailPayment(ctx context.Context, id, reason string, actor reservation.Actor) (*payment.Payment, error)
	CancelPayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error)
	DeletePayment(ctx context.Context, id string, actor reservation.Actor) error
	GetPayment(ctx context.Context, id string, actor reservation.Actor) (*payment.Payment, error)
	ListPayments(ctx context.Context, reservationID string, actor reservation.Actor) ([]*payment.Payment, error)
	GetSettlementStatus(ctx context.Context, reservationID string, actor reservation.Actor) (*payment.Settlement, error)
	GetPaymentStats(ctx context.Context, actor reservation.Actor) (*payment.Stats, error)
}
