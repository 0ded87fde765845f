package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
)

type reservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	Reference     string    `json:"reference"`
	UserID        string    `json:"user_id"`
	RoomID        string    `json:"room_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	TotalNights   int       `json:"total_nights"`
	TotalPrice    int64     `json:"total_price"`
	GuestCount    int       `json:"guest_count"`
	Status        string    `json:"status"`
}

type paymentEvent struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (o *serviceOptions) publishReservation(ctx context.Context, eventType string, r *reservation.Reservation) {
	o.publisher.Publish(ctx, kafkainfra.Event{
		Type: eventType,
		Key:  r.ID,
		Payload: reservationEvent{
			ReservationID: r.ID,
			Reference:     r.Reference,
			UserID:        r.UserID,
			RoomID:        r.RoomID,
			CheckIn:       r.CheckIn,
			CheckOut:      r.CheckOut,
			TotalNights:   r.TotalNights,
			TotalPrice:    r.TotalPrice,
			GuestCount:    r.GuestCount,
			Status:        string(r.Status),
		},
	})
}

func (o *serviceOptions) publishPayment(ctx context.Context, eventType string, p *payment.Payment) {
	o.publisher.Publish(ctx, kafkainfra.Event{
		Type: eventType,
		Key:  p.ReservationID,
		Payload: paymentEvent{
			PaymentID:     p.ID,
			ReservationID: p.ReservationID,
			Reference:     p.Reference,
			Amount:        p.Amount,
			Method:        string(p.Method),
			Status:        string(p.Status),
			FailureReason: p.FailureReason,
		},
	})
}
