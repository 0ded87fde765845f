package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-hotel-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-hotel-reservation/internal/config"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health      *HealthHandler
	Room        *RoomHandler
	Reservation *ReservationHandler
	Payment     *PaymentHandler
}

// RegisterRoutes はヘルスチェック・メトリクス・API v1 のルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers, metricsCfg config.MetricsConfig) {
	e.GET("/health", h.Health.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(metricsCfg))

	v1 := e.Group("/api/v1", middleware.Actor())

	v1.POST("/rooms", h.Room.Create)
	v1.GET("/rooms/:id", h.Room.GetByID)
	v1.GET("/rooms/:id/availability", h.Room.CheckAvailability)
	v1.PATCH("/rooms/:id/availability", h.Room.SetAvailability)
	v1.GET("/hotels/:hotel_id/rooms", h.Room.ListByHotel)

	v1.POST("/reservations", h.Reservation.Create)
	v1.GET("/reservations", h.Reservation.List)
	v1.GET("/reservations/stats", h.Reservation.Stats)
	v1.GET("/reservations/upcoming", h.Reservation.Upcoming)
	v1.GET("/reservations/current-guests", h.Reservation.CurrentGuests)
	v1.GET("/reservations/:id", h.Reservation.GetByID)
	v1.PATCH("/reservations/:id", h.Reservation.Update)
	v1.DELETE("/reservations/:id", h.Reservation.Delete)
	v1.POST("/reservations/:id/confirm", h.Reservation.Confirm)
	v1.POST("/reservations/:id/cancel", h.Reservation.Cancel)

	v1.POST("/reservations/:id/payments", h.Payment.Record)
	v1.GET("/reservations/:id/payments", h.Payment.ListByReservation)
	v1.GET("/reservations/:id/settlement", h.Payment.Settlement)
	v1.GET("/payments/stats", h.Payment.Stats)
	v1.GET("/payments/:id", h.Payment.GetByID)
	v1.PATCH("/payments/:id", h.Payment.Update)
	v1.DELETE("/payments/:id", h.Payment.Delete)
	v1.POST("/payments/:id/complete", h.Payment.Complete)
	v1.POST("/payments/:id/fail", h.Payment.Fail)
	v1.POST("/payments/:id/cancel", h.Payment.Cancel)
}
