package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
)

type RoomHandler struct {
	rooms        RoomServiceInterface
	reservations ReservationServiceInterface
}

func NewRoomHandler(rooms RoomServiceInterface, reservations ReservationServiceInterface) *RoomHandler {
	return &RoomHandler{rooms: rooms, reservations: reservations}
}

type CreateRoomRequest struct {
	HotelID       string `json:"hotel_id" validate:"required" example:"hotel-1"`
	RoomNumber    string `json:"room_number" validate:"required,max=20" example:"101"`
	PricePerNight int64  `json:"price_per_night" validate:"required,gt=0" example:"500000"`
	Capacity      int    `json:"capacity" validate:"required,gt=0" example:"2"`
}

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type RoomResponse struct {
	ID            string    `json:"id"`
	HotelID       string    `json:"hotel_id"`
	RoomNumber    string    `json:"room_number"`
	PricePerNight int64     `json:"price_per_night"`
	Capacity      int       `json:"capacity"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AvailabilityResponse struct {
	RoomID    string    `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Available bool      `json:"available"`
}

func toRoomResponse(r *room.Room) RoomResponse {
	return RoomResponse{
		ID: r.ID, HotelID: r.HotelID, RoomNumber: r.RoomNumber,
		PricePerNight: r.PricePerNight, Capacity: r.Capacity, IsAvailable: r.IsAvailable,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// Create godoc
// @Summary 客室を登録（管理者）
// @Tags rooms
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest true "客室情報"
// @Success 201 {object} RoomResponse
// @Failure 409 {object} api.ErrorResponse "部屋番号が重複"
// @Router /rooms [post]
func (h *RoomHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req CreateRoomRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.rooms.CreateRoom(c.Request().Context(), application.CreateRoomInput{
		HotelID: req.HotelID, RoomNumber: req.RoomNumber,
		PricePerNight: req.PricePerNight, Capacity: req.Capacity,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRoomResponse(r))
}

// GetByID godoc
// @Summary 客室を取得
// @Tags rooms
// @Produce json
// @Param id path string true "客室ID"
// @Success 200 {object} RoomResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /rooms/{id} [get]
func (h *RoomHandler) GetByID(c echo.Context) error {
	r, err := h.rooms.GetRoom(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResponse(r))
}

// ListByHotel godoc
// @Summary ホテルの客室一覧
// @Tags rooms
// @Produce json
// @Param hotel_id path string true "ホテルID"
// @Success 200 {array} RoomResponse
// @Router /hotels/{hotel_id}/rooms [get]
func (h *RoomHandler) ListByHotel(c echo.Context) error {
	rooms, err := h.rooms.ListRoomsByHotel(c.Request().Context(), c.Param("hotel_id"))
	if err != nil {
		return err
	}
	resp := make([]RoomResponse, len(rooms))
	for i, r := range rooms {
		resp[i] = toRoomResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// CheckAvailability godoc
// @Summary 空室確認
// @Description 期間内に予約可能かを返します。状態は変更しません
// @Tags rooms
// @Produce json
// @Param id path string true "客室ID"
// @Param check_in query string true "チェックイン日"
// @Param check_out query string true "チェックアウト日"
// @Param exclude_reservation_id query string false "判定から除外する予約ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /rooms/{id}/availability [get]
func (h *RoomHandler) CheckAvailability(c echo.Context) error {
	checkIn, err := requiredQueryDate(c, "check_in")
	if err != nil {
		return err
	}
	checkOut, err := requiredQueryDate(c, "check_out")
	if err != nil {
		return err
	}
	roomID := c.Param("id")
	ok, err := h.reservations.CheckAvailability(c.Request().Context(), application.CheckAvailabilityInput{
		RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut,
		ExcludeReservationID: c.QueryParam("exclude_reservation_id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut, Available: ok,
	})
}

// SetAvailability godoc
// @Summary 客室の販売状態を変更（管理者）
// @Tags rooms
// @Accept json
// @Produce json
// @Param id path string true "客室ID"
// @Param request body SetAvailabilityRequest true "販売状態"
// @Success 200 {object} RoomResponse
// @Router /rooms/{id}/availability [patch]
func (h *RoomHandler) SetAvailability(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req SetAvailabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.rooms.SetRoomAvailability(c.Request().Context(), c.Param("id"), *req.IsAvailable, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResponse(r))
}
