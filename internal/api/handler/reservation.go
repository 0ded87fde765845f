package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	RoomID     string `json:"room_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	CheckIn    *Date  `json:"check_in" validate:"required" swaggertype:"string" example:"2025-03-01"`
	CheckOut   *Date  `json:"check_out" validate:"required" swaggertype:"string" example:"2025-03-03"`
	GuestCount int    `json:"guest_count" validate:"required,gt=0" example:"2"`
	Notes      string `json:"notes" validate:"max=1000" example:"禁煙室希望"`
}

type UpdateReservationRequest struct {
	CheckIn    *Date   `json:"check_in,omitempty" swaggertype:"string"`
	CheckOut   *Date   `json:"check_out,omitempty" swaggertype:"string"`
	GuestCount *int    `json:"guest_count,omitempty" validate:"omitempty,gt=0"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ReservationResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Reference   string     `json:"reference" example:"K3X9QZ2A"`
	UserID      string     `json:"user_id" example:"user-123"`
	RoomID      string     `json:"room_id"`
	CheckIn     time.Time  `json:"check_in"`
	CheckOut    time.Time  `json:"check_out"`
	TotalNights int        `json:"total_nights" example:"2"`
	TotalPrice  int64      `json:"total_price" example:"1000000"`
	Status      string     `json:"status" example:"pending"`
	GuestCount  int        `json:"guest_count" example:"2"`
	Notes       string     `json:"notes,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, Reference: r.Reference, UserID: r.UserID, RoomID: r.RoomID,
		CheckIn: r.CheckIn, CheckOut: r.CheckOut,
		TotalNights: r.TotalNights, TotalPrice: r.TotalPrice,
		Status: string(r.Status), GuestCount: r.GuestCount, Notes: r.Notes,
		ConfirmedAt: r.ConfirmedAt, CancelledAt: r.CancelledAt, CompletedAt: r.CompletedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservationResponses(rs []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		resp[i] = toReservationResponse(r)
	}
	return resp
}

type StatsResponse struct {
	Total            int   `json:"total"`
	Pending          int   `json:"pending"`
	Confirmed        int   `json:"confirmed"`
	Cancelled        int   `json:"cancelled"`
	Completed        int   `json:"completed"`
	Revenue          int64 `json:"revenue"`
	CreatedThisMonth int   `json:"created_this_month"`
}

// Create godoc
// @Summary 予約を作成
// @Description 客室を指定期間で仮予約します（保留中）
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "期間が重複"
// @Failure 422 {object} api.ErrorResponse "定員超過"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		UserID: actor.UserID, RoomID: req.RoomID,
		CheckIn: req.CheckIn.Time, CheckOut: req.CheckOut.Time,
		GuestCount: req.GuestCount, Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// List godoc
// @Summary 予約一覧を取得
// @Description 管理者以外は自分の予約のみ取得します
// @Tags reservations
// @Produce json
// @Param user_id query string false "ユーザーID（管理者のみ）"
// @Param room_id query string false "客室ID"
// @Param hotel_id query string false "ホテルID"
// @Param status query string false "状態"
// @Param from query string false "チェックインがこの日以降"
// @Param to query string false "チェックアウトがこの日以前"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Router /reservations [get]
func (h *ReservationHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	filter := reservation.ListFilter{
		UserID:  c.QueryParam("user_id"),
		RoomID:  c.QueryParam("room_id"),
		HotelID: c.QueryParam("hotel_id"),
	}
	if s := c.QueryParam("status"); s != "" {
		filter.Status = reservation.Status(s)
		if !filter.Status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "status が不正です")
		}
	}
	if filter.From, err = queryDate(c, "from"); err != nil {
		return err
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return err
	}
	if filter.Limit, err = queryInt(c, "limit", 20); err != nil {
		return err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return err
	}

	rs, err := h.service.ListReservations(c.Request().Context(), filter, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// Update godoc
// @Summary 予約を変更
// @Description 日程変更時は空室を再確認し料金を再計算します
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body UpdateReservationRequest true "変更内容"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id} [patch]
func (h *ReservationHandler) Update(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req UpdateReservationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.service.UpdateReservation(c.Request().Context(), c.Param("id"), application.UpdateReservationInput{
		CheckIn:    req.CheckIn.ptr(),
		CheckOut:   req.CheckOut.ptr(),
		GuestCount: req.GuestCount,
		Notes:      req.Notes,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Delete godoc
// @Summary 予約を削除（管理者）
// @Tags reservations
// @Param id path string true "予約ID"
// @Success 204
// @Failure 409 {object} api.ErrorResponse "支払いが存在"
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Delete(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteReservation(c.Request().Context(), c.Param("id"), actor); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm godoc
// @Summary 予約を確定（管理者）
// @Description 空室を再確認してから確定します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	r, err := h.service.ConfirmReservation(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description チェックイン日の前日までキャンセルできます
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	r, err := h.service.CancelReservation(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Stats godoc
// @Summary 予約の集計（管理者）
// @Tags reservations
// @Produce json
// @Param hotel_id query string false "ホテルID"
// @Success 200 {object} StatsResponse
// @Router /reservations/stats [get]
func (h *ReservationHandler) Stats(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	s, err := h.service.GetReservationStats(c.Request().Context(), c.QueryParam("hotel_id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatsResponse{
		Total: s.Total, Pending: s.Pending, Confirmed: s.Confirmed,
		Cancelled: s.Cancelled, Completed: s.Completed,
		Revenue: s.Revenue, CreatedThisMonth: s.CreatedThisMonth,
	})
}

// Upcoming godoc
// @Summary 今後のチェックイン予定（管理者）
// @Tags reservations
// @Produce json
// @Param days query int false "日数" default(7)
// @Success 200 {array} ReservationResponse
// @Router /reservations/upcoming [get]
func (h *ReservationHandler) Upcoming(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	days, err := queryInt(c, "days", 7)
	if err != nil {
		return err
	}
	rs, err := h.service.ListUpcomingReservations(c.Request().Context(), days, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// CurrentGuests godoc
// @Summary 滞在中の宿泊者（管理者）
// @Tags reservations
// @Produce json
// @Param hotel_id query string false "ホテルID"
// @Success 200 {array} ReservationResponse
// @Router /reservations/current-guests [get]
func (h *ReservationHandler) CurrentGuests(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	rs, err := h.service.ListCurrentGuests(c.Request().Context(), c.QueryParam("hotel_id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}
