package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
)

type PaymentHandler struct {
	service PaymentServiceInterface
}

func NewPaymentHandler(s PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type RecordPaymentRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0" example:"300000"`
	Method string `json:"method" validate:"required,payment_method" example:"card"`
	Notes  string `json:"notes" validate:"max=1000"`
}

type UpdatePaymentRequest struct {
	Amount *int64  `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Method *string `json:"method,omitempty" validate:"omitempty,payment_method"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500" example:"カード会社で拒否"`
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	ReservationID string     `json:"reservation_id"`
	Amount        int64      `json:"amount"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	Reference     string     `json:"reference" example:"PAY-1A2B3C4D"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SettlementResponse struct {
	ReservationID string `json:"reservation_id"`
	Total         int64  `json:"total"`
	Paid          int64  `json:"paid"`
	Pending       int64  `json:"pending"`
	Remaining     int64  `json:"remaining"`
	FullyPaid     bool   `json:"fully_paid"`
	PaymentCount  int    `json:"payment_count"`
}

type PaymentStatsResponse struct {
	Total           int              `json:"total"`
	Pending         int              `json:"pending"`
	Completed       int              `json:"completed"`
	Failed          int              `json:"failed"`
	Cancelled       int              `json:"cancelled"`
	Refunded        int              `json:"refunded"`
	Revenue         int64            `json:"revenue"`
	AverageAmount   int64            `json:"average_amount"`
	RevenueByMethod map[string]int64 `json:"revenue_by_method"`
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID: p.ID, ReservationID: p.ReservationID, Amount: p.Amount,
		Method: string(p.Method), Status: string(p.Status), Reference: p.Reference,
		PaidAt: p.PaidAt, FailureReason: p.FailureReason, Notes: p.Notes,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// Record godoc
// @Summary 支払いを登録
// @Description 確定済みの予約に保留中の支払いを登録します
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body RecordPaymentRequest true "支払い情報"
// @Success 201 {object} PaymentResponse
// @Failure 409 {object} api.ErrorResponse "過払い"
// @Router /reservations/{id}/payments [post]
func (h *PaymentHandler) Record(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req RecordPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.service.RecordPayment(c.Request().Context(), application.RecordPaymentInput{
		ReservationID: c.Param("id"),
		Amount:        req.Amount,
		Method:        payment.Method(req.Method),
		Notes:         req.Notes,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPaymentResponse(p))
}

// ListByReservation godoc
// @Summary 予約の支払い一覧
// @Tags payments
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {array} PaymentResponse
// @Router /reservations/{id}/payments [get]
func (h *PaymentHandler) ListByReservation(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	ps, err := h.service.ListPayments(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	resp := make([]PaymentResponse, len(ps))
	for i, p := range ps {
		resp[i] = toPaymentResponse(p)
	}
	return c.JSON(http.StatusOK, resp)
}

// Settlement godoc
// @Summary 予約の精算状況
// @Tags payments
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} SettlementResponse
// @Router /reservations/{id}/settlement [get]
func (h *PaymentHandler) Settlement(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	s, err := h.service.GetSettlementStatus(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SettlementResponse{
		ReservationID: s.ReservationID, Total: s.Total, Paid: s.Paid,
		Pending: s.Pending, Remaining: s.Remaining,
		FullyPaid: s.FullyPaid, PaymentCount: s.PaymentCount,
	})
}

// GetByID godoc
// @Summary 支払いを取得
// @Tags payments
// @Produce json
// @Param id path string true "支払いID"
// @Success 200 {object} PaymentResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetByID(c echo.Context) error {
	return h.respond(c, func(c echo.Context) (*payment.Payment, error) {
		actor, err := actorOf(c)
		if err != nil {
			return nil, err
		}
		return h.service.GetPayment(c.Request().Context(), c.Param("id"), actor)
	})
}

// Update godoc
// @Summary 保留中の支払いを変更
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "支払いID"
// @Param request body UpdatePaymentRequest true "変更内容"
// @Success 200 {object} PaymentResponse
// @Router /payments/{id} [patch]
func (h *PaymentHandler) Update(c echo.Context) error {
	return h.respond(c, func(c echo.Context) (*payment.Payment, error) {
		actor, err := actorOf(c)
		if err != nil {
			return nil, err
		}
		var req UpdatePaymentRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		changes := payment.Changes{Amount: req.Amount, Notes: req.Notes}
		if req.Method != nil {
			m := payment.Method(*req.Method)
			changes.Method = &m
		}
		return h.service.UpdatePayment(c.Request().Context(), c.Param("id"), changes, actor)
	})
}

// Complete godoc
// @Summary 支払いを完了（管理者）
// @Description 完了済み合計が予約金額を超える場合は拒否します
// @Tags payments
// @Produce json
// @Param id path string true "支払いID"
// @Success 200 {object} PaymentResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /payments/{id}/complete [post]
func (h *PaymentHandler) Complete(c echo.Context) error {
	return h.respond(c, func(c echo.Context) (*payment.Payment, error) {
		actor, err := actorOf(c)
		if err != nil {
			return nil, err
		}
		return h.service.CompletePayment(c.Request().Context(), c.Param("id"), actor)
	})
}

// Fail godoc
// @Summary 支払いを失敗にする（管理者）
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "支払いID"
// @Param request body FailPaymentRequest false "失敗理由"
// @Success 200 {object} PaymentResponse
// @Router /payments/{id}/fail [post]
func (h *PaymentHandler) Fail(c echo.Context) error {
	return h.respond(c, func(c echo.Context) (*payment.Payment, error) {
		actor, err := actorOf(c)
		if err != nil {
			return nil, err
		}
		var req FailPaymentRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return h.service.FailPayment(c.Request().Context(), c.Param("id"), req.Reason, actor)
	})
}

// Cancel godoc
// @Summary 保留中の支払いを取り消す
// @Tags payments
// @Produce json
// @Param id path string true "支払いID"
// @Success 200 {object} PaymentResponse
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c echo.Context) error {
	return h.respond(c, func(c echo.Context) (*payment.Payment, error) {
		actor, err := actorOf(c)
		if err != nil {
			return nil, err
		}
		return h.service.CancelPayment(c.Request().Context(), c.Param("id"), actor)
	})
}

// Delete godoc
// @Summary 支払いを削除
// @Description 完了済みの支払いは削除できません
// @Tags payments
// @Param id path string true "支払いID"
// @Success 204
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if err := h.service.DeletePayment(c.Request().Context(), c.Param("id"), actor); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats godoc
// @Summary 支払いの集計（管理者）
// @Tags payments
// @Produce json
// @Success 200 {object} PaymentStatsResponse
// @Router /payments/stats [get]
func (h *PaymentHandler) Stats(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	s, err := h.service.GetPaymentStats(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	byMethod := make(map[string]int64, len(s.RevenueByMethod))
	for m, v := range s.RevenueByMethod {
		byMethod[string(m)] = v
	}
	return c.JSON(http.StatusOK, PaymentStatsResponse{
		Total: s.Total, Pending: s.Pending, Completed: s.Completed,
		Failed: s.Failed, Cancelled: s.Cancelled, Refunded: s.Refunded,
		Revenue: s.Revenue, AverageAmount: s.AverageAmount, RevenueByMethod: byMethod,
	})
}

// respond は単一の支払いを返すハンドラーの共通処理
func (h *PaymentHandler) respond(c echo.Context, fn func(echo.Context) (*payment.Payment, error)) error {
	p, err := fn(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponse(p))
}
