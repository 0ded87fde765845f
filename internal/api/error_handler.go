package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/pricing"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"` // エラー種別
}

// errorKind はドメインエラーの種別と対応するステータスコード
type errorKind struct {
	status int
	name   string
	errs   []error
}

// 上から順に判定する（Overpayment などの個別種別を Conflict より先に置く）
var errorKinds = []errorKind{
	{http.StatusNotFound, "not_found", []error{
		reservation.ErrReservationNotFound, room.ErrRoomNotFound, payment.ErrPaymentNotFound,
	}},
	{http.StatusForbidden, "forbidden", []error{reservation.ErrForbidden}},
	{http.StatusConflict, "overpayment_rejected", []error{payment.ErrOverpaymentRejected}},
	{http.StatusConflict, "has_dependents", []error{reservation.ErrHasPayments}},
	{http.StatusConflict, "invalid_transition", []error{
		reservation.ErrInvalidTransition, payment.ErrInvalidTransition,
	}},
	{http.StatusConflict, "conflict", []error{reservation.ErrConflict, room.ErrRoomNumberAlreadyUsed}},
	{http.StatusUnprocessableEntity, "capacity_exceeded", []error{reservation.ErrCapacityExceeded}},
	{http.StatusBadRequest, "invalid_range", []error{reservation.ErrInvalidRange}},
	{http.StatusBadRequest, "validation", []error{
		reservation.ErrUserIDRequired, reservation.ErrRoomIDRequired, reservation.ErrInvalidGuestCount,
		payment.ErrReservationIDRequired, payment.ErrInvalidAmount, payment.ErrInvalidMethod,
		room.ErrHotelIDRequired, room.ErrRoomNumberRequired, room.ErrInvalidPrice, room.ErrInvalidCapacity,
		pricing.ErrInvalidRate, pricing.ErrTotalOverflow,
	}},
	{http.StatusGatewayTimeout, "timeout", []error{context.DeadlineExceeded}},
}

// StatusOf はエラーに対応するステータスコードと種別を返す
func StatusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ""
	}
	for _, k := range errorKinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.status, k.name
			}
		}
	}
	return http.StatusInternalServerError, ""
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ハンドラーが返したドメインエラーをステータスコードに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, kind := StatusOf(err)
	message := "内部サーバーエラー"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case code < 500:
		message = err.Error()
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", logger.RequestIDFrom(c.Request().Context())),
			zap.Error(err),
		)
	}

	// HEAD にはボディを返さない
	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			logger.Error("エラーレスポンス送信失敗", zap.Error(err))
		}
		return
	}
	if err := c.JSON(code, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: kind,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
