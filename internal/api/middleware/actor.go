package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	roleAdmin = "admin"
	actorKey  = "actor"
)

// Actor は認証済みの呼び出し元をヘッダーから取り出すミドルウェア
// トークンの検証は前段のゲートウェイで行われている前提
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
			}
			role := c.Request().Header.Get(HeaderUserRole)
			c.Set(actorKey, reservation.Actor{
				UserID:  userID,
				IsAdmin: strings.EqualFold(role, roleAdmin),
			})
			return next(c)
		}
	}
}

// ActorFrom はミドルウェアが設定した呼び出し元を返す
func ActorFrom(c echo.Context) (reservation.Actor, bool) {
	a, ok := c.Get(actorKey).(reservation.Actor)
	return a, ok
}

// SetActor はテストなどで呼び出し元を直接設定する
func SetActor(c echo.Context, a reservation.Actor) {
	c.Set(actorKey, a)
}
