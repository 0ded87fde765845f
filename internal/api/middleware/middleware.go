package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MaxRequestBody は予約・支払いリクエストの本文上限
// 備考欄（最大1000文字）を含めても十分に収まる
const MaxRequestBody = "64K"

// 予約の変更は PATCH、取り消し系は POST で受ける
var allowedMethods = []string{echo.GET, echo.HEAD, echo.POST, echo.PATCH, echo.PUT, echo.DELETE}

// SetupMiddleware は全ルート共通のミドルウェアを登録する
// 呼び出し元の識別（Actor）は /api/v1 グループ側で行う
func SetupMiddleware(e *echo.Echo) {
	// リクエストIDはイベントの相関IDにも使う
	e.Use(RequestIDMiddleware())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(MaxRequestBody))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: allowedMethods,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, HeaderUserID, HeaderUserRole},
	}))
}
