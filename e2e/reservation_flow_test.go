package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

var (
	adminHeaders = map[string]string{"X-User-ID": "e2e-admin", "X-User-Role": "admin"}
	guestHeaders = map[string]string{"X-User-ID": "e2e-user-yamada"}
	otherHeaders = map[string]string{"X-User-ID": "e2e-user-suzuki"}
)

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// daysFromNow は今日から n 日後の日付を YYYY-MM-DD で返す
func daysFromNow(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format("2006-01-02")
}

// createRoom は1泊 500000 の客室を登録して ID を返す
func createRoom(t *testing.T, server *TestServer, number string) string {
	t.Helper()
	rec := server.Request(http.MethodPost, "/api/v1/rooms", map[string]interface{}{
		"hotel_id":        uuid.NewString(),
		"room_number":     number,
		"price_per_night": 500000,
		"capacity":        2,
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func createReservation(server *TestServer, roomID string, from, to int, headers map[string]string) *httptest.ResponseRecorder {
	return server.Request(http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"room_id":     roomID,
		"check_in":    daysFromNow(from),
		"check_out":   daysFromNow(to),
		"guest_count": 2,
	}, headers)
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

// TestE2E_CompleteStayJourney は予約から精算までの流れをテスト
func TestE2E_CompleteStayJourney(t *testing.T) {
	server := getTestServer(t)

	roomID := createRoom(t, server, "101")
	var reservationID, paymentID string

	// 1. 空室確認
	t.Run("空室確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/rooms/%s/availability?check_in=%s&check_out=%s", roomID, daysFromNow(30), daysFromNow(32))
		rec := server.Request(http.MethodGet, path, nil, guestHeaders)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["available"])
	})

	// 2. 予約作成
	t.Run("予約作成", func(t *testing.T) {
		rec := createReservation(server, roomID, 30, 32, guestHeaders)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode(t, rec)
		reservationID = resp["id"].(string)
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, float64(2), resp["total_nights"])
		assert.Equal(t, float64(1000000), resp["total_price"])
		assert.Regexp(t, `^[A-Z0-9]{8}$`, resp["reference"])
	})

	// 3. 保留中の予約も期間を占有する
	t.Run("重複する予約は409", func(t *testing.T) {
		rec := createReservation(server, roomID, 31, 33, otherHeaders)
		assert.Equal(t, http.StatusConflict, rec.Code)

		path := fmt.Sprintf("/api/v1/rooms/%s/availability?check_in=%s&check_out=%s", roomID, daysFromNow(31), daysFromNow(33))
		rec = server.Request(http.MethodGet, path, nil, otherHeaders)
		assert.Equal(t, false, decode(t, rec)["available"])
	})

	// 4. チェックアウト日からの予約は可能
	t.Run("隣接する予約", func(t *testing.T) {
		rec := createReservation(server, roomID, 32, 33, otherHeaders)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	// 5. 保留中は支払いを登録できない
	t.Run("確定前の支払いは409", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/payments", reservationID),
			map[string]interface{}{"amount": 1000000, "method": "card"}, guestHeaders)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	// 6. 予約確定
	t.Run("一般ユーザーは確定できない", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/confirm", reservationID), nil, guestHeaders)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("予約確定", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/confirm", reservationID), nil, adminHeaders)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode(t, rec)
		assert.Equal(t, "confirmed", resp["status"])
		assert.NotNil(t, resp["confirmed_at"])
	})

	// 7. 支払い登録と完了
	t.Run("支払い登録", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/payments", reservationID),
			map[string]interface{}{"amount": 1000000, "method": "card"}, guestHeaders)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode(t, rec)
		paymentID = resp["id"].(string)
		assert.Equal(t, "pending", resp["status"])
		assert.Regexp(t, `^PAY-`, resp["reference"])
	})

	t.Run("支払い完了", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/complete", paymentID), nil, adminHeaders)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "completed", decode(t, rec)["status"])
	})

	// 8. 精算済み後の追加支払いは過払い
	t.Run("過払いは409", func(t *testing.T) {
		rec := server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/payments", reservationID),
			map[string]interface{}{"amount": 1, "method": "cash"}, guestHeaders)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "overpayment_rejected", decode(t, rec)["details"])
	})

	t.Run("精算状況", func(t *testing.T) {
		rec := server.Request(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%s/settlement", reservationID), nil, guestHeaders)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, true, resp["fully_paid"])
		assert.Equal(t, float64(0), resp["remaining"])
	})

	// 9. 他人の予約は見えない
	t.Run("他人の予約は403", func(t *testing.T) {
		rec := server.Request(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%s", reservationID), nil, otherHeaders)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	// 10. 支払いのある予約は削除できない
	t.Run("支払いのある予約の削除は409", func(t *testing.T) {
		rec := server.Request(http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%s", reservationID), nil, adminHeaders)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

// TestE2E_CancelAndRebook はキャンセル後に同じ期間を予約できることをテスト
func TestE2E_CancelAndRebook(t *testing.T) {
	server := getTestServer(t)
	roomID := createRoom(t, server, "201")

	rec := createReservation(server, roomID, 40, 43, guestHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)

	rec = server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/cancel", id), nil, guestHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	// 二重キャンセルは409
	rec = server.Request(http.MethodPost, fmt.Sprintf("/api/v1/reservations/%s/cancel", id), nil, guestHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = createReservation(server, roomID, 40, 43, otherHeaders)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// TestE2E_Reschedule は日程変更で料金が再計算されることをテスト
func TestE2E_Reschedule(t *testing.T) {
	server := getTestServer(t)
	roomID := createRoom(t, server, "301")

	rec := createReservation(server, roomID, 50, 52, guestHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)

	rec = createReservation(server, roomID, 55, 57, otherHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 自分自身との重なりは問題ない
	rec = server.Request(http.MethodPatch, "/api/v1/reservations/"+id,
		map[string]interface{}{"check_out": daysFromNow(55)}, guestHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Equal(t, float64(5), resp["total_nights"])
	assert.Equal(t, float64(2500000), resp["total_price"])

	// 他の予約と重なる変更は拒否され、元の日程が残る
	rec = server.Request(http.MethodPatch, "/api/v1/reservations/"+id,
		map[string]interface{}{"check_out": daysFromNow(56)}, guestHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = server.Request(http.MethodGet, "/api/v1/reservations/"+id, nil, guestHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode(t, rec)["total_nights"])
}

// TestE2E_ConcurrentBooking は同時予約で1件だけ成功することをテスト
func TestE2E_ConcurrentBooking(t *testing.T) {
	server := getTestServer(t)
	roomID := createRoom(t, server, "401")

	const concurrency = 10
	var (
		wg        sync.WaitGroup
		created   int32
		conflicts int32
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headers := map[string]string{"X-User-ID": fmt.Sprintf("e2e-user-%d", i)}
			rec := createReservation(server, roomID, 60, 63, headers)
			switch rec.Code {
			case http.StatusCreated:
				atomic.AddInt32(&created, 1)
			case http.StatusConflict:
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("予期しないステータス: %d %s", rec.Code, rec.Body.String())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	assert.Equal(t, int32(concurrency-1), conflicts)
}

// TestE2E_Validation は入力検証エラーをテスト
func TestE2E_Validation(t *testing.T) {
	server := getTestServer(t)
	roomID := createRoom(t, server, "501")

	t.Run("ユーザーIDなしは401", func(t *testing.T) {
		rec := createReservation(server, roomID, 10, 12, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("逆転した期間は400", func(t *testing.T) {
		rec := createReservation(server, roomID, 12, 10, guestHeaders)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_range", decode(t, rec)["details"])
	})

	t.Run("過去のチェックインは400", func(t *testing.T) {
		rec := createReservation(server, roomID, -2, 1, guestHeaders)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("定員超過は422", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/reservations", map[string]interface{}{
			"room_id": roomID, "check_in": daysFromNow(10), "check_out": daysFromNow(12), "guest_count": 3,
		}, guestHeaders)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("存在しない客室は404", func(t *testing.T) {
		rec := createReservation(server, uuid.NewString(), 10, 12, guestHeaders)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
