package room

import "time"

// Room は予約対象となる客室を表す
type Room struct {
	ID            string
	HotelID       string
	RoomNumber    string
	PricePerNight int64 // 最小通貨単位
	Capacity      int
	IsAvailable   bool // 販売停止中は false
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRoom は新しい客室を作成する
func NewRoom(hotelID, roomNumber string, pricePerNight int64, capacity int) *Room {
	now := time.Now()
	return &Room{
		HotelID:       hotelID,
		RoomNumber:    roomNumber,
		PricePerNight: pricePerNight,
		Capacity:      capacity,
		IsAvailable:   true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate は客室の検証を行う
func (r *Room) Validate() error {
	if r.HotelID == "" {
		return ErrHotelIDRequired
	}
	if r.RoomNumber == "" {
		return ErrRoomNumberRequired
	}
	if r.PricePerNight <= 0 {
		return ErrInvalidPrice
	}
	if r.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// Accommodates は人数が定員以内かを返す
func (r *Room) Accommodates(guests int) bool {
	return guests > 0 && guests <= r.Capacity
}

// SetAvailability は販売状態を切り替える
func (r *Room) SetAvailability(available bool) {
	r.IsAvailable = available
	r.UpdatedAt = time.Now()
}
