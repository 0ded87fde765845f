package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hotel-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-hotel-reservation/internal/domain/room"
	redisinfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
)

type RoomService struct {
	roomRepo room.Repository
	cache    redisinfra.AvailabilityCacheInterface
}

func NewRoomService(roomRepo room.Repository, cache redisinfra.AvailabilityCacheInterface) *RoomService {
	return &RoomService{roomRepo: roomRepo, cache: cache}
}

type CreateRoomInput struct {
	HotelID       string
	RoomNumber    string
	PricePerNight int64
	Capacity      int
}

// CreateRoom は客室を登録する（管理者のみ）
func (s *RoomService) CreateRoom(ctx context.Context, input CreateRoomInput, actor reservation.Actor) (*room.Room, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	r := room.NewRoom(input.HotelID, input.RoomNumber, input.PricePerNight, input.Capacity)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.roomRepo.Create(ctx, r); err != nil {
		return nil, err
	}
	logger.Info("客室を登録しました", zap.String("room_id", r.ID), zap.String("hotel_id", r.HotelID))
	return r, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (*room.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

func (s *RoomService) ListRoomsByHotel(ctx context.Context, hotelID string) ([]*room.Room, error) {
	if hotelID == "" {
		return nil, room.ErrHotelIDRequired
	}
	return s.roomRepo.ListByHotel(ctx, hotelID)
}

// SetRoomAvailability は販売状態を切り替える（管理者のみ）
// 既存の予約には影響しない
func (s *RoomService) SetRoomAvailability(ctx context.Context, id string, available bool, actor reservation.Actor) (*room.Room, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	r, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.SetAvailability(available)
	if err := s.roomRepo.UpdateAvailability(ctx, r); err != nil {
		return nil, err
	}
	invalidateAvailability(ctx, s.cache, r.ID)
	logger.Info("客室の販売状態を変更しました", zap.String("room_id", r.ID), zap.Bool("available", available))
	return r, nil
}
