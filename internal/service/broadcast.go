package service

import "parking_reservation/internal/domain"

// AvailabilityBroadcaster pushes fresh lot availability to connected
// websocket clients after a mutation commits. Implementations must not
// block.
type AvailabilityBroadcaster interface {
	BroadcastLotAvailability(lots []domain.LotAvailability)
}
