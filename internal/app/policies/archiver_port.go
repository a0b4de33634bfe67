package policies

import (
	"context"

	"monteur/internal/app/dto"
)

// Archiver keeps an audit copy of reservations before they are purged.
type Archiver interface {
	Archive(ctx context.Context, snapshot dto.ReservationSnapshot) error
}
