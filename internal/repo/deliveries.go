package repo

import (
	"context"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

// DeliveryRepository archives per-record outcomes as bulk jobs process them.
// The archive is write-mostly: the engine only appends, readers are the
// history endpoint and offline tooling.
type DeliveryRepository interface {
	Append(ctx context.Context, d model.Delivery) error
	ListSent(ctx context.Context, limit, offset int) ([]model.Delivery, error)
}
