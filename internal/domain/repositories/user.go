package repositories

import (
	"context"

	"auction-engine/internal/domain"
)

// UserDirectory is a read-only view over the identity collaborator.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
