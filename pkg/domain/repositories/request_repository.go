package repositories

import (
	"context"
	"errors"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a request or stock unit does not exist
var ErrNotFound = errors.New("not found")

// RequestRepository provides access to blood requests
type RequestRepository interface {
	// GetRequest returns a request by ID, or ErrNotFound
	GetRequest(ctx context.Context, id uuid.UUID) (*entities.BloodRequest, error)

	// SaveRequest stores a new request
	SaveRequest(ctx context.Context, request *entities.BloodRequest) error

	// AllRequests returns every stored request
	AllRequests(ctx context.Context) ([]entities.BloodRequest, error)

	// PendingRequests returns requests in triage order: highest urgency
	// first, earliest needed-by date within an urgency level
	PendingRequests(ctx context.Context) ([]entities.BloodRequest, error)
}
