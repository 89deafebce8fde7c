package memory

import (
	"context"
	"sync"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/services/triage"
	"github.com/google/uuid"
)

// RequestRepository provides in-memory blood request storage
type RequestRepository struct {
	mutex    sync.RWMutex
	requests []entities.BloodRequest
}

// NewRequestRepository creates a new in-memory request repository
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{}
}

// Verify interface compliance
var _ repositories.RequestRepository = (*RequestRepository)(nil)

// SaveRequest stores a new request
func (r *RequestRepository) SaveRequest(ctx context.Context, request *entities.BloodRequest) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.requests = append(r.requests, *request)
	return nil
}

// GetRequest returns a request by ID, or ErrNotFound
func (r *RequestRepository) GetRequest(ctx context.Context, id uuid.UUID) (*entities.BloodRequest, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for i := range r.requests {
		if r.requests[i].ID == id {
			request := r.requests[i]
			return &request, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// AllRequests returns every stored request
func (r *RequestRepository) AllRequests(ctx context.Context) ([]entities.BloodRequest, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	requests := make([]entities.BloodRequest, len(r.requests))
	copy(requests, r.requests)
	return requests, nil
}

// PendingRequests returns requests in triage order: highest urgency first,
// earliest needed-by date within an urgency level
func (r *RequestRepository) PendingRequests(ctx context.Context) ([]entities.BloodRequest, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return triage.Order(r.requests), nil
}
