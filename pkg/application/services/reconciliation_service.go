package services

import (
	"context"
	"fmt"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/services/reconciler"
	"github.com/google/uuid"
)

// ReconciliationService fetches a request and its stock catalog and runs the
// pure reconciler over them. The repositories are passed per call so the
// service itself holds no state.
type ReconciliationService struct{}

// NewReconciliationService creates a reconciliation service
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// ReconcileRequest loads the request by ID, loads all available stock of the
// request's blood type, and returns the reconciliation report alongside the
// request itself
func (s *ReconciliationService) ReconcileRequest(
	ctx context.Context,
	requestID uuid.UUID,
	requestRepo repositories.RequestRepository,
	stockRepo repositories.StockRepository,
) (*entities.BloodRequest, *entities.ReconciliationReport, error) {
	request, err := requestRepo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get request %s: %w", requestID, err)
	}

	catalog, err := stockRepo.GetCatalog(ctx, request.BloodType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get stock catalog for %s: %w", request.BloodType, err)
	}

	report := reconciler.Reconcile(*request, catalog)
	return request, &report, nil
}
