// Package httpapi exposes the stock reconciliation workflow over a JSON
// HTTP API. This is the surface the front-end application calls: request
// listing and intake, per-request reconciliation checklists, allocation
// planning and commit, and stock management.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/application/services"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Server handles HTTP requests for the bloodstock API
type Server struct {
	stock    repositories.StockRepository
	requests repositories.RequestRepository
	recon    *services.ReconciliationService
	alloc    *services.AllocationService
	expiry   *services.ExpiryService
	log      events.Log
	logger   *zap.Logger
	mux      *http.ServeMux

	// now is swapped out in tests
	now func() time.Time
}

// New creates a Server wired to the given repositories. log may be nil.
func New(stock repositories.StockRepository, requests repositories.RequestRepository, log events.Log, logger *zap.Logger) *Server {
	s := &Server{
		stock:    stock,
		requests: requests,
		recon:    services.NewReconciliationService(),
		alloc:    services.NewAllocationService(log),
		expiry:   services.NewExpiryService(log),
		log:      log,
		logger:   logger,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/requests", s.handleListRequests)
	s.mux.HandleFunc("POST /api/requests", s.handleCreateRequest)
	s.mux.HandleFunc("GET /api/requests/{id}/reconciliation", s.handleReconciliation)
	s.mux.HandleFunc("POST /api/requests/{id}/allocation", s.handlePlanAllocation)
	s.mux.HandleFunc("POST /api/requests/{id}/allocation/commit", s.handleCommitAllocation)

	s.mux.HandleFunc("GET /api/stock", s.handleListStock)
	s.mux.HandleFunc("POST /api/stock", s.handleReceiveStock)
	s.mux.HandleFunc("POST /api/stock/expire", s.handleExpireStock)
}

// ServeHTTP dispatches to the API routes with request logging
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	if s.logger != nil {
		s.logger.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.requests.PendingRequests(r.Context())
	if err != nil {
		s.serverError(w, "failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": pending})
}

type createRequestPayload struct {
	BloodType  entities.BloodType              `json:"blood_type"`
	Urgency    entities.UrgencyLevel           `json:"urgency"`
	NeededBy   time.Time                       `json:"needed_by"`
	Components []entities.ComponentRequirement `json:"components"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	request, err := entities.NewBloodRequest(payload.BloodType, payload.Urgency, payload.NeededBy, payload.Components)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.requests.SaveRequest(r.Context(), request); err != nil {
		s.serverError(w, "failed to save request", err)
		return
	}

	if s.log != nil {
		s.log.Append(events.Event{
			Type:     events.RequestCreated,
			StreamID: request.ID.String(),
			At:       s.now(),
			Data:     events.RequestCreatedData{Request: *request},
		})
	}

	writeJSON(w, http.StatusCreated, request)
}

type reconciliationPayload struct {
	RequestID uuid.UUID                     `json:"request_id"`
	BloodType entities.BloodType            `json:"blood_type"`
	Report    entities.ReconciliationReport `json:"report"`
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	request, report, err := s.recon.ReconcileRequest(r.Context(), id, s.requests, s.stock)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.serverError(w, "failed to reconcile request", err)
		return
	}

	writeJSON(w, http.StatusOK, reconciliationPayload{
		RequestID: request.ID,
		BloodType: request.BloodType,
		Report:    *report,
	})
}

func (s *Server) handlePlanAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	result, err := s.alloc.PlanForRequest(r.Context(), id, s.now(), s.requests, s.stock)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.serverError(w, "failed to plan allocation", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommitAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	result, err := s.alloc.Commit(r.Context(), id, s.now(), s.requests, s.stock)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		writeError(w, http.StatusNotFound, "request not found")
	case errors.Is(err, services.ErrUnfulfillable):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      services.ErrUnfulfillable.Error(),
			"allocation": result,
		})
	case err != nil:
		s.serverError(w, "failed to commit allocation", err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleListStock(w http.ResponseWriter, r *http.Request) {
	var (
		units []entities.BloodStockUnit
		err   error
	)

	bloodTypeParam := r.URL.Query().Get("blood_type")
	componentParam := r.URL.Query().Get("component_type")

	switch {
	case bloodTypeParam != "" && componentParam != "":
		var bt entities.BloodType
		var ct entities.ComponentType
		if bt, err = entities.ParseBloodType(bloodTypeParam); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ct, err = entities.ParseComponentType(componentParam); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		units, err = s.stock.GetAvailableUnits(r.Context(), bt, ct)
	case bloodTypeParam != "":
		var bt entities.BloodType
		if bt, err = entities.ParseBloodType(bloodTypeParam); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		units, err = s.stock.GetCatalog(r.Context(), bt)
	case componentParam != "":
		writeError(w, http.StatusBadRequest, "component_type filter requires blood_type")
		return
	default:
		units, err = s.stock.AllUnits(r.Context())
	}

	if err != nil {
		s.serverError(w, "failed to list stock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units})
}

type receiveStockPayload struct {
	ComponentType entities.ComponentType `json:"component_type"`
	BloodType     entities.BloodType     `json:"blood_type"`
	Volume        decimal.Decimal        `json:"volume"`
	ExpiryDate    time.Time              `json:"expiry_date"`
}

func (s *Server) handleReceiveStock(w http.ResponseWriter, r *http.Request) {
	var payload receiveStockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	unit, err := entities.NewBloodStockUnit(payload.ComponentType, payload.BloodType, payload.Volume, payload.ExpiryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stock.SaveUnit(r.Context(), unit); err != nil {
		s.serverError(w, "failed to save stock unit", err)
		return
	}

	if s.log != nil {
		s.log.Append(events.Event{
			Type:     events.StockReceived,
			StreamID: unit.ID.String(),
			At:       s.now(),
			Data:     events.StockReceivedData{Unit: *unit},
		})
	}

	writeJSON(w, http.StatusCreated, unit)
}

type expireStockPayload struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

func (s *Server) handleExpireStock(w http.ResponseWriter, r *http.Request) {
	var payload expireStockPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	asOf := s.now()
	if payload.AsOf != nil {
		asOf = *payload.AsOf
	}

	count, err := s.expiry.DiscardExpired(r.Context(), asOf, s.stock)
	if err != nil {
		s.serverError(w, "failed to expire stock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"discarded": count})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
