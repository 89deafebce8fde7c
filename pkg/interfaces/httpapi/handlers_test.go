package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	server   *Server
	stock    *memory.StockRepository
	requests *memory.RequestRepository
	log      *events.MemoryLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stock:    memory.NewStockRepository(),
		requests: memory.NewRequestRepository(),
		log:      events.NewMemoryLog(),
	}
	f.server = New(f.stock, f.requests, f.log, zap.NewNop())
	f.server.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) addUnit(t *testing.T, ct entities.ComponentType, bt entities.BloodType, volume string, expiry time.Time) *entities.BloodStockUnit {
	t.Helper()
	unit, err := entities.NewBloodStockUnit(ct, bt, decimal.RequireFromString(volume), expiry)
	require.NoError(t, err)
	require.NoError(t, f.stock.SaveUnit(context.Background(), unit))
	return unit
}

func (f *fixture) addRequest(t *testing.T, bt entities.BloodType, components []entities.ComponentRequirement) *entities.BloodRequest {
	t.Helper()
	request, err := entities.NewBloodRequest(bt, entities.Normal, testNow.Add(48*time.Hour), components)
	require.NoError(t, err)
	require.NoError(t, f.requests.SaveRequest(context.Background(), request))
	return request
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/requests", map[string]any{
		"blood_type": "O-",
		"urgency":    "Urgent",
		"needed_by":  testNow.Add(24 * time.Hour),
		"components": []map[string]any{
			{"component_type": "PLASMA", "volume": "250"},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created entities.BloodRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, entities.ONegative, created.BloodType)
	assert.Equal(t, entities.Urgent, created.Urgency)
	require.Len(t, created.Components, 1)
	assert.True(t, created.Components[0].Volume.Equal(decimal.NewFromInt(250)))

	stream := f.log.Stream(created.ID.String())
	require.Len(t, stream, 1)
	assert.Equal(t, events.RequestCreated, stream[0].Type)
}

func TestCreateRequestRejectsNegativeVolume(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/requests", map[string]any{
		"blood_type": "A+",
		"urgency":    "Normal",
		"needed_by":  testNow.Add(24 * time.Hour),
		"components": []map[string]any{
			{"component_type": "PLASMA", "volume": "-10"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestReconciliationEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addUnit(t, entities.Plasma, entities.APositive, "200", testNow.Add(72*time.Hour))
	f.addUnit(t, entities.Plasma, entities.APositive, "150", testNow.Add(24*time.Hour))
	request := f.addRequest(t, entities.APositive, []entities.ComponentRequirement{
		{ComponentType: entities.Plasma, Volume: decimal.NewFromInt(300)},
	})

	rec := f.do(http.MethodGet, fmt.Sprintf("/api/requests/%s/reconciliation", request.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload reconciliationPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, request.ID, payload.RequestID)
	assert.True(t, payload.Report.AllSufficient)
	require.Len(t, payload.Report.Rows, 1)
	row := payload.Report.Rows[0]
	assert.True(t, row.TotalAvailable.Equal(decimal.NewFromInt(350)))
	assert.True(t, row.Sufficient)
	require.NotNil(t, row.NearestExpiry)
	assert.True(t, row.NearestExpiry.Equal(testNow.Add(24*time.Hour)))
}

func TestReconciliationUnknownRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/requests/5bfae8f9-2f4f-4fa6-b1b1-1f2e9d3c4a5b/reconciliation", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconciliationBadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/requests/not-a-uuid/reconciliation", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanAllocation(t *testing.T) {
	f := newFixture(t)
	f.addUnit(t, entities.Plasma, entities.APositive, "200", testNow.Add(72*time.Hour))
	request := f.addRequest(t, entities.APositive, []entities.ComponentRequirement{
		{ComponentType: entities.Plasma, Volume: decimal.NewFromInt(150)},
	})

	rec := f.do(http.MethodPost, fmt.Sprintf("/api/requests/%s/allocation", request.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var result entities.AllocationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Fulfilled)

	// planning must not touch stock
	units, err := f.stock.AllUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.True(t, units[0].Volume.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, entities.Available, units[0].Status)
}

func TestCommitAllocation(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit(t, entities.Plasma, entities.APositive, "200", testNow.Add(72*time.Hour))
	request := f.addRequest(t, entities.APositive, []entities.ComponentRequirement{
		{ComponentType: entities.Plasma, Volume: decimal.NewFromInt(150)},
	})

	rec := f.do(http.MethodPost, fmt.Sprintf("/api/requests/%s/allocation/commit", request.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := f.stock.GetUnit(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.True(t, updated.Volume.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, entities.Available, updated.Status)
}

func TestCommitAllocationConflict(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit(t, entities.Plasma, entities.APositive, "100", testNow.Add(72*time.Hour))
	request := f.addRequest(t, entities.APositive, []entities.ComponentRequirement{
		{ComponentType: entities.Plasma, Volume: decimal.NewFromInt(500)},
	})

	rec := f.do(http.MethodPost, fmt.Sprintf("/api/requests/%s/allocation/commit", request.ID), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)

	// a failed commit leaves stock untouched
	updated, err := f.stock.GetUnit(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.True(t, updated.Volume.Equal(decimal.NewFromInt(100)))
}

func TestReceiveStock(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/stock", map[string]any{
		"component_type": "RED_BLOOD_CELLS",
		"blood_type":     "B+",
		"volume":         "450",
		"expiry_date":    testNow.Add(30 * 24 * time.Hour),
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	units, err := f.stock.AllUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, entities.RedBloodCells, units[0].ComponentType)

	stream := f.log.Stream(units[0].ID.String())
	require.Len(t, stream, 1)
	assert.Equal(t, events.StockReceived, stream[0].Type)
}

func TestListStockFilters(t *testing.T) {
	f := newFixture(t)
	f.addUnit(t, entities.Plasma, entities.APositive, "200", testNow.Add(72*time.Hour))
	f.addUnit(t, entities.Platelets, entities.APositive, "50", testNow.Add(72*time.Hour))
	f.addUnit(t, entities.Plasma, entities.ONegative, "300", testNow.Add(72*time.Hour))

	cases := []struct {
		name  string
		path  string
		count int
	}{
		{"all", "/api/stock", 3},
		{"by blood type", "/api/stock?blood_type=A%2B", 2},
		{"by pair", "/api/stock?blood_type=A%2B&component_type=PLASMA", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tc.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var payload struct {
				Units []entities.BloodStockUnit `json:"units"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Len(t, payload.Units, tc.count)
		})
	}
}

func TestListStockRejectsBadFilter(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/stock?blood_type=Z%2B", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/stock?component_type=PLASMA", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpireStock(t *testing.T) {
	f := newFixture(t)
	f.addUnit(t, entities.Plasma, entities.APositive, "200", testNow.Add(-time.Hour))
	f.addUnit(t, entities.Plasma, entities.APositive, "150", testNow.Add(72*time.Hour))

	rec := f.do(http.MethodPost, "/api/stock/expire", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"discarded":1}`, rec.Body.String())
}
