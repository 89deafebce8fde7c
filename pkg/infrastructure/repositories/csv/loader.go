package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Loader handles loading stock and request data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadStockUnits loads stock units from a CSV file with the header
// component_type,blood_type,volume,expiry_date,status
func (l *Loader) LoadStockUnits(filename string) ([]*entities.BloodStockUnit, error) {
	records, err := readAll(filename, "stock")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"component_type", "blood_type", "volume", "expiry_date", "status"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("stock CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var units []*entities.BloodStockUnit
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("stock CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		unit, err := parseStockUnit(record)
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}

		units = append(units, unit)
	}

	return units, nil
}

// LoadRequests loads blood requests from a CSV file with the header
// request_id,blood_type,urgency,needed_by,component_type,volume.
// One row per component requirement; rows sharing a request_id are grouped
// into a single request, in first-seen order.
func (l *Loader) LoadRequests(filename string) ([]*entities.BloodRequest, error) {
	records, err := readAll(filename, "requests")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"request_id", "blood_type", "urgency", "needed_by", "component_type", "volume"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("requests CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	byID := make(map[uuid.UUID]*entities.BloodRequest)
	var order []uuid.UUID

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("requests CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		id, err := uuid.Parse(record[0])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: invalid request_id: %w", i+2, err)
		}
		bloodType, err := entities.ParseBloodType(record[1])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: %w", i+2, err)
		}
		urgency, err := entities.ParseUrgencyLevel(record[2])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: %w", i+2, err)
		}
		neededBy, err := time.Parse(dateLayout, record[3])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: invalid needed_by date: %w", i+2, err)
		}
		componentType, err := entities.ParseComponentType(record[4])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: %w", i+2, err)
		}
		volume, err := decimal.NewFromString(record[5])
		if err != nil {
			return nil, fmt.Errorf("requests CSV row %d: invalid volume: %w", i+2, err)
		}

		requirement := entities.ComponentRequirement{ComponentType: componentType, Volume: volume}

		if existing, ok := byID[id]; ok {
			if existing.BloodType != bloodType {
				return nil, fmt.Errorf("requests CSV row %d: blood type %s conflicts with earlier rows for request %s",
					i+2, bloodType, id)
			}
			existing.Components = append(existing.Components, requirement)
			continue
		}

		byID[id] = &entities.BloodRequest{
			ID:         id,
			BloodType:  bloodType,
			Urgency:    urgency,
			NeededBy:   neededBy,
			Components: []entities.ComponentRequirement{requirement},
			CreatedAt:  time.Now().UTC(),
		}
		order = append(order, id)
	}

	requests := make([]*entities.BloodRequest, 0, len(order))
	for _, id := range order {
		requests = append(requests, byID[id])
	}
	return requests, nil
}

func parseStockUnit(record []string) (*entities.BloodStockUnit, error) {
	componentType, err := entities.ParseComponentType(record[0])
	if err != nil {
		return nil, err
	}
	bloodType, err := entities.ParseBloodType(record[1])
	if err != nil {
		return nil, err
	}
	volume, err := decimal.NewFromString(record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid volume: %w", err)
	}
	expiry, err := time.Parse(dateLayout, record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid expiry_date: %w", err)
	}

	unit, err := entities.NewBloodStockUnit(componentType, bloodType, volume, expiry)
	if err != nil {
		return nil, err
	}

	if record[4] != "" {
		status, err := entities.ParseUnitStatus(record[4])
		if err != nil {
			return nil, err
		}
		unit.Status = status
	}

	return unit, nil
}

func readAll(filename, kind string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	return records, nil
}

func validateHeader(header, expected []string) bool {
	if len(header) != len(expected) {
		return false
	}
	for i, col := range expected {
		if header[i] != col {
			return false
		}
	}
	return true
}
