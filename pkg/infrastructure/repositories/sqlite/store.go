// Package sqlite persists stock units and blood requests in a SQLite
// database via sqlx. It implements both domain repository interfaces so a
// server can run against a single file on disk.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/services/triage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS stock_units (
	id             TEXT PRIMARY KEY,
	component_type TEXT NOT NULL,
	blood_type     TEXT NOT NULL,
	volume         TEXT NOT NULL,
	expiry_date    TEXT NOT NULL,
	status         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_units_type_pair
	ON stock_units (blood_type, component_type, status);

CREATE TABLE IF NOT EXISTS blood_requests (
	id         TEXT PRIMARY KEY,
	blood_type TEXT NOT NULL,
	urgency    TEXT NOT NULL,
	needed_by  TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS request_components (
	request_id     TEXT NOT NULL REFERENCES blood_requests(id),
	position       INTEGER NOT NULL,
	component_type TEXT NOT NULL,
	volume         TEXT NOT NULL,
	PRIMARY KEY (request_id, position)
);
`

// Store provides SQLite-backed stock and request storage
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Verify interface compliance
var (
	_ repositories.StockRepository   = (*Store)(nil)
	_ repositories.RequestRepository = (*Store)(nil)
)

type stockUnitRow struct {
	ID            string `db:"id"`
	ComponentType string `db:"component_type"`
	BloodType     string `db:"blood_type"`
	Volume        string `db:"volume"`
	ExpiryDate    string `db:"expiry_date"`
	Status        string `db:"status"`
}

func (r stockUnitRow) toEntity() (entities.BloodStockUnit, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return entities.BloodStockUnit{}, fmt.Errorf("invalid unit id %q: %w", r.ID, err)
	}
	componentType, err := entities.ParseComponentType(r.ComponentType)
	if err != nil {
		return entities.BloodStockUnit{}, err
	}
	bloodType, err := entities.ParseBloodType(r.BloodType)
	if err != nil {
		return entities.BloodStockUnit{}, err
	}
	volume, err := decimal.NewFromString(r.Volume)
	if err != nil {
		return entities.BloodStockUnit{}, fmt.Errorf("invalid volume %q: %w", r.Volume, err)
	}
	expiry, err := time.Parse(time.RFC3339, r.ExpiryDate)
	if err != nil {
		return entities.BloodStockUnit{}, fmt.Errorf("invalid expiry date %q: %w", r.ExpiryDate, err)
	}
	status, err := entities.ParseUnitStatus(r.Status)
	if err != nil {
		return entities.BloodStockUnit{}, err
	}

	return entities.BloodStockUnit{
		ID:            id,
		ComponentType: componentType,
		BloodType:     bloodType,
		Volume:        volume,
		ExpiryDate:    expiry,
		Status:        status,
	}, nil
}

// SaveUnit stores a new stock unit
func (s *Store) SaveUnit(ctx context.Context, unit *entities.BloodStockUnit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_units (id, component_type, blood_type, volume, expiry_date, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		unit.ID.String(), unit.ComponentType.String(), unit.BloodType.String(),
		unit.Volume.String(), unit.ExpiryDate.UTC().Format(time.RFC3339), unit.Status.String())
	if err != nil {
		return fmt.Errorf("failed to save stock unit %s: %w", unit.ID, err)
	}
	return nil
}

// LoadUnits bulk-loads stock units in a single transaction
func (s *Store) LoadUnits(ctx context.Context, units []*entities.BloodStockUnit) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, unit := range units {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_units (id, component_type, blood_type, volume, expiry_date, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			unit.ID.String(), unit.ComponentType.String(), unit.BloodType.String(),
			unit.Volume.String(), unit.ExpiryDate.UTC().Format(time.RFC3339), unit.Status.String())
		if err != nil {
			return fmt.Errorf("failed to load stock unit %s: %w", unit.ID, err)
		}
	}

	return tx.Commit()
}

// GetUnit returns a single unit by ID
func (s *Store) GetUnit(ctx context.Context, id uuid.UUID) (*entities.BloodStockUnit, error) {
	var row stockUnitRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM stock_units WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock unit %s: %w", id, err)
	}

	unit, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetCatalog returns available units of the given blood type, across all
// component types, ordered by expiry date
func (s *Store) GetCatalog(ctx context.Context, bloodType entities.BloodType) ([]entities.BloodStockUnit, error) {
	return s.queryUnits(ctx, `
		SELECT * FROM stock_units
		WHERE blood_type = ? AND status = ?
		ORDER BY expiry_date, id`,
		bloodType.String(), entities.Available.String())
}

// GetAvailableUnits returns available units matching both type filters,
// ordered by expiry date
func (s *Store) GetAvailableUnits(ctx context.Context, bloodType entities.BloodType, componentType entities.ComponentType) ([]entities.BloodStockUnit, error) {
	return s.queryUnits(ctx, `
		SELECT * FROM stock_units
		WHERE blood_type = ? AND component_type = ? AND status = ?
		ORDER BY expiry_date, id`,
		bloodType.String(), componentType.String(), entities.Available.String())
}

// AllUnits returns every unit regardless of status
func (s *Store) AllUnits(ctx context.Context) ([]entities.BloodStockUnit, error) {
	return s.queryUnits(ctx, `SELECT * FROM stock_units ORDER BY expiry_date, id`)
}

func (s *Store) queryUnits(ctx context.Context, query string, args ...any) ([]entities.BloodStockUnit, error) {
	var rows []stockUnitRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query stock units: %w", err)
	}

	units := make([]entities.BloodStockUnit, 0, len(rows))
	for _, row := range rows {
		unit, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// CommitAllocation applies an allocation plan transactionally: fully drawn
// units become Reserved, partially drawn units have their volume reduced
func (s *Store) CommitAllocation(ctx context.Context, result *entities.AllocationResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, line := range result.Lines {
		for _, draw := range line.Draws {
			var row stockUnitRow
			err := tx.GetContext(ctx, &row, `SELECT * FROM stock_units WHERE id = ?`, draw.UnitID.String())
			if errors.Is(err, sql.ErrNoRows) {
				return repositories.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get stock unit %s: %w", draw.UnitID, err)
			}

			volume, err := decimal.NewFromString(row.Volume)
			if err != nil {
				return fmt.Errorf("invalid stored volume %q for unit %s: %w", row.Volume, draw.UnitID, err)
			}

			remaining := volume.Sub(draw.Volume)
			status := row.Status
			if remaining.Sign() <= 0 {
				remaining = decimal.Zero
				status = entities.Reserved.String()
			}

			_, err = tx.ExecContext(ctx, `UPDATE stock_units SET volume = ?, status = ? WHERE id = ?`,
				remaining.String(), status, draw.UnitID.String())
			if err != nil {
				return fmt.Errorf("failed to update stock unit %s: %w", draw.UnitID, err)
			}
		}
	}

	return tx.Commit()
}

// ExpireUnits marks available units expired as of asOf as Discarded and
// returns how many were discarded
func (s *Store) ExpireUnits(ctx context.Context, asOf time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_units SET status = ?
		WHERE status = ? AND expiry_date <= ?`,
		entities.Discarded.String(), entities.Available.String(),
		asOf.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to expire stock units: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired units: %w", err)
	}
	return int(count), nil
}

type requestRow struct {
	ID        string `db:"id"`
	BloodType string `db:"blood_type"`
	Urgency   string `db:"urgency"`
	NeededBy  string `db:"needed_by"`
	CreatedAt string `db:"created_at"`
}

type componentRow struct {
	RequestID     string `db:"request_id"`
	Position      int    `db:"position"`
	ComponentType string `db:"component_type"`
	Volume        string `db:"volume"`
}

// SaveRequest stores a new request and its components transactionally
func (s *Store) SaveRequest(ctx context.Context, request *entities.BloodRequest) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blood_requests (id, blood_type, urgency, needed_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		request.ID.String(), request.BloodType.String(), request.Urgency.String(),
		request.NeededBy.UTC().Format(time.RFC3339), request.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save request %s: %w", request.ID, err)
	}

	for i, component := range request.Components {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO request_components (request_id, position, component_type, volume)
			VALUES (?, ?, ?, ?)`,
			request.ID.String(), i, component.ComponentType.String(), component.Volume.String())
		if err != nil {
			return fmt.Errorf("failed to save component %d of request %s: %w", i, request.ID, err)
		}
	}

	return tx.Commit()
}

// GetRequest returns a request by ID, or ErrNotFound
func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*entities.BloodRequest, error) {
	var row requestRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM blood_requests WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", id, err)
	}

	request, err := s.buildRequest(ctx, row)
	if err != nil {
		return nil, err
	}
	return request, nil
}

// AllRequests returns every stored request
func (s *Store) AllRequests(ctx context.Context) ([]entities.BloodRequest, error) {
	var rows []requestRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM blood_requests ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}

	requests := make([]entities.BloodRequest, 0, len(rows))
	for _, row := range rows {
		request, err := s.buildRequest(ctx, row)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, nil
}

// PendingRequests returns requests in triage order: highest urgency first,
// earliest needed-by date within an urgency level
func (s *Store) PendingRequests(ctx context.Context) ([]entities.BloodRequest, error) {
	requests, err := s.AllRequests(ctx)
	if err != nil {
		return nil, err
	}
	return triage.Order(requests), nil
}

func (s *Store) buildRequest(ctx context.Context, row requestRow) (*entities.BloodRequest, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid request id %q: %w", row.ID, err)
	}
	bloodType, err := entities.ParseBloodType(row.BloodType)
	if err != nil {
		return nil, err
	}
	urgency, err := entities.ParseUrgencyLevel(row.Urgency)
	if err != nil {
		return nil, err
	}
	neededBy, err := time.Parse(time.RFC3339, row.NeededBy)
	if err != nil {
		return nil, fmt.Errorf("invalid needed_by %q: %w", row.NeededBy, err)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", row.CreatedAt, err)
	}

	var componentRows []componentRow
	err = s.db.SelectContext(ctx, &componentRows, `
		SELECT * FROM request_components WHERE request_id = ? ORDER BY position`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query components of request %s: %w", row.ID, err)
	}

	components := make([]entities.ComponentRequirement, 0, len(componentRows))
	for _, cr := range componentRows {
		componentType, err := entities.ParseComponentType(cr.ComponentType)
		if err != nil {
			return nil, err
		}
		volume, err := decimal.NewFromString(cr.Volume)
		if err != nil {
			return nil, fmt.Errorf("invalid component volume %q: %w", cr.Volume, err)
		}
		components = append(components, entities.ComponentRequirement{
			ComponentType: componentType,
			Volume:        volume,
		})
	}

	return &entities.BloodRequest{
		ID:         id,
		BloodType:  bloodType,
		Urgency:    urgency,
		NeededBy:   neededBy,
		Components: components,
		CreatedAt:  createdAt,
	}, nil
}
