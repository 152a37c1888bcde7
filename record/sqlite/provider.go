// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/record"
)

// Provider reads entity records from a local SQLite extract of the landmarks
// dataset. It expects the schema created by EnsureSchema.
type Provider struct {
	db *sql.DB
}

// NewProvider opens the SQLite database at path and verifies the schema.
func NewProvider(path string) (*Provider, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	p := &Provider{db: db}
	if err := p.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return p, nil
}

var (
	_ record.EntityRecordProvider = (*Provider)(nil)
	_ record.SourceTextProvider   = (*Provider)(nil)
	_ record.BuildingProvider     = (*Provider)(nil)
)

// EnsureSchema creates the landmarks and buildings tables if missing.
func (p *Provider) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS landmarks (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL DEFAULT '',
			borough         TEXT NOT NULL DEFAULT '',
			object_type     TEXT NOT NULL DEFAULT '',
			style           TEXT,
			architect       TEXT,
			neighborhood    TEXT,
			designated_date TEXT,
			report_text     TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS buildings (
			landmark_id TEXT NOT NULL REFERENCES landmarks(id),
			name        TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			bbl         TEXT NOT NULL DEFAULT '',
			bin         TEXT NOT NULL DEFAULT '',
			block       TEXT NOT NULL DEFAULT '',
			lot         TEXT NOT NULL DEFAULT '',
			latitude    REAL NOT NULL DEFAULT 0,
			longitude   REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_buildings_landmark ON buildings(landmark_id);
	`)
	return err
}

// GetRecord returns the landmark row plus its buildings.
func (p *Provider) GetRecord(ctx context.Context, entityID string) (*core.LandmarkRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, borough, object_type, style, architect, neighborhood, designated_date
		FROM landmarks WHERE id = ?
	`, entityID)

	rec := &core.LandmarkRecord{}
	var style, architect, neighborhood, designatedDate sql.NullString
	err := row.Scan(&rec.ID, &rec.Name, &rec.Borough, &rec.ObjectType,
		&style, &architect, &neighborhood, &designatedDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("landmark %q: %w", entityID, record.ErrRecordNotFound)
		}
		return nil, err
	}

	rec.Style = nullableString(style)
	rec.Architect = nullableString(architect)
	rec.Neighborhood = nullableString(neighborhood)
	rec.DesignatedDate = nullableString(designatedDate)

	buildings, err := p.GetBuildings(ctx, entityID)
	if err != nil {
		return nil, err
	}
	rec.Buildings = buildings
	return rec, nil
}

// GetText returns the stored report text. An entity without a row, or with
// an empty report, yields "" without error.
func (p *Provider) GetText(ctx context.Context, entityID string) (string, error) {
	var text string
	err := p.db.QueryRowContext(ctx,
		`SELECT report_text FROM landmarks WHERE id = ?`, entityID).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// GetBuildings returns the buildings for a landmark, in insertion order.
func (p *Provider) GetBuildings(ctx context.Context, entityID string) ([]core.BuildingRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, address, bbl, bin, block, lot, latitude, longitude
		FROM buildings WHERE landmark_id = ? ORDER BY rowid
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buildings []core.BuildingRecord
	for rows.Next() {
		var b core.BuildingRecord
		if err := rows.Scan(&b.Name, &b.Address, &b.BBL, &b.BIN,
			&b.Block, &b.Lot, &b.Latitude, &b.Longitude); err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

// InsertLandmark inserts or replaces a landmark row and its buildings.
// Intended for loaders and tests.
func (p *Provider) InsertLandmark(ctx context.Context, rec *core.LandmarkRecord, reportText string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO landmarks
			(id, name, borough, object_type, style, architect, neighborhood, designated_date, report_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Borough, rec.ObjectType,
		rec.Style, rec.Architect, rec.Neighborhood, rec.DesignatedDate, reportText)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM buildings WHERE landmark_id = ?`, rec.ID); err != nil {
		return err
	}
	for _, b := range rec.Buildings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buildings (landmark_id, name, address, bbl, bin, block, lot, latitude, longitude)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, b.Name, b.Address, b.BBL, b.BIN, b.Block, b.Lot, b.Latitude, b.Longitude)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListIDs returns every landmark ID, for batch ingestion runs.
func (p *Provider) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id FROM landmarks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (p *Provider) Close() error {
	return p.db.Close()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
