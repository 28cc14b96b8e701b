package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/listings-api/feed"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS properties (
            external_id   TEXT PRIMARY KEY,
            title         TEXT NOT NULL DEFAULT '',
            region        TEXT NOT NULL DEFAULT '',
            price         NUMERIC NOT NULL DEFAULT 0,
            town          TEXT NOT NULL DEFAULT '',
            property_type TEXT NOT NULL DEFAULT '',
            beds          TEXT NOT NULL DEFAULT '0',
            reference     TEXT NOT NULL DEFAULT '',
            images        JSONB NOT NULL DEFAULT '[]',
            details       JSONB NOT NULL DEFAULT '{}',
            updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_region ON properties(region);`,
		`CREATE TABLE IF NOT EXISTS projects (
            id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name       TEXT NOT NULL,
            phase      SMALLINT NOT NULL DEFAULT 1,
            cashback   NUMERIC NOT NULL DEFAULT 0,
            pin        TEXT NOT NULL,
            updates    JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_projects_pin ON projects(pin);`,
		`CREATE TABLE IF NOT EXISTS agency_settings (
            id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            slug       TEXT NOT NULL,
            settings   JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_agency_settings_slug ON agency_settings(slug);`,
		`CREATE TABLE IF NOT EXISTS clients (
            id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email         TEXT NOT NULL,
            pin           TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            project_id    UUID REFERENCES projects(id) ON DELETE SET NULL,
            created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_clients_email ON clients(email);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// UpsertProperties writes a batch of normalized records, fully replacing
// any existing row with the same external id. Rows not in the batch are
// left untouched; the sync never deletes. The batch is not atomic: a
// failed row does not abort the rest, and the count of rows actually
// written is returned alongside any joined row errors.
func (s *Store) UpsertProperties(ctx context.Context, records []feed.Property) (int, error) {
	const q = `
        INSERT INTO properties (external_id, title, region, price, town, property_type, beds, reference, images, details, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (external_id) DO UPDATE SET
            title = EXCLUDED.title,
            region = EXCLUDED.region,
            price = EXCLUDED.price,
            town = EXCLUDED.town,
            property_type = EXCLUDED.property_type,
            beds = EXCLUDED.beds,
            reference = EXCLUDED.reference,
            images = EXCLUDED.images,
            details = EXCLUDED.details,
            updated_at = EXCLUDED.updated_at`

	written := 0
	var errs error
	for _, p := range records {
		images, err := json.Marshal(p.Images)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("property %s: marshal images: %w", p.ExternalID, err))
			continue
		}
		details, err := json.Marshal(p.Details)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("property %s: marshal details: %w", p.ExternalID, err))
			continue
		}
		_, err = s.DB.ExecContext(ctx, q,
			p.ExternalID, p.Title, p.Region, p.Price, p.Town, p.PropertyType,
			p.Beds, p.Reference, images, details, p.UpdatedAt,
		)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("property %s: %w", p.ExternalID, err))
			continue
		}
		written++
	}
	return written, errs
}

// ListProperties returns the complete current record set, price ascending.
func (s *Store) ListProperties(ctx context.Context) ([]feed.Property, error) {
	const q = `
        SELECT external_id, title, region, price, town, property_type, beds, reference, images, details, updated_at
        FROM properties
        ORDER BY price ASC, external_id ASC`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []feed.Property{}
	for rows.Next() {
		var p feed.Property
		var images, details []byte
		if err := rows.Scan(
			&p.ExternalID, &p.Title, &p.Region, &p.Price, &p.Town, &p.PropertyType,
			&p.Beds, &p.Reference, &images, &details, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(images, &p.Images); err != nil {
			p.Images = []string{}
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		_ = json.Unmarshal(details, &p.Details)
		out = append(out, p)
	}
	return out, rows.Err()
}

// AgencySettings is one tenant's configuration row, keyed by subdomain slug.
type AgencySettings struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Settings  json.RawMessage `json:"settings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s *Store) AgencySettingsBySlug(ctx context.Context, slug string) (AgencySettings, error) {
	const q = `SELECT id, slug, settings, created_at, updated_at FROM agency_settings WHERE slug = $1`

	var out AgencySettings
	err := s.DB.QueryRowContext(ctx, q, slug).Scan(&out.ID, &out.Slug, &out.Settings, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return out, ErrNotFound
	}
	return out, err
}

// UpsertAgencySettings creates or replaces a tenant's settings document.
func (s *Store) UpsertAgencySettings(ctx context.Context, slug string, settings json.RawMessage) (AgencySettings, error) {
	const q = `
        INSERT INTO agency_settings (slug, settings)
        VALUES ($1, $2)
        ON CONFLICT (slug) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()
        RETURNING id, slug, settings, created_at, updated_at`

	var out AgencySettings
	err := s.DB.QueryRowContext(ctx, q, slug, []byte(settings)).Scan(&out.ID, &out.Slug, &out.Settings, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

// ProjectUpdate is one entry of a project's append-only history.
type ProjectUpdate struct {
	PhotoURL string    `json:"photoUrl"`
	Note     string    `json:"note"`
	At       time.Time `json:"at"`
}

// Project is a client renovation tracked on a fixed 1..12 phase scale.
type Project struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Phase     int             `json:"phase"`
	Cashback  float64         `json:"cashback"`
	PIN       string          `json:"pin"`
	Updates   []ProjectUpdate `json:"updates"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

const projectCols = `id, name, phase, cashback, pin, updates, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (Project, error) {
	var p Project
	var updates []byte
	err := row.Scan(&p.ID, &p.Name, &p.Phase, &p.Cashback, &p.PIN, &updates, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(updates, &p.Updates); err != nil || p.Updates == nil {
		p.Updates = []ProjectUpdate{}
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, name string, cashback float64, pin string) (Project, error) {
	q := `INSERT INTO projects (name, cashback, pin) VALUES ($1, $2, $3) RETURNING ` + projectCols
	return scanProject(s.DB.QueryRowContext(ctx, q, name, cashback, pin))
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	q := `SELECT ` + projectCols + ` FROM projects ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (Project, error) {
	q := `SELECT ` + projectCols + ` FROM projects WHERE id = $1`
	p, err := scanProject(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *Store) GetProjectByPIN(ctx context.Context, pin string) (Project, error) {
	q := `SELECT ` + projectCols + ` FROM projects WHERE pin = $1`
	p, err := scanProject(s.DB.QueryRowContext(ctx, q, pin))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// UpdateProjectPhase moves a project to the given construction phase.
// Range validation happens at the handler boundary.
func (s *Store) UpdateProjectPhase(ctx context.Context, id string, phase int) error {
	const q = `UPDATE projects SET phase = $2, updated_at = now() WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q, id, phase)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendProjectUpdate appends one entry to the project's history. The
// history is append-only; entries are never rewritten or removed.
func (s *Store) AppendProjectUpdate(ctx context.Context, id string, upd ProjectUpdate) error {
	entry, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	const q = `UPDATE projects SET updates = updates || $2::jsonb, updated_at = now() WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q, id, entry)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateClient stores a provisioned portal account. The plaintext temp
// password never touches the database.
func (s *Store) CreateClient(ctx context.Context, email, pin, passwordHash string, projectID *string) (string, error) {
	const q = `
        INSERT INTO clients (email, pin, password_hash, project_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id`

	var pid sql.NullString
	if projectID != nil && *projectID != "" {
		pid = sql.NullString{String: *projectID, Valid: true}
	}
	var id string
	err := s.DB.QueryRowContext(ctx, q, email, pin, passwordHash, pid).Scan(&id)
	return id, err
}
