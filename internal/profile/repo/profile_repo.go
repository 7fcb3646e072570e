package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/database"
)

const (
	ConstraintOrganizerUser = "uq_organizer_profiles_user"
	ConstraintWorkerUser    = "uq_worker_profiles_user"
)

// ErrDuplicateProfile means the user already owns a profile of that kind.
var ErrDuplicateProfile = errors.New("profile already exists for user")

// ProfileRepo stores organizer and worker profiles. Nested documents live in
// JSONB columns; the user_id columns are unique foreign keys to users(id).
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// EnsureTable creates both profile tables. users must exist first.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS organizer_profiles (
  id VARCHAR(32) PRIMARY KEY,
  user_id VARCHAR(32) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  organization_name TEXT NOT NULL,
  organization_type TEXT NOT NULL CHECK (organization_type IN ('company','individual','ngo','educational')),
  gst_number VARCHAR(15),
  address JSONB NOT NULL DEFAULT '{}'::jsonb,
  escrow_balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (escrow_balance >= 0),
  statistics JSONB NOT NULL DEFAULT '{}'::jsonb,
  rating_average NUMERIC(3,2) NOT NULL DEFAULT 0 CHECK (rating_average BETWEEN 0 AND 5),
  rating_count INT NOT NULL DEFAULT 0 CHECK (rating_count >= 0),
  verified BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT uq_organizer_profiles_user UNIQUE (user_id)
);
CREATE TABLE IF NOT EXISTS worker_profiles (
  id VARCHAR(32) PRIMARY KEY,
  user_id VARCHAR(32) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  date_of_birth DATE NOT NULL,
  gender TEXT NOT NULL CHECK (gender IN ('male','female','other','prefer-not-to-say')),
  location JSONB NOT NULL DEFAULT '{}'::jsonb,
  skills TEXT[] NOT NULL CHECK (cardinality(skills) > 0),
  experience_level TEXT NOT NULL DEFAULT 'beginner' CHECK (experience_level IN ('beginner','intermediate','experienced')),
  bio VARCHAR(500) NOT NULL DEFAULT '',
  badges JSONB NOT NULL DEFAULT '[]'::jsonb,
  statistics JSONB NOT NULL DEFAULT '{}'::jsonb,
  ratings JSONB NOT NULL DEFAULT '{}'::jsonb,
  reliability_score INT NOT NULL DEFAULT 0 CHECK (reliability_score BETWEEN 0 AND 100),
  current_level TEXT NOT NULL DEFAULT 'beginner' CHECK (current_level IN ('beginner','volunteer','regular','professional','expert')),
  availability JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT uq_worker_profiles_user UNIQUE (user_id)
);
CREATE INDEX IF NOT EXISTS idx_worker_profiles_skills ON worker_profiles USING GIN (skills);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type organizerRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	OrganizationName string         `db:"organization_name"`
	OrganizationType string         `db:"organization_type"`
	GSTNumber        *string        `db:"gst_number"`
	Address          types.JSONText `db:"address"`
	EscrowBalance    float64        `db:"escrow_balance"`
	Statistics       types.JSONText `db:"statistics"`
	RatingAverage    float64        `db:"rating_average"`
	RatingCount      int            `db:"rating_count"`
	Verified         bool           `db:"verified"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

type workerRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	DateOfBirth      time.Time      `db:"date_of_birth"`
	Gender           string         `db:"gender"`
	Location         types.JSONText `db:"location"`
	Skills           pq.StringArray `db:"skills"`
	ExperienceLevel  string         `db:"experience_level"`
	Bio              string         `db:"bio"`
	Badges           types.JSONText `db:"badges"`
	Statistics       types.JSONText `db:"statistics"`
	Ratings          types.JSONText `db:"ratings"`
	ReliabilityScore int            `db:"reliability_score"`
	CurrentLevel     string         `db:"current_level"`
	Availability     types.JSONText `db:"availability"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func jsonText(v any) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b), nil
}

// CreateOrganizer inserts the initial organizer profile.
func (r *ProfileRepo) CreateOrganizer(ctx context.Context, p *entity.OrganizerProfile) error {
	addr, err := jsonText(p.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	stats, err := jsonText(p.Statistics)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	stampNew(&p.CreatedAt, &p.UpdatedAt)

	const q = `INSERT INTO organizer_profiles (id, user_id, organization_name, organization_type, gst_number,
		address, escrow_balance, statistics, rating_average, rating_count, verified, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.UserID, p.OrganizationName, p.OrganizationType, p.GSTNumber,
		addr, p.EscrowBalance, stats, p.Ratings.Average, p.Ratings.Total, p.Verified, p.CreatedAt, p.UpdatedAt,
	)
	return classify(err)
}

// CreateWorker inserts the initial worker profile.
func (r *ProfileRepo) CreateWorker(ctx context.Context, p *entity.WorkerProfile) error {
	docs := []any{p.Location, p.Badges, p.Statistics, p.Ratings, p.Availability}
	encoded := make([]types.JSONText, len(docs))
	for i, d := range docs {
		j, err := jsonText(d)
		if err != nil {
			return fmt.Errorf("encode worker profile: %w", err)
		}
		encoded[i] = j
	}
	stampNew(&p.CreatedAt, &p.UpdatedAt)

	const q = `INSERT INTO worker_profiles (id, user_id, date_of_birth, gender, location, skills, experience_level,
		bio, badges, statistics, ratings, reliability_score, current_level, availability, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.UserID, p.DateOfBirth, p.Gender, encoded[0], pq.StringArray(p.Skills), p.ExperienceLevel,
		p.Bio, encoded[1], encoded[2], encoded[3], p.ReliabilityScore, p.CurrentLevel, encoded[4],
		p.CreatedAt, p.UpdatedAt,
	)
	return classify(err)
}

// OrganizerByUserID returns the organizer profile owned by userID or sql.ErrNoRows.
func (r *ProfileRepo) OrganizerByUserID(ctx context.Context, userID string) (*entity.OrganizerProfile, error) {
	const q = `SELECT id, user_id, organization_name, organization_type, gst_number, address, escrow_balance,
		statistics, rating_average, rating_count, verified, created_at, updated_at
		FROM organizer_profiles WHERE user_id=$1`
	var row organizerRow
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		return nil, err
	}
	p := &entity.OrganizerProfile{
		ID:               row.ID,
		UserID:           row.UserID,
		OrganizationName: row.OrganizationName,
		OrganizationType: row.OrganizationType,
		GSTNumber:        row.GSTNumber,
		EscrowBalance:    row.EscrowBalance,
		Ratings:          entity.Rating{Average: row.RatingAverage, Total: row.RatingCount},
		Verified:         row.Verified,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if err := decode(row.Address, &p.Address); err != nil {
		return nil, err
	}
	if err := decode(row.Statistics, &p.Statistics); err != nil {
		return nil, err
	}
	return p, nil
}

// WorkerByUserID returns the worker profile owned by userID or sql.ErrNoRows.
func (r *ProfileRepo) WorkerByUserID(ctx context.Context, userID string) (*entity.WorkerProfile, error) {
	const q = `SELECT id, user_id, date_of_birth, gender, location, skills, experience_level, bio, badges,
		statistics, ratings, reliability_score, current_level, availability, created_at, updated_at
		FROM worker_profiles WHERE user_id=$1`
	var row workerRow
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		return nil, err
	}
	p := &entity.WorkerProfile{
		ID:               row.ID,
		UserID:           row.UserID,
		DateOfBirth:      row.DateOfBirth,
		Gender:           row.Gender,
		Skills:           []string(row.Skills),
		ExperienceLevel:  row.ExperienceLevel,
		Bio:              row.Bio,
		ReliabilityScore: row.ReliabilityScore,
		CurrentLevel:     row.CurrentLevel,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	targets := []struct {
		src types.JSONText
		dst any
	}{
		{row.Location, &p.Location},
		{row.Badges, &p.Badges},
		{row.Statistics, &p.Statistics},
		{row.Ratings, &p.Ratings},
		{row.Availability, &p.Availability},
	}
	for _, t := range targets {
		if err := decode(t.src, t.dst); err != nil {
			return nil, err
		}
	}
	if p.Badges == nil {
		p.Badges = []entity.Badge{}
	}
	return p, nil
}

func decode(src types.JSONText, dst any) error {
	if len(src) == 0 {
		return nil
	}
	if err := src.Unmarshal(dst); err != nil {
		return fmt.Errorf("decode profile document: %w", err)
	}
	return nil
}

func stampNew(created, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	*updated = *created
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		if constraint == ConstraintOrganizerUser || constraint == ConstraintWorkerUser {
			return ErrDuplicateProfile
		}
	}
	return err
}
