package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/V4T54L/surveystack/internal/domain"
)

const tenantColumns = `id, hostname, topic, title, description, vertical, primary_color, secondary_color,
	features_survey, features_blog, features_newsletter, features_store, features_referrals, features_social, features_impact,
	total_subscribers, total_completions, created_at, updated_at`

var counterColumns = map[domain.Counter]string{
	domain.CounterSubscribers: "total_subscribers",
	domain.CounterCompletions: "total_completions",
}

// TenantRepository implements domain.TenantStore and domain.TenantWriter on the tenants table.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTenantRepository creates a new PostgreSQL tenant repository.
func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger.With("component", "postgres_tenants")}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*domain.TenantRecord, error) {
	var rec domain.TenantRecord
	f := &rec.Features
	err := row.Scan(
		&rec.ID, &rec.Hostname, &rec.Topic, &rec.Title, &rec.Description, &rec.Vertical,
		&rec.PrimaryColor, &rec.SecondaryColor,
		&f.Survey, &f.Blog, &f.Newsletter, &f.Store, &f.Referrals, &f.Social, &f.Impact,
		&rec.Counters.Subscribers, &rec.Counters.Completions, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByHostname returns (nil, nil) when the hostname has no row.
func (r *TenantRepository) FindByHostname(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE hostname = $1`
	rec, err := scanTenant(r.db.QueryRowContext(ctx, query, hostname))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant %s: %w", hostname, err)
	}
	return rec, nil
}

// InsertIfAbsent relies on the unique hostname constraint; losing a race is not an error.
func (r *TenantRepository) InsertIfAbsent(ctx context.Context, hostname string, cfg domain.TenantConfig) error {
	f := cfg.Features
	query := `
		INSERT INTO tenants (id, hostname, topic, title, description, vertical, primary_color, secondary_color,
			features_survey, features_blog, features_newsletter, features_store, features_referrals, features_social, features_impact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (hostname) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		uuid.New(), hostname, cfg.Topic, cfg.Title, cfg.Description, cfg.Vertical,
		cfg.Theming.PrimaryColor, cfg.Theming.AccentColor,
		f.Survey, f.Blog, f.Newsletter, f.Store, f.Referrals, f.Social, f.Impact,
	)
	if err != nil {
		return fmt.Errorf("insert tenant %s: %w", hostname, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		r.logger.Info("tenant created", "hostname", hostname, "vertical", cfg.Vertical)
	}
	return nil
}

// UpdateFeatures sets only the given flags. Returns (nil, nil) when the hostname has no row.
func (r *TenantRepository) UpdateFeatures(ctx context.Context, hostname string, overrides map[string]bool) (*domain.TenantRecord, error) {
	if _, err := (domain.FeatureFlags{}).Apply(overrides); err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(overrides)+1)
	args := []any{hostname}
	for _, name := range domain.FeatureNames {
		v, ok := overrides[name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("features_%s = $%d", name, len(args)))
	}
	if len(sets) == 0 {
		return r.FindByHostname(ctx, hostname)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE tenants SET ` + strings.Join(sets, ", ") + ` WHERE hostname = $1 RETURNING ` + tenantColumns
	rec, err := scanTenant(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update features for %s: %w", hostname, err)
	}
	return rec, nil
}

// IncrementCounter bumps a counter column in place.
func (r *TenantRepository) IncrementCounter(ctx context.Context, tenantID uuid.UUID, counter domain.Counter) error {
	column, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown counter %q", counter)
	}
	query := fmt.Sprintf(`UPDATE tenants SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, column)
	res, err := r.db.ExecContext(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if n == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
