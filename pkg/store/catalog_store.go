package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/airfreight/trackingd/pkg/config/seed"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// CatalogStore serves the read-only milestone and source reference tables.
// Rows are seeded once from the embedded YAML in pkg/config/seed and never
// mutated afterward — there is no runtime API for editing the catalog.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore constructs a CatalogStore over an open connection pool.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// SeedIfEmpty populates milestones and sources from the embedded catalog the
// first time the tables are found empty, so a fresh deployment is usable
// without a separate data-loading step.
func (c *CatalogStore) SeedIfEmpty(ctx context.Context) error {
	var milestoneCount int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM milestones`).Scan(&milestoneCount); err != nil {
		return trackerrors.NewStoreError("count milestones", err)
	}
	if milestoneCount == 0 {
		milestones, err := seed.Milestones()
		if err != nil {
			return err
		}
		for _, m := range milestones {
			_, err := c.db.ExecContext(ctx, `
				INSERT INTO milestones (code, name, category, sequence_order, critical,
					expected_duration_seconds, sla_threshold_seconds, mapped_status)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
				ON CONFLICT (code) DO NOTHING`,
				m.Code, m.Name, m.Category, m.SequenceOrder, m.Critical,
				int(m.ExpectedDuration.Seconds()), int(m.SLAThreshold.Seconds()), m.MappedStatus)
			if err != nil {
				return trackerrors.NewStoreError("seed milestone", err)
			}
		}
	}

	var sourceCount int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM sources`).Scan(&sourceCount); err != nil {
		return trackerrors.NewStoreError("count sources", err)
	}
	if sourceCount == 0 {
		sources, err := seed.Sources()
		if err != nil {
			return err
		}
		for _, s := range sources {
			_, err := c.db.ExecContext(ctx, `
				INSERT INTO sources (source_id, name, type, priority)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (source_id) DO NOTHING`,
				s.SourceID, s.Name, s.Type, s.Priority)
			if err != nil {
				return trackerrors.NewStoreError("seed source", err)
			}
		}
	}
	return nil
}

// GetMilestone looks up a catalog entry by event code.
func (c *CatalogStore) GetMilestone(ctx context.Context, code string) (*models.Milestone, error) {
	var m models.Milestone
	var expectedSeconds, slaSeconds int
	err := c.db.QueryRowContext(ctx, `
		SELECT code, name, category, sequence_order, critical,
		       expected_duration_seconds, sla_threshold_seconds, mapped_status
		FROM milestones WHERE code = $1`, code,
	).Scan(&m.Code, &m.Name, &m.Category, &m.SequenceOrder, &m.Critical, &expectedSeconds, &slaSeconds, &m.MappedStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("milestone", code)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get milestone", err)
	}
	m.ExpectedDuration = secondsToDuration(expectedSeconds)
	m.SLAThreshold = secondsToDuration(slaSeconds)
	return &m, nil
}

// ListMilestones returns the full catalog ordered by sequence.
func (c *CatalogStore) ListMilestones(ctx context.Context) ([]*models.Milestone, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT code, name, category, sequence_order, critical,
		       expected_duration_seconds, sla_threshold_seconds, mapped_status
		FROM milestones ORDER BY sequence_order ASC`)
	if err != nil {
		return nil, trackerrors.NewStoreError("list milestones", err)
	}
	defer rows.Close()

	var out []*models.Milestone
	for rows.Next() {
		var m models.Milestone
		var expectedSeconds, slaSeconds int
		if err := rows.Scan(&m.Code, &m.Name, &m.Category, &m.SequenceOrder, &m.Critical, &expectedSeconds, &slaSeconds, &m.MappedStatus); err != nil {
			return nil, trackerrors.NewStoreError("scan milestone", err)
		}
		m.ExpectedDuration = secondsToDuration(expectedSeconds)
		m.SLAThreshold = secondsToDuration(slaSeconds)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListSources returns the full source priority table.
func (c *CatalogStore) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT source_id, name, type, priority FROM sources ORDER BY priority ASC`)
	if err != nil {
		return nil, trackerrors.NewStoreError("list sources", err)
	}
	defer rows.Close()

	var out []*models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.SourceID, &s.Name, &s.Type, &s.Priority); err != nil {
			return nil, trackerrors.NewStoreError("scan source", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// GetSource looks up a single source by id.
func (c *CatalogStore) GetSource(ctx context.Context, sourceID string) (*models.Source, error) {
	var s models.Source
	err := c.db.QueryRowContext(ctx, `SELECT source_id, name, type, priority FROM sources WHERE source_id = $1`, sourceID).
		Scan(&s.SourceID, &s.Name, &s.Type, &s.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trackerrors.NewNotFoundError("source", sourceID)
	}
	if err != nil {
		return nil, trackerrors.NewStoreError("get source", err)
	}
	return &s, nil
}

func secondsToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}
