// Package seed embeds the built-in milestone catalog and source priority
// table (§3 Milestone, §3 Source) as YAML reference data. Both are
// read-only: operators adjust them by editing these files and redeploying,
// never through a runtime API. The seed is written only into empty tables
// (store.CatalogStore.SeedIfEmpty), so an edit does not reach a database
// that was already seeded. This matches spec.md's treatment of the
// milestone catalog and source list as externally curated reference data
// rather than tenant-mutable rows.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/airfreight/trackingd/pkg/models"
)

//go:embed milestones.yaml
var milestonesYAML []byte

//go:embed sources.yaml
var sourcesYAML []byte

type milestonesFile struct {
	Milestones []milestoneEntry `yaml:"milestones"`
}

type milestoneEntry struct {
	Code                    string `yaml:"code"`
	Name                    string `yaml:"name"`
	Category                string `yaml:"category"`
	SequenceOrder           int    `yaml:"sequence_order"`
	Critical                bool   `yaml:"critical"`
	ExpectedDurationSeconds int    `yaml:"expected_duration_seconds"`
	SLAThresholdSeconds     int    `yaml:"sla_threshold_seconds"`
	MappedStatus            string `yaml:"mapped_status"`
}

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	SourceID string `yaml:"source_id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Priority int    `yaml:"priority"`
}

// Milestones parses and returns the built-in milestone catalog.
func Milestones() ([]models.Milestone, error) {
	var f milestonesFile
	if err := yaml.Unmarshal(milestonesYAML, &f); err != nil {
		return nil, fmt.Errorf("seed: parse milestones.yaml: %w", err)
	}
	out := make([]models.Milestone, 0, len(f.Milestones))
	for _, m := range f.Milestones {
		out = append(out, models.Milestone{
			Code:             m.Code,
			Name:             m.Name,
			Category:         models.MilestoneCategory(m.Category),
			SequenceOrder:    m.SequenceOrder,
			Critical:         m.Critical,
			ExpectedDuration: time.Duration(m.ExpectedDurationSeconds) * time.Second,
			SLAThreshold:     time.Duration(m.SLAThresholdSeconds) * time.Second,
			MappedStatus:     models.ShipmentStatus(m.MappedStatus),
		})
	}
	return out, nil
}

// Sources parses and returns the built-in source priority table.
func Sources() ([]models.Source, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(sourcesYAML, &f); err != nil {
		return nil, fmt.Errorf("seed: parse sources.yaml: %w", err)
	}
	out := make([]models.Source, 0, len(f.Sources))
	for _, s := range f.Sources {
		out = append(out, models.Source{
			SourceID: s.SourceID,
			Name:     s.Name,
			Type:     models.SourceType(s.Type),
			Priority: s.Priority,
		})
	}
	return out, nil
}
