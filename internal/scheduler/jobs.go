package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	// PurgeSchedule runs shortly after midnight so yesterday's snapshot never seeds today
	PurgeSchedule = "0 5 0 * * *"
	// ImportSchedule runs the nightly workbook import
	ImportSchedule = "0 30 2 * * *"

	jobTimeout = 2 * time.Minute
)

// SnapshotPurger drops a snapshot captured on an earlier day
type SnapshotPurger interface {
	PurgeStale(ctx context.Context) (bool, error)
}

// WorkbookImporter loads ledger rows from a workbook sheet
type WorkbookImporter interface {
	ImportWorkbook(ctx context.Context, path, sheet string) (int, error)
}

// PurgeSnapshotJob removes a stale forecast snapshot
type PurgeSnapshotJob struct {
	purger SnapshotPurger
	log    zerolog.Logger
}

// NewPurgeSnapshotJob creates the stale snapshot job
func NewPurgeSnapshotJob(purger SnapshotPurger, log zerolog.Logger) *PurgeSnapshotJob {
	return &PurgeSnapshotJob{
		purger: purger,
		log:    log.With().Str("job", "purge_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *PurgeSnapshotJob) Name() string {
	return "purge_snapshot"
}

// Run executes the purge
func (j *PurgeSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := j.purger.PurgeStale(ctx)
	if err != nil {
		return fmt.Errorf("purging snapshot: %w", err)
	}
	j.log.Debug().Bool("removed", removed).Msg("Snapshot purge done")
	return nil
}

// ImportJob re-imports the timeline sheet of a workbook
type ImportJob struct {
	importer WorkbookImporter
	path     string
	sheet    string
	log      zerolog.Logger
}

// NewImportJob creates the nightly workbook import job
func NewImportJob(importer WorkbookImporter, path, sheet string, log zerolog.Logger) *ImportJob {
	return &ImportJob{
		importer: importer,
		path:     path,
		sheet:    sheet,
		log:      log.With().Str("job", "workbook_import").Logger(),
	}
}

// Name returns the job name
func (j *ImportJob) Name() string {
	return "workbook_import"
}

// Run imports the workbook. A missing file is skipped with a warning.
func (j *ImportJob) Run() error {
	if _, err := os.Stat(j.path); errors.Is(err, os.ErrNotExist) {
		j.log.Warn().Str("path", j.path).Msg("Workbook not found, skipping import")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.importer.ImportWorkbook(ctx, j.path, j.sheet)
	if err != nil {
		return fmt.Errorf("importing %s: %w", j.path, err)
	}
	j.log.Info().Int("records", n).Msg("Nightly import done")
	return nil
}
