package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) PurgeStale(ctx context.Context) (bool, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("no deadline")
	}
	return f.err == nil, f.err
}

type fakeImporter struct {
	path, sheet string
	n           int
}

func (f *fakeImporter) ImportWorkbook(_ context.Context, path, sheet string) (int, error) {
	f.path, f.sheet = path, sheet
	return f.n, nil
}

func TestAddJobSchedules(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewPurgeSnapshotJob(&fakePurger{}, zerolog.Nop())

	require.NoError(t, s.AddJob(PurgeSchedule, job))
	require.NoError(t, s.AddJob(ImportSchedule, job))
	assert.Len(t, s.cron.Entries(), 2)

	// the scheduler expects a seconds field
	assert.Error(t, s.AddJob("not a schedule", job))
}

func TestPurgeSnapshotJob(t *testing.T) {
	purger := &fakePurger{}
	job := NewPurgeSnapshotJob(purger, zerolog.Nop())
	s := New(zerolog.Nop())

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, "purge_snapshot", job.Name())

	purger.err = errors.New("locked")
	err := job.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, purger.err)
}

func TestImportJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.xlsx")
	importer := &fakeImporter{n: 12}
	job := NewImportJob(importer, path, "timeline", zerolog.Nop())

	// missing workbook is skipped
	require.NoError(t, job.Run())
	assert.Empty(t, importer.path)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, job.Run())
	assert.Equal(t, path, importer.path)
	assert.Equal(t, "timeline", importer.sheet)
}
