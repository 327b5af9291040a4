package rplace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalEmpty(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)

	s, err := j.Summary()
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
	assert.True(t, s.Last.IsZero())
}

func TestJournalSummary(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	now := time.Unix(1491000000, 0)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Record(1, 1, 5, 0))
	require.NoError(t, j.Record(3, 3, 2, 10*time.Second))
	require.NoError(t, j.Record(1, 1, 5, 0))
	require.NoError(t, j.Record(2, 2, 13, 0))
	now = now.Add(time.Minute)
	require.NoError(t, j.Record(3, 3, 2, 1500*time.Millisecond))

	s, err := j.Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, s.Attempts)
	assert.Equal(t, 3, s.Written)
	assert.Equal(t, 2, s.Throttled)
	assert.Equal(t, 2, s.Pixels)
	assert.Equal(t, 11500*time.Millisecond, s.Waited)
	assert.True(t, now.Equal(s.Last))
}

func TestJournalReopen(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(file)
	require.NoError(t, err)
	require.NoError(t, j.Record(4, 2, 0, 0))
	require.NoError(t, j.Close())

	j, err = OpenJournal(file)
	require.NoError(t, err)
	defer j.Close()

	s, err := j.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Attempts)
	assert.Equal(t, 1, s.Pixels)
}

func TestJournalWAL(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)

	var mode string
	require.NoError(t, j.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
