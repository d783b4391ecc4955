package status

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"

	"github.com/arlyon/linear-motion/pkg/canonical"
	"github.com/arlyon/linear-motion/pkg/deadletter"
	"github.com/arlyon/linear-motion/pkg/store"
)

func newTestView(t *testing.T) *View {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dl, err := deadletter.Open(st.DB())
	require.NoError(t, err)

	return &View{Store: st, DeadLetter: dl}
}

func TestEntitiesSortedByUpstreamID(t *testing.T) {
	v := newTestView(t)

	require.NoError(t, v.Store.Put(canonical.Task{
		ID: canonical.NewID(), UpstreamID: "ISS-2", Title: "second", Status: canonical.StatusActive,
	}))
	require.NoError(t, v.Store.Put(canonical.Task{
		ID: canonical.NewID(), UpstreamID: "ISS-1", Title: "first", Status: canonical.StatusArchivedInDownstream,
	}))

	entities, err := v.Entities()
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Equal(t, "ISS-1", entities[0].UpstreamID)
	require.Equal(t, "ISS-2", entities[1].UpstreamID)
}

func TestDeadLettersSortedByFailureTime(t *testing.T) {
	v := newTestView(t)

	older := deadletter.Entry{ID: canonical.NewID(), Err: "first failure", FailedAt: time.Now().Add(-time.Hour)}
	newer := deadletter.Entry{ID: canonical.NewID(), Err: "second failure", FailedAt: time.Now()}
	require.NoError(t, v.DeadLetter.Put(newer))
	require.NoError(t, v.DeadLetter.Put(older))

	entries, err := v.DeadLetters()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "first failure", entries[0].Err)
	require.Equal(t, "second failure", entries[1].Err)
}

func TestPrintIncludesEntityAndDeadLetterContent(t *testing.T) {
	v := newTestView(t)
	id := canonical.NewID()

	require.NoError(t, v.Store.Put(canonical.Task{
		ID: id, UpstreamID: "ISS-9", Title: "broken sync", Status: canonical.StatusActive,
	}))
	require.NoError(t, v.DeadLetter.Put(deadletter.Entry{
		ID: id, Err: "rate limited", FailedAt: time.Now(),
	}))

	var buf bytes.Buffer
	require.NoError(t, v.Print(&buf))

	plain := stripansi.Strip(buf.String())
	require.Contains(t, plain, "ISS-9")
	require.Contains(t, plain, "broken sync")
	require.Contains(t, plain, "rate limited")
}

func TestCheckVersionRejectsMajorMismatch(t *testing.T) {
	v := newTestView(t)
	err := v.CheckVersion(semver.MustParse("2.0.0"))
	require.Error(t, err)
}

func TestCheckVersionAcceptsMatchingMajor(t *testing.T) {
	v := newTestView(t)
	err := v.CheckVersion(semver.MustParse("1.4.2"))
	require.NoError(t, err)
}
