package recent_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/recent"
	"github.com/jrsteele09/bgv-gateway/storage/bbolt"
	"github.com/jrsteele09/bgv-gateway/storage/memory"
	"github.com/stretchr/testify/require"
)

func ids(entries []recent.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.CandidateID)
	}
	return out
}

func TestList_OrderDedupeAndCap(t *testing.T) {
	l := recent.NewList(memory.New())

	all, err := l.All()
	require.NoError(t, err)
	require.Empty(t, all)

	for i := 1; i <= 6; i++ {
		require.NoError(t, l.Add(recent.Entry{
			CandidateID:   fmt.Sprintf("c%d", i),
			CandidateName: fmt.Sprintf("Candidate %d", i),
		}))
	}
	all, err = l.All()
	require.NoError(t, err)
	require.Equal(t, []string{"c6", "c5", "c4", "c3", "c2"}, ids(all))

	require.NoError(t, l.Add(recent.Entry{CandidateID: "c3", CandidateName: "Candidate 3", CaseNumber: "BGV-0003"}))
	all, err = l.All()
	require.NoError(t, err)
	require.Equal(t, []string{"c3", "c6", "c5", "c4", "c2"}, ids(all))
	require.Equal(t, "BGV-0003", all[0].CaseNumber)

	require.NoError(t, l.Clear())
	require.NoError(t, l.Clear())
	all, err = l.All()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestList_StampsSearchTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	recent.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { recent.NowTimeFunc = time.Now })

	l := recent.NewList(memory.New())
	require.NoError(t, l.Add(recent.Entry{CandidateID: "c1"}))
	all, err := l.All()
	require.NoError(t, err)
	require.True(t, now.Equal(all[0].SearchedAt))
}

func TestList_RequiresCandidateID(t *testing.T) {
	l := recent.NewList(memory.New())
	require.ErrorIs(t, l.Add(recent.Entry{CandidateName: "No Id"}), gwerrors.ErrInvalidRequest)
}

func TestList_PersistsInBBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.db")
	kv, err := bbolt.NewFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, recent.NewList(kv).Add(recent.Entry{CandidateID: "c1", Organization: "Acme"}))
	require.NoError(t, kv.Close())

	kv, err = bbolt.NewFromFile(path, nil)
	require.NoError(t, err)
	defer kv.Close()
	all, err := recent.NewList(kv).All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Acme", all[0].Organization)
}
