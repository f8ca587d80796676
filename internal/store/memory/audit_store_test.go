package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tradejournal/internal/models"
	"github.com/wolfeidau/tradejournal/internal/store"
)

func TestAuditStore_AppendAndList(t *testing.T) {
	st := NewAuditStore()
	ctx := context.Background()

	last, err := st.Last(ctx)
	require.NoError(t, err)
	require.Nil(t, last)

	actions := []string{models.AuditActionLogin, models.AuditActionLogout, models.AuditActionLogin}
	for i, action := range actions {
		entry := &models.AuditEntry{Action: action, Category: models.AuditCategoryAuth, PrevHash: fmt.Sprint(i), Hash: fmt.Sprint(i + 1)}
		require.NoError(t, st.Append(ctx, entry))
		require.NotZero(t, entry.ID)
	}

	last, err = st.Last(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), last.ID)

	all, err := st.List(ctx, store.ListAuditOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, int64(3), all[0].ID, "newest first")

	logins, err := st.List(ctx, store.ListAuditOptions{Action: models.AuditActionLogin, Limit: 1})
	require.NoError(t, err)
	require.Len(t, logins, 1)
	require.Equal(t, int64(3), logins[0].ID)
}

func TestAuditStore_Walk(t *testing.T) {
	st := NewAuditStore()
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, st.Append(ctx, &models.AuditEntry{Action: models.AuditActionLogin, PrevHash: fmt.Sprint(i), Hash: fmt.Sprint(i + 1)}))
	}

	var ids []int64
	require.NoError(t, st.Walk(ctx, func(e *models.AuditEntry) error {
		ids = append(ids, e.ID)
		return nil
	}))
	require.Equal(t, []int64{1, 2, 3}, ids)

	stop := errors.New("stop")
	err := st.Walk(ctx, func(e *models.AuditEntry) error { return stop })
	require.ErrorIs(t, err, stop)
}

func TestAuditStore_RejectsForks(t *testing.T) {
	st := NewAuditStore()
	ctx := context.Background()

	require.NoError(t, st.Append(ctx, &models.AuditEntry{PrevHash: "genesis", Hash: "a"}))

	err := st.Append(ctx, &models.AuditEntry{PrevHash: "genesis", Hash: "b"})
	require.ErrorIs(t, err, store.ErrAuditConflict)

	err = st.Append(ctx, &models.AuditEntry{PrevHash: "x", Hash: "a"})
	require.ErrorIs(t, err, store.ErrAuditConflict)

	require.NoError(t, st.Append(ctx, &models.AuditEntry{PrevHash: "a", Hash: "b"}))

	all, err := st.List(ctx, store.ListAuditOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
