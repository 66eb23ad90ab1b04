package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/campaignhq/automation/pkg/crm/postgresql"
	"github.com/campaignhq/automation/pkg/protocol"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupStore(t *testing.T) (*postgresql.Store, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("crm_test"),
		postgres.WithUsername("automation"),
		postgres.WithPassword("automation"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewStore(ctx, logger, db)
	require.NoError(t, err)

	// Migrations are idempotent.
	_, err = postgresql.NewStore(ctx, logger, db)
	require.NoError(t, err)

	return store, ctx
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	store, ctx := setupStore(t)

	t.Run("contacts", func(t *testing.T) {
		_, err := store.GetContact(ctx, "C1")
		assert.ErrorIs(t, err, protocol.ErrContactNotFound)
		assert.ErrorIs(t, store.Update(ctx, "C1", map[string]any{"tier": "gold"}), protocol.ErrContactNotFound)

		require.NoError(t, store.SaveContact(ctx, "C1", map[string]any{"country": "NG", "tier": "silver"}))
		require.NoError(t, store.Update(ctx, "C1", map[string]any{"tier": "gold"}))

		contact, err := store.GetContact(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"country": "NG", "tier": "gold"}, contact)
	})

	t.Run("lists", func(t *testing.T) {
		assert.ErrorIs(t, store.AddMember(ctx, "C1", "L1"), protocol.ErrListNotFound)

		require.NoError(t, store.CreateList(ctx, "L1"))
		require.NoError(t, store.AddMember(ctx, "C1", "L1"))
		require.NoError(t, store.AddMember(ctx, "C2", "L1"))
		require.NoError(t, store.AddMember(ctx, "C1", "L1"))

		members, err := store.Members(ctx, "L1")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2"}, members)

		require.NoError(t, store.RemoveMember(ctx, "C1", "L1"))

		members, err = store.Members(ctx, "L1")
		require.NoError(t, err)
		assert.Equal(t, []string{"C2"}, members)

		_, err = store.Members(ctx, "L404")
		assert.ErrorIs(t, err, protocol.ErrListNotFound)
	})
}
