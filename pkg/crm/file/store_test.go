package file

import (
	"testing"

	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contacts(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.GetContact(t.Context(), "C1")
	assert.ErrorIs(t, err, protocol.ErrContactNotFound)
	assert.ErrorIs(t, store.Update(t.Context(), "C1", map[string]any{"tier": "gold"}), protocol.ErrContactNotFound)

	require.NoError(t, store.SaveContact(t.Context(), "C1", map[string]any{"country": "NG", "tier": "silver"}))
	require.NoError(t, store.Update(t.Context(), "C1", map[string]any{"tier": "gold", "score": 10}))

	contact, err := store.GetContact(t.Context(), "C1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"country": "NG", "tier": "gold", "score": float64(10)}, contact)
}

func TestStore_Lists(t *testing.T) {
	store := NewStore(t.TempDir())

	assert.ErrorIs(t, store.AddMember(t.Context(), "C1", "L1"), protocol.ErrListNotFound)

	require.NoError(t, store.CreateList(t.Context(), "L1"))
	require.NoError(t, store.AddMember(t.Context(), "C1", "L1"))
	require.NoError(t, store.AddMember(t.Context(), "C2", "L1"))
	require.NoError(t, store.AddMember(t.Context(), "C1", "L1"))

	members, err := store.Members(t.Context(), "L1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, members)

	require.NoError(t, store.CreateList(t.Context(), "L1"))

	require.NoError(t, store.RemoveMember(t.Context(), "C1", "L1"))
	require.NoError(t, store.RemoveMember(t.Context(), "C9", "L1"))

	members, err = store.Members(t.Context(), "L1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C2"}, members)

	_, err = store.Members(t.Context(), "L404")
	assert.ErrorIs(t, err, protocol.ErrListNotFound)
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, id := range []string{"", "../etc", "a/b", `a\b`} {
		_, err := store.GetContact(t.Context(), id)
		require.Error(t, err)
		assert.NotErrorIs(t, err, protocol.ErrContactNotFound)
	}
}
