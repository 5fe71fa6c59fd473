package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageID(t *testing.T) {
	remote := RemoteID(42)
	require.False(t, remote.IsLocal())
	require.Equal(t, int64(42), remote.Remote())
	require.Equal(t, "remote-42", remote.Key())

	local := NewLocalID()
	require.True(t, local.IsLocal())
	require.Zero(t, local.Remote())
	require.Contains(t, local.Key(), "local-")

	// Synthetic ids never collide.
	require.NotEqual(t, local, NewLocalID())
}

func TestEditable(t *testing.T) {
	require.True(t, Message{Direction: DirectionOutgoing}.Editable())
	require.False(t, Message{Direction: DirectionIncoming}.Editable())
}

func TestSortKey(t *testing.T) {
	at := time.Date(2026, 5, 10, 9, 0, 0, 500_000_000, time.UTC)
	m := Message{CreatedAt: at}
	require.Equal(t, at.UnixMilli(), m.SortKey())
}
