package workitems

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RecordAndReadBack(t *testing.T) {
	s := NewMemoryStore()
	at := time.Date(2026, 3, 2, 13, 35, 0, 0, time.UTC)

	require.NoError(t, s.RecordResponse("alice", "status", "halfway through the migration", at))

	responses, err := s.RecentResponses("alice", 5)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "status", responses[0].Kind)
	assert.Equal(t, "halfway through the migration", responses[0].Text)
	assert.Equal(t, at, responses[0].At)
}

func TestMemoryStore_LimitKeepsNewest(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		require.NoError(t, s.RecordResponse("alice", "status", fmt.Sprintf("update %d", i), base.Add(time.Duration(i)*time.Hour)))
	}

	responses, err := s.RecentResponses("alice", 5)
	require.NoError(t, err)
	require.Len(t, responses, 5)
	assert.Equal(t, "update 3", responses[0].Text)
	assert.Equal(t, "update 7", responses[4].Text)
}

func TestMemoryStore_UnknownRecipientIsEmpty(t *testing.T) {
	s := NewMemoryStore()
	responses, err := s.RecentResponses("nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, responses)
}
