package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteRead(t *testing.T) {
	store := NewStore()

	t.Run("missing key", func(t *testing.T) {
		_, ok := store.Read("absent")
		assert.False(t, ok)
	})

	t.Run("write then read", func(t *testing.T) {
		store.Write("task", "check the weather", "")

		value, ok := store.Read("task")
		require.True(t, ok)
		assert.Equal(t, "check the weather", value)
	})

	t.Run("overwrite is last write wins", func(t *testing.T) {
		store.Write("counter", 1, "")
		store.Write("counter", 2, "")

		value, ok := store.Read("counter")
		require.True(t, ok)
		assert.Equal(t, 2, value)
	})
}

func TestStore_Evidence(t *testing.T) {
	store := NewStore()

	assert.False(t, store.HasEvidence("ev-1"))

	stored := store.StoreEvidence("ev-1", map[string]any{"temp": 60})
	assert.True(t, stored)
	assert.True(t, store.HasEvidence("ev-1"))

	value, ok := store.GetEvidence("ev-1")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"temp": 60}, value)
}

func TestStore_EvidenceDuplicateKeepsFirst(t *testing.T) {
	store := NewStore()

	require.True(t, store.StoreEvidence("ev-1", "first"))
	assert.False(t, store.StoreEvidence("ev-1", "second"))

	value, ok := store.GetEvidence("ev-1")
	require.True(t, ok)
	assert.Equal(t, "first", value)
}

func TestStore_HasEvidenceIsPure(t *testing.T) {
	store := NewStore()

	// Probing for an identifier must not create it.
	assert.False(t, store.HasEvidence("probe"))
	assert.False(t, store.HasEvidence("probe"))
	assert.True(t, store.StoreEvidence("probe", "value"))
}

func TestStore_AppendTrace(t *testing.T) {
	store := NewStore()

	first := store.AppendTrace(TraceRecord{Stage: StageRetrieval})
	second := store.AppendTrace(TraceRecord{Stage: StageCognition})
	third := store.AppendTrace(TraceRecord{Stage: StageControl})

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, int64(3), third.Seq)
	assert.False(t, first.Timestamp.IsZero())

	log := store.Trace()
	require.Len(t, log, 3)
	assert.Equal(t, StageRetrieval, log[0].Stage)
	assert.Equal(t, StageCognition, log[1].Stage)
	assert.Equal(t, StageControl, log[2].Stage)
	assert.Equal(t, 3, store.TraceCount())
}

func TestStore_TraceReturnsCopy(t *testing.T) {
	store := NewStore()
	store.AppendTrace(TraceRecord{Stage: StageRetrieval})

	log := store.Trace()
	log[0].Stage = StageAction

	assert.Equal(t, StageRetrieval, store.Trace()[0].Stage)
}

func TestStore_Violations(t *testing.T) {
	store := NewStore()

	approved := true
	rejected := false
	store.AppendTrace(TraceRecord{Stage: StageControl, Validation: &approved})
	store.AppendTrace(TraceRecord{Stage: StageControl, Validation: &rejected})
	store.AppendTrace(TraceRecord{Stage: StageControl, Validation: &rejected})
	store.AppendTrace(TraceRecord{Stage: StageCognition})

	assert.Equal(t, 2, store.Violations())
}

func TestStore_Summarize(t *testing.T) {
	store := NewStore()
	store.Write("task", "plan a trip", "")
	store.StoreEvidence("ev-b", 1)
	store.StoreEvidence("ev-a", 2)
	store.AppendTrace(TraceRecord{Stage: StageRetrieval})

	summary := store.Summarize()

	assert.Equal(t, map[string]any{"task": "plan a trip"}, summary.StoredValues)
	assert.Equal(t, []string{"ev-b", "ev-a"}, summary.EvidenceKeys)
	assert.Equal(t, 1, summary.TraceCount)

	// The summary is a point-in-time snapshot: later writes must not
	// show through.
	store.Write("task", "changed", "")
	store.StoreEvidence("ev-c", 3)
	assert.Equal(t, "plan a trip", summary.StoredValues["task"])
	assert.Len(t, summary.EvidenceKeys, 2)
}

func TestStage_IsValid(t *testing.T) {
	for _, stage := range []Stage{StageRetrieval, StageCognition, StageControl, StageAction} {
		assert.True(t, stage.IsValid(), stage)
	}
	assert.False(t, Stage("unknown").IsValid())
}
