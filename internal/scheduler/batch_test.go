package scheduler

import (
	"testing"

	"github.com/specialistvlad/opcompile/internal/node"
	"github.com/specialistvlad/opcompile/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGroup(id ScopeID, slices int, names ...string) *ScopeGroup {
	nodes := make([]*node.Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, node.New(nodeid.New("Conv2D", name), nil))
	}
	return &ScopeGroup{ID: id, Nodes: nodes, Provenance: Plain{}, Slices: slices}
}

func TestBatch_MarkFinished(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b := newBatch(1)
	g := testGroup(1, 0, "a")
	b.addScope(g)
	b.track(10, g, 0)
	b.track(11, g, 1)

	// --- Act & Assert ---
	require.False(t, b.drained())
	require.NoError(t, b.markFinished(FinishedTask{TaskID: 10, Status: TaskSuccess, Artifact: CompiledArtifact{BinaryPath: "k.o"}}))
	require.NoError(t, b.markFinished(FinishedTask{TaskID: 11, Status: TaskFailed, Message: "bad tiling"}))
	assert.True(t, b.drained())

	assert.Equal(t, "k.o", b.tasks[10].Artifact.BinaryPath)
	assert.Equal(t, "bad tiling", b.tasks[11].Message)
	assert.Equal(t, []TaskID{10, 11}, g.TaskIDs)
	assert.Equal(t, 2, b.stats.Submitted)
	assert.Equal(t, 1, b.stats.Succeeded)
	assert.Equal(t, 1, b.stats.Failed)
}

func TestBatch_MarkFinishedRejectsBadReports(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		ft   FinishedTask
		want string
	}{
		{name: "unknown", ft: FinishedTask{TaskID: 99, Status: TaskSuccess}, want: "unknown task 99"},
		{name: "still pending", ft: FinishedTask{TaskID: 1, Status: TaskPending}, want: "with status pending"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := newBatch(1)
			g := testGroup(1, 0, "a")
			b.addScope(g)
			b.track(1, g, 0)

			err := b.markFinished(tc.ft)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.False(t, b.drained())
		})
	}

	t.Run("twice", func(t *testing.T) {
		t.Parallel()
		b := newBatch(1)
		g := testGroup(1, 0, "a")
		b.addScope(g)
		b.track(1, g, 0)

		require.NoError(t, b.markFinished(FinishedTask{TaskID: 1, Status: TaskFailed}))
		err := b.markFinished(FinishedTask{TaskID: 1, Status: TaskSuccess})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "twice")
		assert.Equal(t, TaskFailed, b.tasks[1].Status)
	})
}

func TestBatch_BeginRoundKeepsStats(t *testing.T) {
	t.Parallel()

	b := newBatch(3)
	g := testGroup(1, 0, "a")
	b.addScope(g)
	b.track(1, g, 0)
	require.NoError(t, b.markFinished(FinishedTask{TaskID: 1, Status: TaskFailed}))

	b.beginRound(1)

	assert.Empty(t, b.tasks)
	assert.Empty(t, b.groups())
	assert.True(t, b.drained())
	assert.Equal(t, 1, b.stats.Submitted)
	assert.Equal(t, 2, b.stats.Rounds)
	assert.NotEmpty(t, b.id)
}

func TestBatch_PendingIsOrdered(t *testing.T) {
	t.Parallel()

	b := newBatch(1)
	g := testGroup(1, 0, "a")
	b.addScope(g)
	for _, id := range []TaskID{7, 3, 5} {
		b.track(id, g, 0)
	}
	require.NoError(t, b.markFinished(FinishedTask{TaskID: 5, Status: TaskSuccess}))

	pending := b.pending()

	require.Len(t, pending, 2)
	assert.Equal(t, TaskID(3), pending[0].ID)
	assert.Equal(t, TaskID(7), pending[1].ID)
}
