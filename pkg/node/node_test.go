package node

import (
	"testing"

	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/pubsub"
	"github.com/iox2go/iox2/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDropIsAlive(t *testing.T) {
	name := t.Name() + "-node"
	n, err := New(name)
	require.NoError(t, err)
	assert.True(t, IsAlive(name))

	_, err = New(name)
	assert.ErrorIs(t, err, ErrNodeNameAlreadyInUse)

	n.Drop()
	assert.False(t, IsAlive(name))
}

func TestIsAliveFalseForUnregisteredName(t *testing.T) {
	assert.False(t, IsAlive("no-such-node-"+t.Name()))
}

// Scenario: a node that crashed without calling Drop leaves behind a
// publisher and is never in node's monitor registry; Scan must discover
// it, reclaim its port, clear the connection's role obligations on the
// subscriber side, and remove both the port and the node entry.
func TestScanReclaimsDeadNode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Global.RootPath = t.TempDir()
	r := service.NewRegistry(cfg, nil)
	build := func() *service.Builder {
		return service.NewBuilder(r, "topic").PayloadType("u64", 8, 8)
	}

	created, err := build().Create()
	require.NoError(t, err)
	defer created.Drop()

	// Never register a liveness token for this node name: Scan treats an
	// unregistered name as dead, standing in for a process that crashed
	// before it ever cleanly dropped.
	pubSvc, err := build().Open("ghost-node")
	require.NoError(t, err)

	pub, err := pubsub.NewPublisher(pubSvc, pubsub.DiscardSample, nil)
	require.NoError(t, err)

	liveNode, err := New("live-node")
	require.NoError(t, err)
	defer liveNode.Drop()

	subSvc, err := build().Open(liveNode.Name)
	require.NoError(t, err)
	defer subSvc.Drop()

	sub, err := pubsub.NewSubscriber(subSvc, 4, nil)
	require.NoError(t, err)
	defer sub.Drop()

	require.NoError(t, sub.UpdateConnections())
	require.NoError(t, pub.UpdateConnections())

	reclaimed, err := Scan(pubSvc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	publishers, _, nodes := pubSvc.DynamicConfig().Snapshot()
	assert.Empty(t, publishers)
	for _, nd := range nodes {
		assert.NotEqual(t, "ghost-node", nd.Name)
	}

	// Re-scanning is a no-op now that the dead node is gone.
	reclaimed, err = Scan(pubSvc, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}
