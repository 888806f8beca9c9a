package service

import (
	"testing"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Global.RootPath = t.TempDir()
	return NewRegistry(cfg, nil)
}

// Scenario S1 / testable property 1: create then open succeeds and yields
// the same committed configuration.
func TestCreateThenOpenSucceeds(t *testing.T) {
	r := testRegistry(t)
	b := NewBuilder(r, "demo").PayloadType("u64", 8, 8).MaxPublishers(2).MaxSubscribers(4)

	created, err := b.Create()
	require.NoError(t, err)
	defer created.Drop()

	opened, err := b.Open("node-a")
	require.NoError(t, err)
	defer opened.Drop()

	assert.Equal(t, created.Key(), opened.Key())
	assert.Equal(t, created.StaticConfig().ServiceName, opened.StaticConfig().ServiceName)
	id, has := opened.NodeID()
	assert.True(t, has)
	assert.NotZero(t, id)
}

// Scenario S6: creating twice fails with AlreadyExists.
func TestCreateTwiceFails(t *testing.T) {
	r := testRegistry(t)
	b := NewBuilder(r, "demo")

	_, err := b.Create()
	require.NoError(t, err)

	_, err = NewBuilder(r, "demo").Create()
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenMissingServiceFails(t *testing.T) {
	r := testRegistry(t)
	_, err := NewBuilder(r, "ghost").Open("node-a")
	assert.ErrorIs(t, err, ErrDoesNotExist)
}

// Scenario S7: opening with an incompatible payload type fails.
func TestOpenWithIncompatiblePayloadFails(t *testing.T) {
	r := testRegistry(t)
	_, err := NewBuilder(r, "demo").PayloadType("u64", 8, 8).Create()
	require.NoError(t, err)

	_, err = NewBuilder(r, "demo").PayloadType("i64", 8, 8).Open("node-a")
	assert.ErrorIs(t, err, config.ErrIncompatibleTypes)
}

// Scenario S7: opening with a requirement the creator didn't support fails.
func TestOpenWithUnsupportedRequirementFails(t *testing.T) {
	r := testRegistry(t)
	_, err := NewBuilder(r, "demo").MaxPublishers(1).Create()
	require.NoError(t, err)

	_, err = NewBuilder(r, "demo").MaxPublishers(99).Open("node-a")
	assert.ErrorIs(t, err, config.ErrDoesNotSupportRequestedMaxPublishers)
}

// Scenario S6 / testable property 3: exceeding max_nodes on open fails.
func TestOpenExceedsMaxNodesFails(t *testing.T) {
	r := testRegistry(t)
	b := NewBuilder(r, "demo").MaxNodes(1)
	created, err := b.Create()
	require.NoError(t, err)
	defer created.Drop()

	first, err := b.Open("node-a")
	require.NoError(t, err)
	defer first.Drop()

	_, err = b.Open("node-b")
	assert.ErrorIs(t, err, ErrExceedsMaxNumberOfNodes)
}

func TestOpenOrCreateCreatesThenOpens(t *testing.T) {
	r := testRegistry(t)
	b := NewBuilder(r, "demo")

	first, err := b.OpenOrCreate("node-a")
	require.NoError(t, err)
	defer first.Drop()

	second, err := NewBuilder(r, "demo").OpenOrCreate("node-b")
	require.NoError(t, err)
	defer second.Drop()

	assert.Equal(t, first.Key(), second.Key())
}

// Drop on the owning handle removes the static storage once no live
// dynamic reference remains; a prior opener's drop alone must not.
func TestDropRemovesStorageOnlyAfterAllReferencesGone(t *testing.T) {
	r := testRegistry(t)
	b := NewBuilder(r, "demo")

	created, err := b.Create()
	require.NoError(t, err)

	opened, err := b.Open("node-a")
	require.NoError(t, err)

	require.NoError(t, opened.Drop())
	assert.True(t, r.static.Exists(created.Key()))

	require.NoError(t, created.Drop())
	assert.False(t, r.static.Exists(created.Key()))
}

func TestAttributeRequirementEnforcedOnOpen(t *testing.T) {
	r := testRegistry(t)
	_, err := NewBuilder(r, "demo").Attribute("region", "eu").Create()
	require.NoError(t, err)

	_, err = NewBuilder(r, "demo").Attribute("region", "us").Open("node-a")
	assert.ErrorIs(t, err, config.ErrIncompatibleAttributes)

	svc, err := NewBuilder(r, "demo").Attribute("region", "eu").Open("node-a")
	require.NoError(t, err)
	defer svc.Drop()
}

// Discover resolves a committed service's static config without opening a
// node-scoped handle, and implements pkg/external.ServiceDiscovery.
func TestDiscoverResolvesCommittedStaticConfig(t *testing.T) {
	r := testRegistry(t)
	var _ external.ServiceDiscovery = r

	created, err := NewBuilder(r, "demo").PayloadType("u64", 8, 8).Create()
	require.NoError(t, err)
	defer created.Drop()

	sc, ok := r.Discover("demo", iox2.MessagingPatternPublishSubscribe)
	require.True(t, ok)
	assert.Equal(t, "demo", sc.ServiceName)

	_, ok = r.Discover("ghost", iox2.MessagingPatternPublishSubscribe)
	assert.False(t, ok)
}

func TestListReportsCommittedServices(t *testing.T) {
	r := testRegistry(t)

	a, err := NewBuilder(r, "alpha").Create()
	require.NoError(t, err)
	defer a.Drop()

	b, err := NewBuilder(r, "beta").Create()
	require.NoError(t, err)
	defer b.Drop()

	infos, err := r.List()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, i := range infos {
		names[i.Name] = true
		assert.Equal(t, iox2.MessagingPatternPublishSubscribe, i.Pattern)
	}
	assert.True(t, names["alpha"])
	assert.True(t, names["beta"])
}

func TestForceRemoveDeletesStaticStorage(t *testing.T) {
	r := testRegistry(t)

	created, err := NewBuilder(r, "demo").Create()
	require.NoError(t, err)
	assert.True(t, r.static.Exists(created.Key()))

	require.NoError(t, r.ForceRemove("demo", iox2.MessagingPatternPublishSubscribe))
	assert.False(t, r.static.Exists(created.Key()))

	err = r.ForceRemove("demo", iox2.MessagingPatternPublishSubscribe)
	assert.ErrorIs(t, err, ErrDoesNotExist)
}
