package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultArchetypes_Valid(t *testing.T) {
	profiles := DefaultArchetypes()
	require.Len(t, profiles, 5)
	for _, p := range profiles {
		assert.NoError(t, p.Validate(), p.ID)
	}
}

func TestArchetypeProfile_Validate(t *testing.T) {
	assert.Error(t, (&ArchetypeProfile{}).Validate())
	assert.Error(t, (&ArchetypeProfile{ID: "x", Aggression: 1.5}).Validate())
	assert.Error(t, (&ArchetypeProfile{ID: "x", Evasion: -0.1}).Validate())
	assert.NoError(t, (&ArchetypeProfile{ID: "x", Aggression: 1, Evasion: 0}).Validate())
}

func TestBuildTree_UnknownBehavior(t *testing.T) {
	tree, err := BuildTree(&ArchetypeProfile{ID: "blob", Name: "Blob", Behavior: "teleport"})
	require.ErrorIs(t, err, ErrNoConstructor)
	require.NotNil(t, tree)
	assert.Nil(t, tree.Root)
	assert.Equal(t, StatusFailure, tree.Tick(&Entity{}, &Context{}))
}

func TestNewLibrary_Defaults(t *testing.T) {
	lib := NewLibrary(DefaultArchetypes(), zap.NewNop())
	assert.Equal(t, []string{"goomba", "hammerBro", "koopa", "piranha", "thwomp"}, lib.Archetypes())

	tree, err := lib.Tree("koopa")
	require.NoError(t, err)
	assert.Equal(t, "Koopa_BehaviorTree", tree.Name)
	assert.IsType(t, &Sequence{}, tree.Root)

	trap, err := lib.Tree("thwomp")
	require.NoError(t, err)
	assert.IsType(t, &Selector{}, trap.Root)

	_, err = lib.Tree("bowser")
	assert.ErrorIs(t, err, ErrUnknownArchetype)
}

func TestNewLibrary_SkipsInvalidKeepsUnbuildable(t *testing.T) {
	lib := NewLibrary([]*ArchetypeProfile{
		nil,
		{ID: "bad", Behavior: BehaviorPatrol, Aggression: 3},
		{ID: "odd", Behavior: "teleport"},
	}, nil)

	_, err := lib.Tree("bad")
	assert.ErrorIs(t, err, ErrUnknownArchetype)

	odd, err := lib.Tree("odd")
	require.NoError(t, err)
	assert.Nil(t, odd.Root)
	assert.Equal(t, []string{"odd"}, lib.Archetypes())
}

// Trees are templates: two entities share one tree but keep separate state.
func TestLibrary_TreesAreShared(t *testing.T) {
	lib := NewLibrary(DefaultArchetypes(), zap.NewNop())
	tree, err := lib.Tree("goomba")
	require.NoError(t, err)

	ctx, _, _ := newTestContext(tree.Profile, fixedRand(0), nil)
	a := &Entity{ID: 1, X: 0}
	b := &Entity{ID: 2, X: 500}
	tree.Tick(a, ctx)
	tree.Tick(b, ctx)

	require.NotNil(t, a.State.Patrol)
	require.NotNil(t, b.State.Patrol)
	assert.NotSame(t, a.State.Patrol, b.State.Patrol)
	assert.InDelta(t, -50, a.State.Patrol.TargetX, 1e-9)
	assert.InDelta(t, 450, b.State.Patrol.TargetX, 1e-9)
}
