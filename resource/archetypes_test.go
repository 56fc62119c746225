package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/enemyai/game/ai"
)

func ids(ps []*ai.ArchetypeProfile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestLoadArchetypes_EmptyPathUsesDefaults(t *testing.T) {
	ps, err := LoadArchetypes("")
	require.NoError(t, err)
	assert.Equal(t, []string{"goomba", "koopa", "piranha", "thwomp", "hammerBro"}, ids(ps))
}

func TestLoadArchetypes_MissingFile(t *testing.T) {
	_, err := LoadArchetypes(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseArchetypes_MergesIntoDefaults(t *testing.T) {
	ps, err := ParseArchetypes([]byte(`
archetypes:
  - id: goomba
    name: Angry Goomba
    behavior: patrol
    aggression: 0.9
    intelligence: 0.2
    awareness: 0.5
    evasion: 0.1
  - id: spiny
    name: Spiny
    behavior: defensive
    aggression: 0.4
    intelligence: 0.3
    awareness: 0.5
    evasion: 0.2
    patterns: [defend, counter]
    reactions:
      damage: counter
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"goomba", "koopa", "piranha", "thwomp", "hammerBro", "spiny"}, ids(ps))
	assert.Equal(t, "Angry Goomba", ps[0].Name)
	assert.Equal(t, 0.9, ps[0].Aggression)
	assert.Equal(t, ai.BehaviorDefensive, ps[5].Behavior)
	assert.Equal(t, map[string]string{"damage": "counter"}, ps[5].Reactions)
}

func TestParseArchetypes_ReplaceDefaults(t *testing.T) {
	ps, err := ParseArchetypes([]byte(`
replace_defaults: true
archetypes:
  - {id: blooper, behavior: predator, aggression: 0.5, intelligence: 0.5, awareness: 0.5, evasion: 0.5}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"blooper"}, ids(ps))
}

func TestParseArchetypes_Empty(t *testing.T) {
	ps, err := ParseArchetypes(nil)
	require.NoError(t, err)
	assert.Len(t, ps, 5)
}

func TestParseArchetypes_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "archetypes:\n  - {id: a, speed: 3}\n",
		"trait range":   "archetypes:\n  - {id: a, aggression: 1.5}\n",
		"missing id":    "archetypes:\n  - {name: nobody}\n",
		"duplicate":     "archetypes:\n  - {id: a}\n  - {id: a}\n",
		"bad yaml":      "archetypes: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseArchetypes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSampleArchetypesFile(t *testing.T) {
	ps, err := LoadArchetypes(filepath.Join("..", "data", "archetypes.yaml"))
	require.NoError(t, err)
	lib := ai.NewLibrary(ps, nil)
	for _, id := range ids(ps) {
		tree, err := lib.Tree(id)
		require.NoError(t, err, id)
		assert.NotNil(t, tree.Root, id)
	}
}
