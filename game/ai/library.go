package ai

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	// ErrNoConstructor is returned when a profile names a behavior kind no
	// tree constructor is registered for.
	ErrNoConstructor = errors.New("ai: no tree constructor for behavior")
	// ErrUnknownArchetype is returned when no profile has the requested id.
	ErrUnknownArchetype = errors.New("ai: unknown archetype")
)

// TreeBuilder builds the root node for a profile.
type TreeBuilder func(p *ArchetypeProfile) Node

var builders = map[BehaviorKind]TreeBuilder{
	BehaviorPatrol:    buildPatrol,
	BehaviorDefensive: buildDefensive,
	BehaviorPredator:  buildPredator,
	BehaviorTrap:      buildTrap,
	BehaviorRanged:    buildRanged,
}

// BuildTree builds the tree for p. When the behavior kind has no constructor
// the tree is still returned, with a nil root, alongside ErrNoConstructor.
func BuildTree(p *ArchetypeProfile) (*BehaviorTree, error) {
	tree := &BehaviorTree{Name: p.Name + "_BehaviorTree", Profile: p}
	build, ok := builders[p.Behavior]
	if !ok {
		return tree, fmt.Errorf("%w %q (archetype %q)", ErrNoConstructor, p.Behavior, p.ID)
	}
	tree.Root = build(p)
	return tree, nil
}

// Library holds one tree per archetype, built once at startup.
type Library struct {
	trees  map[string]*BehaviorTree
	logger *zap.Logger
}

// NewLibrary builds a tree for every profile. Invalid profiles are skipped;
// profiles without a constructor keep a nil-root tree. Both are logged here,
// once, rather than on every tick.
func NewLibrary(profiles []*ArchetypeProfile, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	lib := &Library{trees: make(map[string]*BehaviorTree, len(profiles)), logger: logger}
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			logger.Warn("skipping invalid archetype", zap.Error(err))
			continue
		}
		tree, err := BuildTree(p)
		if err != nil {
			logger.Warn("archetype has no behavior tree",
				zap.String("archetype", p.ID),
				zap.String("behavior", string(p.Behavior)),
				zap.Error(err))
		}
		lib.trees[p.ID] = tree
	}
	return lib
}

// Tree returns the tree for an archetype id.
func (l *Library) Tree(id string) (*BehaviorTree, error) {
	tree, ok := l.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownArchetype, id)
	}
	return tree, nil
}

// Archetypes returns the registered archetype ids in sorted order.
func (l *Library) Archetypes() []string {
	ids := make([]string, 0, len(l.trees))
	for id := range l.trees {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
