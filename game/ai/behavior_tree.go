package ai

// Status is the result of a behavior tree node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Node is a single node in a behavior tree. The set of node kinds is closed:
// only the types in this file implement it.
type Node interface {
	node()
}

// ---- Composite nodes ----

// Sequence runs its children in order and fails on the first failure.
// A Running child does not stop the sequence: later children still run in the
// same tick and the sequence reports Success once every child has run.
type Sequence struct {
	Name     string
	Children []Node
}

// Selector succeeds as soon as one child succeeds (logical OR).
type Selector struct {
	Name     string
	Children []Node
}

// Parallel runs every child each tick. Any failure fails the node; otherwise
// it is Running while at least one child is still running.
type Parallel struct {
	Name     string
	Children []Node
}

// ---- Leaf nodes ----

// Condition evaluates a predicate. OnTrue, if set, fires only when the
// predicate holds. Neither may touch entity kinematics.
type Condition struct {
	Name   string
	Check  func(e *Entity, ctx *Context) bool
	OnTrue func(e *Entity, ctx *Context)
}

// Action executes one step of a behavior and reports its status.
type Action struct {
	Name string
	Run  func(e *Entity, ctx *Context) Status
}

func (*Sequence) node()  {}
func (*Selector) node()  {}
func (*Parallel) node()  {}
func (*Condition) node() {}
func (*Action) node()    {}

// NewSequence builds a Sequence node.
func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{Name: name, Children: children}
}

// NewSelector builds a Selector node.
func NewSelector(name string, children ...Node) *Selector {
	return &Selector{Name: name, Children: children}
}

// NewParallel builds a Parallel node.
func NewParallel(name string, children ...Node) *Parallel {
	return &Parallel{Name: name, Children: children}
}

// Evaluate runs one tick of node against e. A nil or unrecognized node fails.
func Evaluate(node Node, e *Entity, ctx *Context) Status {
	switch n := node.(type) {
	case *Sequence:
		return evalSequence(n, e, ctx)
	case *Selector:
		return evalSelector(n, e, ctx)
	case *Parallel:
		return evalParallel(n, e, ctx)
	case *Condition:
		return evalCondition(n, e, ctx)
	case *Action:
		return evalAction(n, e, ctx)
	default:
		return StatusFailure
	}
}

func evalSequence(n *Sequence, e *Entity, ctx *Context) Status {
	if n == nil {
		return StatusFailure
	}
	for _, c := range n.Children {
		if Evaluate(c, e, ctx) == StatusFailure {
			return StatusFailure
		}
	}
	return StatusSuccess
}

func evalSelector(n *Selector, e *Entity, ctx *Context) Status {
	if n == nil {
		return StatusFailure
	}
	for _, c := range n.Children {
		if Evaluate(c, e, ctx) == StatusSuccess {
			return StatusSuccess
		}
	}
	return StatusFailure
}

func evalParallel(n *Parallel, e *Entity, ctx *Context) Status {
	if n == nil {
		return StatusFailure
	}
	running := 0
	for _, c := range n.Children {
		switch Evaluate(c, e, ctx) {
		case StatusFailure:
			return StatusFailure
		case StatusRunning:
			running++
		}
	}
	if running > 0 {
		return StatusRunning
	}
	return StatusSuccess
}

func evalCondition(n *Condition, e *Entity, ctx *Context) Status {
	if n == nil || n.Check == nil {
		return StatusFailure
	}
	if !n.Check(e, ctx) {
		return StatusFailure
	}
	if n.OnTrue != nil {
		n.OnTrue(e, ctx)
	}
	return StatusSuccess
}

func evalAction(n *Action, e *Entity, ctx *Context) Status {
	if n == nil || n.Run == nil {
		return StatusFailure
	}
	return n.Run(e, ctx)
}

// ---- BehaviorTree root ----

// BehaviorTree is a stateless template built once per archetype.
// Per-entity data lives on the Entity, never on the tree.
type BehaviorTree struct {
	Name    string
	Root    Node
	Profile *ArchetypeProfile
}

// Tick runs one frame of the behavior tree for e.
func (bt *BehaviorTree) Tick(e *Entity, ctx *Context) Status {
	if bt == nil || bt.Root == nil {
		return StatusFailure
	}
	return Evaluate(bt.Root, e, ctx)
}
