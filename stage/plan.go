package stage

import "strings"

// ActionKind is one filesystem step of a reconciliation.
type ActionKind int

const (
	ActionRemoveTree ActionKind = iota
	ActionRemoveLink
	ActionLink
	ActionCopy
)

func (k ActionKind) String() string {
	switch k {
	case ActionRemoveTree:
		return "remove-tree"
	case ActionRemoveLink:
		return "remove-link"
	case ActionLink:
		return "link"
	case ActionCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Action is a single planned step against the target.
type Action struct {
	Kind ActionKind
}

// Plan is the ordered action list that moves a target into Next.
type Plan struct {
	Actions []Action
	Next    TargetState
}

// Noop reports whether the plan leaves the target untouched.
func (p Plan) Noop() bool {
	return len(p.Actions) == 0
}

// Removes reports whether the plan deletes anything.
func (p Plan) Removes() bool {
	for _, a := range p.Actions {
		if a.Kind == ActionRemoveTree || a.Kind == ActionRemoveLink {
			return true
		}
	}
	return false
}

func (p Plan) String() string {
	if p.Noop() {
		return "noop"
	}
	kinds := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		kinds[i] = a.Kind.String()
	}
	return strings.Join(kinds, ",")
}

// PlanReconcile computes the actions that bring a target in state current to the
// form required by strategy for the canonical source directory source.
// It performs no I/O.
//
// Symlink mode keeps a link that already resolves to source and replaces anything
// else. Copy mode always removes what is there and copies afresh.
func PlanReconcile(current TargetState, strategy Strategy, source string) Plan {
	var actions []Action
	add := func(k ActionKind) { actions = append(actions, Action{Kind: k}) }

	switch strategy {
	case StrategyCopy:
		switch current.Kind {
		case TargetLinked:
			add(ActionRemoveLink)
		case TargetCopied:
			add(ActionRemoveTree)
		}
		add(ActionCopy)
		return Plan{Actions: actions, Next: Copied()}

	default:
		switch current.Kind {
		case TargetCopied:
			add(ActionRemoveTree)
			add(ActionLink)
		case TargetLinked:
			if current.Source != source {
				add(ActionRemoveLink)
				add(ActionLink)
			}
		case TargetAbsent:
			add(ActionLink)
		}
		return Plan{Actions: actions, Next: Linked(source)}
	}
}
