package crawl

import (
	"fmt"

	yaml "go.yaml.in/yaml/v3"
)

// Kind tags the two node variants of the crawl tree.
type Kind string

const (
	KindTask Kind = "task"
	KindData Kind = "data"
)

// State is the lifecycle state of a task node.
//
// A node is created waiting, and becomes done when its template invocation
// commits, or fail when the invocation errors. Waiting and fail nodes are
// re-dispatchable on resume; done is final.
type State string

const (
	StateWaiting State = "waiting"
	StateDone    State = "done"
	StateFail    State = "fail"
)

// Node is one vertex of the crawl tree.
//
// Task nodes (Kind == KindTask) carry Template, URL, State and an ordered
// Children slice. Data nodes (Kind == KindData) carry only Data and are
// always leaves. Data payloads are treated as immutable values: Clone and
// the YAML codec copy the structure deeply but share payload values.
type Node struct {
	Kind     Kind
	State    State
	Template string
	URL      string
	Data     any
	Children []*Node
}

// Wire shapes for the snapshot format. Kept separate from Node so each
// kind serializes with exactly its own keys.
type taskNodeYAML struct {
	Kind     Kind    `yaml:"kind"`
	State    State   `yaml:"state"`
	Template string  `yaml:"template"`
	URL      string  `yaml:"url"`
	Children []*Node `yaml:"children"`
}

type dataNodeYAML struct {
	Kind Kind `yaml:"kind"`
	Data any  `yaml:"data"`
}

func (n *Node) MarshalYAML() (any, error) {
	switch n.Kind {
	case KindTask:
		children := n.Children
		if children == nil {
			children = []*Node{}
		}
		return taskNodeYAML{
			Kind:     KindTask,
			State:    n.State,
			Template: n.Template,
			URL:      n.URL,
			Children: children,
		}, nil
	case KindData:
		return dataNodeYAML{Kind: KindData, Data: n.Data}, nil
	default:
		return nil, fmt.Errorf("cannot serialize node kind %q", n.Kind)
	}
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var probe struct {
		Kind Kind `yaml:"kind"`
	}
	if err := value.Decode(&probe); err != nil {
		return err
	}

	switch probe.Kind {
	case KindTask:
		var t taskNodeYAML
		if err := value.Decode(&t); err != nil {
			return err
		}
		switch t.State {
		case StateWaiting, StateDone, StateFail:
		default:
			return fmt.Errorf("invalid task state %q", t.State)
		}
		*n = Node{Kind: KindTask, State: t.State, Template: t.Template, URL: t.URL, Children: t.Children}
		return nil
	case KindData:
		var d dataNodeYAML
		if err := value.Decode(&d); err != nil {
			return err
		}
		*n = Node{Kind: KindData, Data: d.Data}
		return nil
	default:
		return fmt.Errorf("unknown node kind %q", probe.Kind)
	}
}

// Clone returns a deep copy of the subtree rooted at n. The copy shares no
// Node values with the original, so the caller can never observe a torn
// read while the live tree keeps mutating. Iterative; depth-safe.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Kind: n.Kind, State: n.State, Template: n.Template, URL: n.URL, Data: n.Data}
	type frame struct{ src, dst *Node }
	stack := []frame{{n, cp}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(f.src.Children) == 0 {
			continue
		}
		f.dst.Children = make([]*Node, len(f.src.Children))
		for i, c := range f.src.Children {
			cc := &Node{Kind: c.Kind, State: c.State, Template: c.Template, URL: c.URL, Data: c.Data}
			f.dst.Children[i] = cc
			stack = append(stack, frame{c, cc})
		}
	}
	return cp
}
