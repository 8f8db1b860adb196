package crawl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTree() *Node {
	return &Node{
		Kind: KindTask, State: StateDone, Template: "root", URL: "a",
		Children: []*Node{
			{Kind: KindData, Data: 1},
			{
				Kind: KindTask, State: StateDone, Template: "leaf", URL: "b",
				Children: []*Node{
					{Kind: KindData, Data: "two"},
				},
			},
			{Kind: KindTask, State: StateFail, Template: "leaf", URL: "c"},
		},
	}
}

func TestWalkDepthFirstLeftToRight(t *testing.T) {
	t.Parallel()
	var urls []string
	var payloads []any
	Walk(sampleTree(), func(n *Node) {
		switch n.Kind {
		case KindTask:
			urls = append(urls, n.URL)
		case KindData:
			payloads = append(payloads, n.Data)
		}
	})

	if diff := cmp.Diff([]string{"a", "b", "c"}, urls); diff != "" {
		t.Fatalf("task visit order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{1, "two"}, payloads); diff != "" {
		t.Fatalf("payload order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkDeepTree(t *testing.T) {
	t.Parallel()
	// A pathological chain; a recursive walker would blow the stack.
	const depth = 200_000
	root := &Node{Kind: KindTask, State: StateDone, Template: "t", URL: "u0"}
	cur := root
	for i := 1; i < depth; i++ {
		child := &Node{Kind: KindTask, State: StateDone, Template: "t"}
		cur.Children = []*Node{child}
		cur = child
	}

	visited := 0
	Walk(root, func(*Node) { visited++ })
	if visited != depth {
		t.Fatalf("visited %d nodes, want %d", visited, depth)
	}
}

func TestWalkNilRoot(t *testing.T) {
	t.Parallel()
	Walk(nil, func(*Node) { t.Fatal("visited a node of a nil tree") })
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()
	orig := sampleTree()
	cp := orig.Clone()

	if diff := cmp.Diff(orig, cp); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	// Mutating the clone must not show through.
	cp.State = StateWaiting
	cp.Children[1].Children[0].Data = "changed"
	cp.Children = append(cp.Children, &Node{Kind: KindData, Data: 9})

	if orig.State != StateDone {
		t.Fatal("clone mutation leaked into original state")
	}
	if orig.Children[1].Children[0].Data != "two" {
		t.Fatal("clone mutation leaked into original payload slot")
	}
	if len(orig.Children) != 3 {
		t.Fatal("clone mutation leaked into original children")
	}
}

func TestCloneNil(t *testing.T) {
	t.Parallel()
	var n *Node
	if n.Clone() != nil {
		t.Fatal("nil clone should stay nil")
	}
}

func TestCollectResults(t *testing.T) {
	t.Parallel()
	res := collectResults(sampleTree())
	if diff := cmp.Diff([]any{1, "two"}, res.List); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if res.Complete {
		t.Fatal("tree with a fail node reported complete")
	}

	res = collectResults(nil)
	if len(res.List) != 0 || res.Complete {
		t.Fatalf("empty tree results: %+v", res)
	}
}
