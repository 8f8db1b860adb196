package crawl

// Walk visits root and every descendant exactly once, depth-first and
// left-to-right. It uses an explicit stack; crawl trees can get deep
// enough that recursion is not an option.
func Walk(root *Node, visit func(*Node)) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Results is a point-in-time view of a run's output: every data payload in
// visitation order, and whether every task node has completed.
type Results struct {
	List     []any
	Complete bool
}

func collectResults(root *Node) Results {
	res := Results{List: []any{}}
	if root == nil {
		return res
	}
	complete := true
	Walk(root, func(n *Node) {
		switch n.Kind {
		case KindData:
			res.List = append(res.List, n.Data)
		case KindTask:
			if n.State != StateDone {
				complete = false
			}
		}
	})
	res.Complete = complete
	return res
}
