package cw

// Visitor's Visit method is invoked for each node encountered by Walk. If the
// result visitor w is not nil, Walk visits each of the children of node with
// w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. Expression keys are visited
// before their values; conditional keys before their items.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Module:
		walkItems(v, n.Items)
	case *Expression:
		Walk(v, n.Key)
		Walk(v, n.Value)
	case *BareValue:
		Walk(v, n.Value)
	case *Conditional:
		Walk(v, n.Key)
		walkItems(v, n.Items)
	case *Entity:
		walkItems(v, n.Items)
	case *Color:
		for _, c := range n.Components {
			Walk(v, c)
		}
	case *String, *Number, *Maths:
		// leaves
	}

	v.Visit(nil)
}

func walkItems(v Visitor, items []Item) {
	for _, it := range items {
		Walk(v, it)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}

	return nil
}

// Inspect traverses an AST in depth-first order, calling f for each node. If
// f returns true, Inspect continues into the node's children, and then calls
// f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// Path returns the chain of nodes from root down to the innermost node whose
// span contains offset. The first element is root. Spans are half-open, except
// that a cursor at the very end of a leaf still selects it so that hovering
// just after a word works.
func Path(root Node, offset int) []Node {
	var path []Node

	Inspect(root, func(n Node) bool {
		if n == nil {
			return false
		}

		sp := n.Span()
		if _, isModule := n.(*Module); !isModule {
			inside := sp.Contains(offset)
			if !inside && isLeaf(n) && offset == sp.End.Offset {
				inside = true
			}

			if !inside {
				return false
			}
		}

		path = append(path, n)

		return true
	})

	return path
}

func isLeaf(n Node) bool {
	switch n.(type) {
	case *String, *Number, *Maths:
		return true
	}

	return false
}
