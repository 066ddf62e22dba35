package ir

// Walk visits op and every op nested in it in pre-order. If fn returns
// false the children of that op are skipped.
func Walk(op Operation, fn func(op Operation, depth int) bool) {
	walk(op, 0, fn)
}

func walk(op Operation, depth int, fn func(Operation, int) bool) {
	if !fn(op, depth) {
		return
	}
	for _, region := range op.Regions() {
		for _, nested := range region.Operations() {
			walk(nested, depth+1, fn)
		}
	}
}

// Count returns the number of ops in the tree rooted at op, op included.
func Count(op Operation) int {
	n := 0
	Walk(op, func(Operation, int) bool {
		n++
		return true
	})
	return n
}

// Depth returns the nesting depth of the tree rooted at op. A leaf has
// depth 0.
func Depth(op Operation) int {
	deepest := 0
	Walk(op, func(_ Operation, depth int) bool {
		if depth > deepest {
			deepest = depth
		}
		return true
	})
	return deepest
}
