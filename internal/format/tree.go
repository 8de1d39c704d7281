package format

// FlattenTree returns the nodes depth-first, each parent before its children.
func FlattenTree[T any](nodes []T, children func(T) []T) []T {
	var out []T
	var walk func([]T)
	walk = func(ns []T) {
		for _, n := range ns {
			out = append(out, n)
			if kids := children(n); len(kids) > 0 {
				walk(kids)
			}
		}
	}
	walk(nodes)
	return out
}
