package compose

// visitedSet is an immutable linked set of file paths. Entering a file
// prepends a node, so sibling branches never see each other's entries.
type visitedSet struct {
	path   string
	parent *visitedSet
}

func (v *visitedSet) contains(p string) bool {
	for n := v; n != nil; n = n.parent {
		if n.path == p {
			return true
		}
	}
	return false
}

// Context is the resolution state of one branch of the reference graph.
// It is a value: stepping into a referenced file returns a new Context and
// leaves the receiver unchanged.
type Context struct {
	CurrentFilePath string

	visited *visitedSet
	depth   int // reference hops from the root file
}

// NewContext starts resolution at the given file, which counts as visited
// so that a file referencing itself is reported as circular.
func NewContext(filePath string) Context {
	p := ResolveAssetPath(filePath, "/")
	return Context{
		CurrentFilePath: p,
		visited:         &visitedSet{path: p},
	}
}

// Visited reports whether absPath is already on this resolution branch.
func (c Context) Visited(absPath string) bool {
	return c.visited.contains(absPath)
}

// VisitedPaths lists the branch from the current file back to the root.
func (c Context) VisitedPaths() []string {
	var out []string
	for n := c.visited; n != nil; n = n.parent {
		out = append(out, n.path)
	}
	return out
}

// Depth is the number of reference hops from the root file.
func (c Context) Depth() int {
	return c.depth
}

func (c Context) enter(absPath string) Context {
	return Context{
		CurrentFilePath: absPath,
		visited:         &visitedSet{path: absPath, parent: c.visited},
		depth:           c.depth + 1,
	}
}
