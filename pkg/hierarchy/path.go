// Package hierarchy parses org hierarchy paths and picks the responsible
// manager among candidates.
package hierarchy

import "strings"

// Separator joins unit codes in a stored hierarchy path, most senior unit
// first and the employee's own unit last.
const Separator = " > "

// Path is an ordered list of unit codes.
type Path []string

// ParsePath splits a stored hierarchy path into unit codes. Codes are
// trimmed and empty segments dropped, so malformed input degrades to a
// shorter path instead of an error.
func ParsePath(raw string) Path {
	parts := strings.Split(raw, Separator)
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		path = append(path, code)
	}
	return path
}

// Level returns the depth of the path.
func (p Path) Level() int {
	return len(p)
}

// OwnUnit returns the last unit code, the unit the path's owner sits in.
func (p Path) OwnUnit() (string, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[len(p)-1], true
}

// ParentUnit returns the second-to-last unit code, the unit whose
// responsible account is the path owner's manager. A path with fewer than
// two units has no parent.
func (p Path) ParentUnit() (string, bool) {
	if len(p) < 2 {
		return "", false
	}
	return p[len(p)-2], true
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}

// MostSpecific returns the index of the candidate path that sits deepest in
// the hierarchy: most unit codes wins, raw string length breaks ties.
// Returns -1 for an empty slice.
func MostSpecific(candidates []string) int {
	best := -1
	bestLevel, bestLen := -1, -1
	for i, raw := range candidates {
		level := ParsePath(raw).Level()
		if level > bestLevel || (level == bestLevel && len(raw) > bestLen) {
			best, bestLevel, bestLen = i, level, len(raw)
		}
	}
	return best
}
