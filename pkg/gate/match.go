package gate

import "strings"

// matchPath reports whether a stored API pattern matches a concrete
// request path. Pattern segments of the form {name} match exactly one path
// segment; everything else matches literally. Trailing slashes are
// significant on both sides, matching the upstream admin API convention.
func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "{") {
		return false
	}
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	if len(patternParts) != len(pathParts) {
		return false
	}
	for i, pp := range patternParts {
		if strings.HasPrefix(pp, "{") && strings.HasSuffix(pp, "}") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if pp != pathParts[i] {
			return false
		}
	}
	return true
}
