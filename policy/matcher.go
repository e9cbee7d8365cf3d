package policy

import "strings"

// match reports whether r matches name and, when applicable, returns the
// length of the matched portion (used for tie-breaking among same-kind rules).
func (r *rule) match(name string) (matched bool, length int) {
	switch r.kind {
	case kindExact:
		if name == r.pattern {
			return true, len(r.pattern)
		}
	case kindPrefix:
		if strings.HasPrefix(name, r.pattern) {
			return true, len(r.pattern)
		}
	case kindWildcard:
		if wildcardMatch(r.pattern, name) {
			return true, len(r.pattern) - strings.Count(r.pattern, "*")
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(name); loc != nil {
			return true, loc[1] - loc[0]
		}
	}
	return false, 0
}

// matchMethod matches r against a method given its bare and qualified
// names. Exact, prefix and wildcard patterns containing a '.' target the
// qualified name. A regex is tried against the bare name first and then
// against the qualified one, since '.' is a metacharacter there.
func (r *rule) matchMethod(name, full string) (matched bool, length int) {
	if r.kind == kindRegex {
		if ok, n := r.match(name); ok {
			return ok, n
		}
		return r.match(full)
	}
	if strings.Contains(r.pattern, ".") {
		return r.match(full)
	}
	return r.match(name)
}

// wildcardMatch matches s against a pattern in which '*' stands for any
// (possibly empty) run of characters.
func wildcardMatch(pattern, s string) bool {
	first := strings.IndexByte(pattern, '*')
	if first < 0 {
		return pattern == s
	}
	if !strings.HasPrefix(s, pattern[:first]) {
		return false
	}
	s = s[first:]
	parts := strings.Split(pattern[first+1:], "*")
	last := parts[len(parts)-1]
	for _, part := range parts[:len(parts)-1] {
		i := strings.Index(s, part)
		if i < 0 {
			return false
		}
		s = s[i+len(part):]
	}
	return strings.HasSuffix(s, last)
}
