package policy

import "regexp"

// matchKind distinguishes the matching strategies.
type matchKind int

const (
	kindExact    matchKind = iota // highest priority
	kindPrefix                    // medium priority
	kindWildcard                  // '*' patterns
	kindRegex                     // lowest priority
)

// rule is a single matching rule inside a group.
type rule struct {
	kind    matchKind
	pattern string         // used for exact, prefix and wildcard matches
	re      *regexp.Regexp // used for regex matches
}

// GroupBuilder constructs a method group with one or more matching rules and
// the model that applies to every method the group matches.
type GroupBuilder[M Model] struct {
	name  string
	rules []rule
	types []string
	model *M
}

// Group starts building a new method group with the given name.
func Group[M Model](name string) *GroupBuilder[M] {
	return &GroupBuilder[M]{name: name}
}

// Exact adds an exact-match rule for pattern.
func (g *GroupBuilder[M]) Exact(pattern string) *GroupBuilder[M] {
	g.rules = append(g.rules, rule{kind: kindExact, pattern: pattern})
	return g
}

// Prefix adds a prefix-match rule for pattern.
func (g *GroupBuilder[M]) Prefix(pattern string) *GroupBuilder[M] {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: pattern})
	return g
}

// Wildcard adds a rule where '*' stands for any run of characters, as in
// "get*", "*ById" or "users.Repo.*".
func (g *GroupBuilder[M]) Wildcard(pattern string) *GroupBuilder[M] {
	g.rules = append(g.rules, rule{kind: kindWildcard, pattern: pattern})
	return g
}

// Regex adds a regex-match rule for pattern.
// The pattern is compiled immediately; an invalid regex will panic.
func (g *GroupBuilder[M]) Regex(pattern string) *GroupBuilder[M] {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern)})
	return g
}

// Type applies the group's model to every method declared on the named
// types. Type rules are consulted only after no method rule matched.
func (g *GroupBuilder[M]) Type(typeNames ...string) *GroupBuilder[M] {
	g.types = append(g.types, typeNames...)
	return g
}

// Model attaches the model to the group and returns the finished builder.
func (g *GroupBuilder[M]) Model(m M) *GroupBuilder[M] {
	g.model = &m
	return g
}

// Name returns the group name.
func (g *GroupBuilder[M]) Name() string { return g.name }
