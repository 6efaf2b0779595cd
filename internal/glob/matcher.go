package glob

// Matcher combines several compiled patterns into one include/exclude set.
// A path matches when it satisfies at least one include pattern (or the set
// has none) and no negated pattern.
type Matcher struct {
	includes []*Compiled
	excludes []*Compiled
}

// NewMatcher compiles every pattern with shared options. Patterns with a
// leading `!` become excludes.
func NewMatcher(patterns []string, opts Options) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		c, err := Compile(p, opts)
		if err != nil {
			return nil, err
		}
		if c.Negated {
			m.excludes = append(m.excludes, c)
		} else {
			m.includes = append(m.includes, c)
		}
	}
	return m, nil
}

// Match reports whether the path passes the include/exclude set.
func (m *Matcher) Match(path string) bool {
	if len(m.includes) > 0 {
		matched := false
		for _, c := range m.includes {
			if c.Match(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, c := range m.excludes {
		if c.Match(path) {
			return false
		}
	}
	return true
}
