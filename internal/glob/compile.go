// Package glob compiles wildcard path patterns into matchers.
//
// The pattern language covers `*` (any run within one segment), `**` (any
// number of whole segments), `?` (one character), `[...]` character classes
// with ranges and `!`/`^` negation, `{a,b}` alternation, backslash escapes,
// and a leading `!` that negates the whole pattern. Patterns are compiled by
// a single left-to-right scan that emits an equivalent RE2 fragment per
// token; the whole expression is anchored and handed to the standard regexp
// engine, which guarantees linear-time matching.
package glob

import (
	"fmt"
	"regexp"
	"strings"
)

// Options controls pattern compilation.
type Options struct {
	// NoCase makes matching case-insensitive.
	NoCase bool
	// Dot allows `*`, `**` and `?` to match dot-prefixed segments.
	Dot bool
}

// Compiled is a compiled pattern. The matcher is stateless and safe for
// concurrent reuse.
type Compiled struct {
	Pattern string
	Negated bool
	re      *regexp.Regexp
}

// Compile compiles a pattern. A leading `!` marks the pattern as negated
// and is not part of the matched text. Malformed `[` and `{` constructs
// degrade to literal characters rather than failing.
func Compile(pattern string, opts Options) (*Compiled, error) {
	negated := false
	body := pattern
	if strings.HasPrefix(body, "!") {
		negated = true
		body = body[1:]
	}

	frag := translate(body, opts, true)
	expr := "^" + frag + "$"
	if opts.NoCase {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("glob: compile %q: %w", pattern, err)
	}

	return &Compiled{Pattern: pattern, Negated: negated, re: re}, nil
}

// MustCompile is Compile that panics on error, for fixed patterns.
func MustCompile(pattern string, opts Options) *Compiled {
	c, err := Compile(pattern, opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Match reports whether the path matches the pattern body. Negation is not
// applied here; callers combine it via Matcher. A leading slash is ignored
// so that absolute and relative spellings agree.
func (c *Compiled) Match(path string) bool {
	return c.re.MatchString(strings.TrimPrefix(path, "/"))
}

// segFrag returns the fragment for "any run of characters within one
// segment", honoring the dot rule at segment starts.
func segFrag(opts Options, atSegStart bool) string {
	if atSegStart && !opts.Dot {
		return "(?:[^/.][^/]*)?"
	}
	return "[^/]*"
}

// translate emits the regex fragment for one pattern body. atSegStart tracks
// whether the scan position is at the beginning of a path segment, which
// decides how wildcards treat dotfiles.
func translate(pattern string, opts Options, atSegStart bool) string {
	var sb strings.Builder
	i := 0
	n := len(pattern)

	for i < n {
		ch := pattern[i]
		switch ch {
		case '\\':
			if i+1 < n {
				sb.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				sb.WriteString(regexp.QuoteMeta("\\"))
				i++
			}
			atSegStart = false

		case '/':
			sb.WriteByte('/')
			i++
			atSegStart = true

		case '*':
			run := 0
			for i+run < n && pattern[i+run] == '*' {
				run++
			}
			prevBoundary := atSegStart
			nextSlash := i+run < n && pattern[i+run] == '/'
			nextEnd := i+run == n

			if run == 2 && prevBoundary && (nextSlash || nextEnd) {
				// Globstar: zero or more whole segments.
				if nextSlash {
					sb.WriteString("(?:" + segFrag(opts, true) + "/)*")
					i += run + 1
					atSegStart = true
				} else {
					sb.WriteString(segFrag(opts, true) + "(?:/" + segFrag(opts, true) + ")*")
					i += run
					atSegStart = false
				}
			} else {
				// Any other star run collapses to a single within-segment run.
				sb.WriteString(segFrag(opts, atSegStart))
				i += run
				atSegStart = false
			}

		case '?':
			if atSegStart && !opts.Dot {
				sb.WriteString("[^/.]")
			} else {
				sb.WriteString("[^/]")
			}
			i++
			atSegStart = false

		case '[':
			frag, consumed := translateClass(pattern[i:])
			if consumed == 0 {
				sb.WriteString(regexp.QuoteMeta("["))
				i++
			} else {
				sb.WriteString(frag)
				i += consumed
			}
			atSegStart = false

		case '{':
			alts, consumed := splitAlternation(pattern[i:])
			if consumed == 0 {
				sb.WriteString(regexp.QuoteMeta("{"))
				i++
			} else {
				frags := make([]string, len(alts))
				for j, alt := range alts {
					frags[j] = translate(alt, opts, atSegStart)
				}
				sb.WriteString("(?:" + strings.Join(frags, "|") + ")")
				i += consumed
			}
			atSegStart = false

		default:
			sb.WriteString(regexp.QuoteMeta(string(ch)))
			i++
			atSegStart = false
		}
	}

	return sb.String()
}

// translateClass translates a `[...]` class starting at s[0] == '['.
// It returns the emitted fragment and the number of bytes consumed, or
// (_, 0) when the class is unterminated.
func translateClass(s string) (string, int) {
	i := 1
	negated := false
	if i < len(s) && (s[i] == '!' || s[i] == '^') {
		negated = true
		i++
	}

	var body strings.Builder
	closed := false
	for i < len(s) {
		ch := s[i]
		if ch == ']' && body.Len() > 0 {
			closed = true
			i++
			break
		}
		if ch == '\\' && i+1 < len(s) {
			body.WriteString(regexp.QuoteMeta(string(s[i+1])))
			i += 2
			continue
		}
		switch ch {
		case '-':
			body.WriteByte(ch)
		case ']', '^', '\\':
			body.WriteByte('\\')
			body.WriteByte(ch)
		default:
			body.WriteString(regexp.QuoteMeta(string(ch)))
		}
		i++
	}
	if !closed {
		return "", 0
	}

	if negated {
		// A negated class never crosses a segment boundary.
		return "[^/" + body.String() + "]", i
	}
	return "[" + body.String() + "]", i
}

// splitAlternation splits a `{a,b,c}` group starting at s[0] == '{' into its
// top-level alternatives, honoring nesting and escapes. It returns the
// alternatives and the number of bytes consumed, or (nil, 0) when the group
// is unterminated.
func splitAlternation(s string) ([]string, int) {
	depth := 0
	var alts []string
	start := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				alts = append(alts, s[start:i])
				return alts, i + 1
			}
		case ',':
			if depth == 1 {
				alts = append(alts, s[start:i])
				start = i + 1
			}
		}
	}
	return nil, 0
}
