// Package search provides line-oriented regex search over the virtual
// filesystem.
//
// Candidate files come from a glob, visited in lexical order with lines in
// file order, so match order is deterministic for a fixed file set. Matching
// is first-match-per-line; patterns run on the standard RE2 engine, which
// keeps scan cost linear in the input no matter what pattern an agent
// supplies. Files that vanish or fail to read mid-scan are skipped
// silently: partial scans are expected.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/glob"
	"github.com/agentfs/agentfs/internal/vfs"
)

const (
	// defaultGlob selects candidate files when no glob is given.
	defaultGlob = "**/*"

	// binarySampleSize and binaryNulThreshold implement the binary-file
	// heuristic: more than 10 NUL bytes in the first 8 KiB means binary.
	binarySampleSize   = 8192
	binaryNulThreshold = 10
)

// PatternError reports an invalid search pattern. It fails the whole call,
// never a single file.
type PatternError struct {
	Pattern string
	cause   error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("search: invalid pattern %q: %v", e.Pattern, e.cause)
}

func (e *PatternError) Unwrap() error {
	return e.cause
}

// Options controls one search call.
type Options struct {
	// Glob restricts candidate files; empty means every file.
	Glob string
	// IgnoreCase makes matching case-insensitive.
	IgnoreCase bool
	// MaxResults stops the whole scan once this many matches are
	// collected; zero or negative means unbounded.
	MaxResults int
	// ContextLines attaches up to this many lines of context before and
	// after each match, clipped at file boundaries.
	ContextLines int
}

// MatchContext carries surrounding lines of one match.
type MatchContext struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// Match is one matched line. Line and Column are 1-indexed.
type Match struct {
	File    string        `json:"file"`
	Line    int           `json:"line"`
	Column  int           `json:"column"`
	Content string        `json:"content"`
	Context *MatchContext `json:"context,omitempty"`
}

// Engine searches file content through the virtual filesystem.
type Engine struct {
	fs     *vfs.FS
	logger *zap.Logger
}

// New creates a search engine over a filesystem.
func New(fs *vfs.FS, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{fs: fs, logger: logger}
}

// Grep collects matches for one pattern.
func (e *Engine) Grep(ctx context.Context, pattern string, opts Options) ([]Match, error) {
	var out []Match
	err := e.GrepStream(ctx, pattern, opts, func(m Match) {
		out = append(out, m)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GrepStream runs the same scan as Grep but pushes each match to the sink
// as soon as it is found.
func (e *Engine) GrepStream(ctx context.Context, pattern string, opts Options, sink func(Match)) error {
	re, err := compilePattern(pattern, opts.IgnoreCase)
	if err != nil {
		return err
	}
	return e.scan(ctx, []*regexp.Regexp{re}, opts, sink)
}

// GrepAny collects matches for the OR of several patterns. Any invalid
// pattern fails the whole call.
func (e *Engine) GrepAny(ctx context.Context, patterns []string, opts Options) ([]Match, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compilePattern(p, opts.IgnoreCase)
		if err != nil {
			return nil, err
		}
		regexes = append(regexes, re)
	}

	var out []Match
	if err := e.scan(ctx, regexes, opts, func(m Match) { out = append(out, m) }); err != nil {
		return nil, err
	}
	return out, nil
}

// GrepFiles returns the distinct file paths containing a match, in scan
// order.
func (e *Engine) GrepFiles(ctx context.Context, pattern string, opts Options) ([]string, error) {
	matches, err := e.Grep(ctx, pattern, opts)
	if err != nil {
		return nil, err
	}
	var files []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		if _, ok := seen[m.File]; !ok {
			seen[m.File] = struct{}{}
			files = append(files, m.File)
		}
	}
	return files, nil
}

// GrepCount tallies matching lines per file. MaxResults does not apply:
// counts always cover the full file set.
func (e *Engine) GrepCount(ctx context.Context, pattern string, opts Options) (map[string]int, error) {
	opts.MaxResults = 0
	counts := make(map[string]int)
	err := e.GrepStream(ctx, pattern, opts, func(m Match) {
		counts[m.File]++
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// scan is the shared walk: glob, read, filter, match, emit.
func (e *Engine) scan(ctx context.Context, regexes []*regexp.Regexp, opts Options, sink func(Match)) error {
	pattern := opts.Glob
	if pattern == "" {
		pattern = defaultGlob
	}

	files, err := e.fs.Glob(ctx, pattern, glob.Options{})
	if err != nil {
		return err
	}

	collected := 0
	limited := opts.MaxResults > 0

	for _, file := range files {
		if limited && collected >= opts.MaxResults {
			return nil
		}

		content, err := e.fs.ReadFile(ctx, file)
		if err != nil {
			// Unreadable mid-scan: skip, partial results are fine.
			e.logger.Debug("skipping unreadable file", zap.String("file", file), zap.Error(err))
			continue
		}
		if content == "" || isBinary(content) {
			continue
		}

		lines := splitLines(content)
		for i, line := range lines {
			col := matchLine(regexes, line)
			if col == 0 {
				continue
			}

			m := Match{
				File:    file,
				Line:    i + 1,
				Column:  col,
				Content: line,
			}
			if opts.ContextLines > 0 {
				m.Context = extractContext(lines, i, opts.ContextLines)
			}
			sink(m)
			collected++
			if limited && collected >= opts.MaxResults {
				return nil
			}
		}
	}
	return nil
}

// matchLine returns the 1-indexed column of the first match on the line, 0
// for no match. One attempt per line per pattern: only the first occurrence
// counts.
func matchLine(regexes []*regexp.Regexp, line string) int {
	for _, re := range regexes {
		if loc := re.FindStringIndex(line); loc != nil {
			return loc[0] + 1
		}
	}
	return 0
}

func extractContext(lines []string, i, n int) *MatchContext {
	start := i - n
	if start < 0 {
		start = 0
	}
	end := i + 1 + n
	if end > len(lines) {
		end = len(lines)
	}

	mc := &MatchContext{Before: []string{}, After: []string{}}
	mc.Before = append(mc.Before, lines[start:i]...)
	mc.After = append(mc.After, lines[i+1:end]...)
	return mc
}

// isBinary samples the head of the content and treats a high NUL count as
// binary.
func isBinary(content string) bool {
	sample := content
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
	}
	nuls := 0
	for i := 0; i < len(sample); i++ {
		if sample[i] == 0 {
			nuls++
			if nuls > binaryNulThreshold {
				return true
			}
		}
	}
	return false
}

// splitLines normalizes CRLF and lone CR to LF, then splits.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

func compilePattern(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	expr := pattern
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, cause: err}
	}
	return re, nil
}
