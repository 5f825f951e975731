// Package validator implements the Code Validator (C2): a pure,
// static accept/reject function over user-supplied fitness source
// text (§4.2).
//
// No library in the retrieved corpus, nor a commonly reached-for
// ecosystem package, parses Python syntax from Go — shelling out to a
// real Python parser would reintroduce exactly the untrusted-code
// surface this component exists to screen before the sandbox. This
// package is therefore hand-built on the standard library
// (bufio/regexp/strings), a deliberate, documented exception to
// "prefer a pack library" (see DESIGN.md).
package validator

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of Validate: either accepted, or rejected
// with a short, actionable reason (§4.2 "Error behavior").
type Verdict struct {
	OK     bool
	Reason string
}

// allowedImports is the import allow-list (§4.2 Policy, bullet 1):
// the mathematics stdlib and a numeric array library. Submodules of
// either (e.g. "math.floor" imports, or "numpy.linalg") are permitted
// because only the top-level package name is checked.
var allowedImports = map[string]bool{
	"math":  true,
	"numpy": true,
}

// deniedIdentifiers is the builtin/module deny-list (§4.2 Policy,
// bullet 2): dynamic execution, file/IO, introspection, OS/process
// bridges, and deserialization primitives.
var deniedIdentifiers = map[string]bool{
	"exec":        true,
	"eval":        true,
	"compile":     true,
	"__import__":  true,
	"open":        true,
	"globals":     true,
	"locals":      true,
	"vars":        true,
	"dir":         true,
	"getattr":     true,
	"setattr":     true,
	"delattr":     true,
	"os":          true,
	"sys":         true,
	"subprocess":  true,
	"socket":      true,
	"pickle":      true,
	"marshal":     true,
	"shelve":      true,
	"importlib":   true,
	"ctypes":      true,
	"multiprocessing": true,
}

var (
	reImport     = regexp.MustCompile(`^\s*import\s+([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)`)
	reFromImport = regexp.MustCompile(`^\s*from\s+([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s+import\b`)
	reWith       = regexp.MustCompile(`^\s*with\b`)
	reDunder     = regexp.MustCompile(`\b(__[A-Za-z0-9_]+__)\b`)
	reIdentifier = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	reFitnessDef = regexp.MustCompile(`^def\s+fitness\s*\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)\s*:`)
)

// Validate decides whether source is safe to hand to the Sandbox
// Executor (§4.2). It never panics or returns an error: malformed
// input yields Verdict{OK:false} with a reason describing what was
// found and where.
func Validate(source string) Verdict {
	lines, err := stripStringsAndComments(source)
	if err != nil {
		return Verdict{OK: false, Reason: fmt.Sprintf("syntax error: %s", err.Error())}
	}

	sawFitnessDef := false

	for i, line := range lines {
		lineNo := i + 1

		if m := reImport.FindStringSubmatch(line); m != nil {
			if v := checkImport(m[1], lineNo); !v.OK {
				return v
			}
		}
		if m := reFromImport.FindStringSubmatch(line); m != nil {
			if v := checkImport(m[1], lineNo); !v.OK {
				return v
			}
		}
		if reWith.MatchString(line) {
			return Verdict{OK: false, Reason: fmt.Sprintf("line %d: 'with' scoped-resource construct is not allowed", lineNo)}
		}
		if m := reDunder.FindStringSubmatch(line); m != nil {
			return Verdict{OK: false, Reason: fmt.Sprintf("line %d: dunder attribute access %q is not allowed", lineNo, m[1])}
		}
		for _, id := range reIdentifier.FindAllString(line, -1) {
			if deniedIdentifiers[id] {
				return Verdict{OK: false, Reason: fmt.Sprintf("line %d: use of %q is not allowed", lineNo, id)}
			}
		}
		if reFitnessDef.MatchString(line) {
			sawFitnessDef = true
		}
	}

	if !sawFitnessDef {
		return Verdict{OK: false, Reason: "no top-level 'def fitness(x):' definition taking exactly one parameter was found"}
	}
	return Verdict{OK: true}
}

func checkImport(module string, lineNo int) Verdict {
	top := module
	if idx := strings.IndexByte(module, '.'); idx >= 0 {
		top = module[:idx]
	}
	if !allowedImports[top] {
		return Verdict{OK: false, Reason: fmt.Sprintf("line %d: import of %q is not on the allow-list", lineNo, module)}
	}
	return Verdict{OK: true}
}

// stripStringsAndComments returns source split into lines with string
// literal contents and comments (# to end-of-line, outside strings)
// blanked out to spaces, preserving line/column structure so regex
// checks never fire on text that appears only inside a string or
// comment. Triple-quoted strings may span lines. An unterminated
// string literal is reported as a syntax error.
func stripStringsAndComments(source string) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inTriple := byte(0) // 0, '\'', or '"' when inside a triple-quoted string
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		var b strings.Builder
		i := 0
		for i < len(line) {
			if inTriple != 0 {
				if i+2 < len(line) && line[i] == inTriple && line[i+1] == inTriple && line[i+2] == inTriple {
					inTriple = 0
					b.WriteString("   ")
					i += 3
					continue
				}
				b.WriteByte(' ')
				i++
				continue
			}
			c := line[i]
			switch {
			case c == '#':
				i = len(line)
			case c == '\'' || c == '"':
				if i+2 < len(line) && line[i+1] == c && line[i+2] == c {
					inTriple = c
					b.WriteString("   ")
					i += 3
					continue
				}
				// single-line string literal
				j := i + 1
				closed := false
				for j < len(line) {
					if line[j] == '\\' {
						j += 2
						continue
					}
					if line[j] == c {
						closed = true
						break
					}
					j++
				}
				if !closed {
					return nil, fmt.Errorf("unterminated string literal at line %d", lineNo)
				}
				b.WriteString(strings.Repeat(" ", j-i+1))
				i = j + 1
			default:
				b.WriteByte(c)
				i++
			}
		}
		out = append(out, b.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inTriple != 0 {
		return nil, fmt.Errorf("unterminated triple-quoted string")
	}
	return out, nil
}
