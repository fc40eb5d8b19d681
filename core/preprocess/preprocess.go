// Package preprocess expands SFZ preprocessor directives before lexing.
//
// The preprocessor strips comments, splices #include files in place
// (depth-first, as each directive is reached), and records #define macros
// whose $NAME references are substituted into all subsequent text. The
// result is an ordered sequence of source fragments ready for tokenization.
package preprocess

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	sfzerrors "github.com/FocuswithJustin/JuniperSFZ/core/errors"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// directiveLexer defines tokens for the directive scan using line-based
// patterns. Order matters: more specific patterns should come first.
var directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Block comments, possibly spanning lines
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	// Line comments (// to end of line)
	{Name: "LineComment", Pattern: `//[^\n]*`},
	// Include directive with a quoted path: #include "path" or #include 'path'
	{Name: "Include", Pattern: `#include[ \t]+("[^"\r\n]*"|'[^'\r\n]*')`},
	// Define directive: #define $NAME value (value ends at whitespace)
	{Name: "Define", Pattern: `#define[ \t]+\$[A-Za-z0-9_]+[ \t]+[^ \t\r\n]+`},
	// Any other # run: unknown or malformed directive, rejected in Go code
	{Name: "Directive", Pattern: `#[^ \t\r\n]*`},
	// Plain text runs (everything that cannot start a comment or directive)
	{Name: "Text", Pattern: `[^/#]+`},
	// A slash that does not open a comment is plain text
	{Name: "Slash", Pattern: `/`},
})

var directiveSymbols = directiveLexer.Symbols()

var (
	symBlockComment = directiveSymbols["BlockComment"]
	symLineComment  = directiveSymbols["LineComment"]
	symInclude      = directiveSymbols["Include"]
	symDefine       = directiveSymbols["Define"]
	symDirective    = directiveSymbols["Directive"]
)

var (
	includePathRe = regexp.MustCompile(`"([^"\r\n]*)"|'([^'\r\n]*)'`)
	defineRe      = regexp.MustCompile(`^#define[ \t]+\$([A-Za-z0-9_]+)[ \t]+([^ \t\r\n]+)`)
	macroRefRe    = regexp.MustCompile(`\$[A-Za-z0-9_]+`)
)

// Expand reads the root SFZ file through loader and expands it into an
// ordered sequence of source fragments. Includes are resolved relative to
// the including file's directory. A nil loader defaults to OSLoader.
//
// Fails with *errors.IncludeError when a referenced file cannot be read and
// with *errors.CycleError when an include cycle is detected. Non-fatal
// conditions (undefined macro references) are reported as diagnostics.
func Expand(root string, loader Loader) ([]sfz.SourceFragment, []sfz.Diagnostic, error) {
	if loader == nil {
		loader = OSLoader{}
	}
	data, err := loader.ReadFile(root)
	if err != nil {
		return nil, nil, sfzerrors.NewInclude(root, sfz.Position{}, err)
	}
	return expand(string(data), filepath.Clean(root), loader)
}

// ExpandText expands in-memory SFZ text as if it were the contents of the
// file at path. If loader is nil, any #include directive fails with an
// IncludeError.
func ExpandText(text, path string, loader Loader) ([]sfz.SourceFragment, []sfz.Diagnostic, error) {
	return expand(text, path, loader)
}

// expander holds the state shared across the whole expansion: the macro
// table, the open-set for cycle detection, and the accumulated output.
// Both must remain single-writer; expansion is strictly sequential.
type expander struct {
	loader  Loader
	macros  map[string]string
	open    []string // open include chain, outermost first
	openSet map[string]bool
	frags   []sfz.SourceFragment
	diags   []sfz.Diagnostic
}

// frame is one entry in the expansion worklist: a file being scanned and
// the text of its current fragment. Includes push a new frame rather than
// recursing, so pathological include chains cannot exhaust the call stack.
type frame struct {
	path string
	lx   lexer.Lexer
	buf  strings.Builder
	line int // source line at which the current fragment starts
}

func (f *frame) append(s string, line int) {
	if f.buf.Len() == 0 {
		f.line = line
	}
	f.buf.WriteString(s)
}

func expand(text, path string, loader Loader) ([]sfz.SourceFragment, []sfz.Diagnostic, error) {
	e := &expander{
		loader:  loader,
		macros:  make(map[string]string),
		openSet: make(map[string]bool),
	}

	root, err := e.newFrame(path, text)
	if err != nil {
		return nil, nil, err
	}
	stack := []*frame{root}
	e.openSet[path] = true
	e.open = append(e.open, path)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		tok, err := f.lx.Next()
		if err != nil {
			return nil, e.diags, sfzerrors.NewLex(sfz.Position{File: f.path}, err.Error())
		}
		if tok.EOF() {
			e.flush(f)
			stack = stack[:len(stack)-1]
			delete(e.openSet, f.path)
			e.open = e.open[:len(e.open)-1]
			continue
		}

		pos := sfz.Position{File: f.path, Line: tok.Pos.Line, Column: tok.Pos.Column}
		switch tok.Type {
		case symLineComment:
			// stripped; line comments contain no newlines

		case symBlockComment:
			// keep the newlines so later positions stay honest
			f.append(strings.Repeat("\n", strings.Count(tok.Value, "\n")), tok.Pos.Line)

		case symDefine:
			m := defineRe.FindStringSubmatch(tok.Value)
			e.macros[m[1]] = m[2]

		case symInclude:
			target, incPath := resolveInclude(tok.Value, f.path)
			if e.openSet[target] {
				return nil, e.diags, sfzerrors.NewCycle(target, append([]string(nil), e.open...), pos)
			}
			data, err := e.read(target)
			if err != nil {
				return nil, e.diags, sfzerrors.NewInclude(incPath, pos, err)
			}
			e.flush(f)
			nf, err := e.newFrame(target, string(data))
			if err != nil {
				return nil, e.diags, err
			}
			e.openSet[target] = true
			e.open = append(e.open, target)
			stack = append(stack, nf)

		case symDirective:
			if tok.Value == "#include" || tok.Value == "#define" {
				return nil, e.diags, sfzerrors.NewLex(pos, fmt.Sprintf("malformed %s directive", tok.Value))
			}
			return nil, e.diags, sfzerrors.NewLex(pos, fmt.Sprintf("unknown directive %q", tok.Value))

		default: // Text, Slash
			f.append(e.substitute(tok.Value, pos), tok.Pos.Line)
		}
	}

	return e.frags, e.diags, nil
}

func (e *expander) newFrame(path, text string) (*frame, error) {
	lx, err := directiveLexer.LexString(path, text)
	if err != nil {
		return nil, sfzerrors.NewLex(sfz.Position{File: path}, err.Error())
	}
	return &frame{path: path, lx: lx, line: 1}, nil
}

func (e *expander) read(path string) ([]byte, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("no loader configured")
	}
	return e.loader.ReadFile(path)
}

// flush emits the frame's accumulated text as a fragment and resets it.
// Fragments that are pure whitespace are dropped.
func (e *expander) flush(f *frame) {
	if strings.TrimSpace(f.buf.String()) != "" {
		e.frags = append(e.frags, sfz.SourceFragment{
			Path:      f.path,
			Text:      f.buf.String(),
			StartLine: f.line,
		})
	}
	f.buf.Reset()
	f.line = 0
}

// substitute replaces $NAME macro references in s. Substitution is
// single-pass and non-recursive: a macro's expansion is never re-scanned.
// A reference with no exact binding falls back to the longest bound prefix
// of the name (so `huh$key2` works when only $key is bound and the text ran
// the name into following characters); with no bound prefix at all the
// reference is left verbatim and a warning diagnostic is recorded.
func (e *expander) substitute(s string, base sfz.Position) string {
	locs := macroRefRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var out strings.Builder
	last := 0
	for _, loc := range locs {
		out.WriteString(s[last:loc[0]])
		match := s[loc[0]:loc[1]]
		name := match[1:]
		if v, ok := e.macros[name]; ok {
			out.WriteString(v)
		} else if v, rest, ok := e.longestPrefix(name); ok {
			out.WriteString(v)
			out.WriteString(rest)
		} else {
			e.diags = append(e.diags, sfz.Diagnostic{
				Severity: sfz.SeverityWarning,
				Pos:      posAt(base, s[:loc[0]]),
				Message:  fmt.Sprintf("undefined macro reference %q", match),
			})
			out.WriteString(match)
		}
		last = loc[1]
	}
	out.WriteString(s[last:])
	return out.String()
}

// longestPrefix finds the longest bound macro name that is a proper prefix
// of name, returning its value and the unmatched remainder.
func (e *expander) longestPrefix(name string) (value, rest string, ok bool) {
	for l := len(name) - 1; l > 0; l-- {
		if v, found := e.macros[name[:l]]; found {
			return v, name[l:], true
		}
	}
	return "", "", false
}

// resolveInclude extracts the quoted path from an #include token and
// resolves it against the including file's directory.
func resolveInclude(directive, from string) (target, incPath string) {
	m := includePathRe.FindStringSubmatch(directive)
	if strings.HasPrefix(m[0], `"`) {
		incPath = m[1]
	} else {
		incPath = m[2]
	}
	target = incPath
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(from), incPath)
	}
	return filepath.Clean(target), incPath
}

// posAt advances base past prefix, tracking newlines.
func posAt(base sfz.Position, prefix string) sfz.Position {
	n := strings.Count(prefix, "\n")
	if n == 0 {
		return sfz.Position{File: base.File, Line: base.Line, Column: base.Column + len(prefix)}
	}
	lastNL := strings.LastIndexByte(prefix, '\n')
	return sfz.Position{File: base.File, Line: base.Line + n, Column: len(prefix) - lastNL}
}
