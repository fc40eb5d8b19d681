// Package lex tokenizes preprocessed SFZ source fragments.
//
// The scan is line-oriented: headers and opcode assignments never span
// lines. Opcode values are terminated by context-sensitive lookahead rather
// than whitespace splitting, since SFZ values (file paths in particular)
// may contain spaces.
package lex

import (
	"fmt"
	"regexp"
	"strings"

	sfzerrors "github.com/FocuswithJustin/JuniperSFZ/core/errors"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// keyAssignRe matches an identifier followed by '=' (whitespace around the
// '=' is tolerated), the pattern that terminates an unquoted value when it
// follows a whitespace run.
var keyAssignRe = regexp.MustCompile(`^[A-Za-z0-9_]+[ \t]*=`)

// Tokenize scans one source fragment into an ordered token sequence
// terminated by a TokenEOF. Unknown header names tokenize with a warning
// diagnostic; malformed syntax fails with *errors.LexError.
func Tokenize(frag sfz.SourceFragment) ([]sfz.Token, []sfz.Diagnostic, error) {
	tokens, diags, err := tokenizeFragment(frag)
	if err != nil {
		return nil, diags, err
	}
	tokens = append(tokens, sfz.Token{
		Kind: sfz.TokenEOF,
		Pos:  sfz.Position{File: frag.Path, Line: endLine(frag), Column: 1},
	})
	return tokens, diags, nil
}

// TokenizeAll scans a fragment sequence into a single concatenated token
// stream with one trailing TokenEOF. This is the stream the parser consumes.
func TokenizeAll(frags []sfz.SourceFragment) ([]sfz.Token, []sfz.Diagnostic, error) {
	var tokens []sfz.Token
	var diags []sfz.Diagnostic
	eof := sfz.Position{Line: 1, Column: 1}
	for _, frag := range frags {
		toks, ds, err := tokenizeFragment(frag)
		diags = append(diags, ds...)
		if err != nil {
			return nil, diags, err
		}
		tokens = append(tokens, toks...)
		eof = sfz.Position{File: frag.Path, Line: endLine(frag), Column: 1}
	}
	tokens = append(tokens, sfz.Token{Kind: sfz.TokenEOF, Pos: eof})
	return tokens, diags, nil
}

func endLine(frag sfz.SourceFragment) int {
	return startLine(frag) + strings.Count(frag.Text, "\n")
}

func startLine(frag sfz.SourceFragment) int {
	if frag.StartLine > 0 {
		return frag.StartLine
	}
	return 1
}

func tokenizeFragment(frag sfz.SourceFragment) ([]sfz.Token, []sfz.Diagnostic, error) {
	var tokens []sfz.Token
	var diags []sfz.Diagnostic

	base := startLine(frag)
	for i, line := range strings.Split(frag.Text, "\n") {
		toks, ds, err := lexLine(line, frag.Path, base+i)
		diags = append(diags, ds...)
		if err != nil {
			return nil, diags, err
		}
		tokens = append(tokens, toks...)
	}
	return tokens, diags, nil
}

// lexLine scans a single line. lineNo is the 1-based line number in the
// originating file.
func lexLine(line, file string, lineNo int) ([]sfz.Token, []sfz.Diagnostic, error) {
	var tokens []sfz.Token
	var diags []sfz.Diagnostic

	pos := func(col int) sfz.Position {
		return sfz.Position{File: file, Line: lineNo, Column: col + 1}
	}

	i := 0
	for i < len(line) {
		switch c := line[i]; {
		case c == ' ' || c == '\t' || c == '\r':
			i++

		case c == '<':
			end := strings.IndexByte(line[i:], '>')
			if end < 0 {
				return nil, diags, sfzerrors.NewLex(pos(i), "unterminated header: missing '>'")
			}
			name := strings.ToLower(strings.TrimSpace(line[i+1 : i+end]))
			if name == "" {
				return nil, diags, sfzerrors.NewLex(pos(i), "empty header name")
			}
			if !sfz.KnownHeader(name) {
				diags = append(diags, sfz.Diagnostic{
					Severity: sfz.SeverityWarning,
					Pos:      pos(i),
					Message:  fmt.Sprintf("unknown header <%s>", name),
				})
			}
			tokens = append(tokens, sfz.Token{Kind: sfz.TokenHeaderOpen, Text: name, Pos: pos(i)})
			i += end + 1

		default:
			var err error
			tokens, i, err = lexOpcode(line, i, tokens, pos)
			if err != nil {
				return nil, diags, err
			}
		}
	}
	return tokens, diags, nil
}

// lexOpcode scans one key=value assignment starting at i. The key must be
// immediately followed by '='; the value runs to end of line or to the
// whitespace run preceding the next assignment or header, except that
// quoted values keep embedded whitespace verbatim.
func lexOpcode(line string, i int, tokens []sfz.Token, pos func(int) sfz.Position) ([]sfz.Token, int, error) {
	start := i
	j := i
	for j < len(line) && isIdentChar(line[j]) {
		j++
	}
	keyEnd := j
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	if keyEnd == start || j >= len(line) || line[j] != '=' {
		return tokens, i, sfzerrors.NewLex(pos(start), "expected opcode assignment")
	}
	tokens = append(tokens, sfz.Token{
		Kind: sfz.TokenOpcodeKey,
		Text: strings.ToLower(line[start:keyEnd]),
		Pos:  pos(start),
	})

	i = j + 1 // past '='
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) {
		// no value on this line; the parser reports the structural error
		return tokens, i, nil
	}

	if line[i] == '"' {
		end := strings.IndexByte(line[i+1:], '"')
		if end < 0 {
			return tokens, i, sfzerrors.NewLex(pos(i), "unterminated quoted value")
		}
		tokens = append(tokens, sfz.Token{
			Kind: sfz.TokenOpcodeValue,
			Text: line[i+1 : i+1+end],
			Pos:  pos(i),
		})
		return tokens, i + end + 2, nil
	}

	end := valueEnd(line, i)
	value := strings.TrimRight(line[i:end], " \t\r")
	if value == "" {
		return tokens, end, nil
	}
	tokens = append(tokens, sfz.Token{Kind: sfz.TokenOpcodeValue, Text: value, Pos: pos(i)})
	return tokens, end, nil
}

// valueEnd finds where an unquoted value starting at i terminates: at a
// '<' header opener, or at the whitespace run preceding the next
// `identifier=` pattern, or at end of line.
func valueEnd(line string, i int) int {
	wsStart := -1
	for k := i; k < len(line); k++ {
		switch c := line[k]; {
		case c == ' ' || c == '\t':
			if wsStart < 0 {
				wsStart = k
			}
		case c == '<':
			if wsStart >= 0 {
				return wsStart
			}
			return k
		default:
			if wsStart >= 0 && keyAssignRe.MatchString(line[k:]) {
				return wsStart
			}
			wsStart = -1
		}
	}
	return len(line)
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
