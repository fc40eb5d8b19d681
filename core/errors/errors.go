// Package errors provides standardized error types and helpers for the JuniperSFZ codebase.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// Sentinel errors for the fatal pipeline failure kinds
var (
	// ErrInclude indicates a referenced file could not be read
	ErrInclude = errors.New("include failed")
	// ErrCycle indicates a self-referential include chain
	ErrCycle = errors.New("include cycle")
	// ErrLex indicates malformed syntax the lexer cannot scan past
	ErrLex = errors.New("lex error")
	// ErrStructural indicates a parse-tree violation
	ErrStructural = errors.New("structural error")
)

// IncludeError represents a missing or unreadable included file.
// Fatal: expansion aborts.
type IncludeError struct {
	Path string       // Path of the file that could not be included
	Pos  sfz.Position // Location of the #include directive, if known
	Err  error        // Underlying error, if any
}

func (e *IncludeError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("cannot include %q at %s: %v", e.Path, e.Pos, e.Err)
	}
	return fmt.Sprintf("cannot include %q: %v", e.Path, e.Err)
}

func (e *IncludeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInclude
}

// CycleError represents a direct or transitive self-inclusion.
// Fatal: expansion aborts rather than recursing unbounded.
type CycleError struct {
	Path  string       // Path whose re-inclusion closed the cycle
	Chain []string     // Open include chain, outermost first
	Pos   sfz.Position // Location of the offending #include directive
}

func (e *CycleError) Error() string {
	if len(e.Chain) > 0 {
		return fmt.Sprintf("include cycle at %s: %s -> %s", e.Pos, strings.Join(e.Chain, " -> "), e.Path)
	}
	return fmt.Sprintf("include cycle at %s: %s", e.Pos, e.Path)
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// LexError represents malformed syntax at a source position.
// Fatal: the parse cannot continue reliably past unscannable input.
type LexError struct {
	Pos    sfz.Position
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Reason)
}

func (e *LexError) Unwrap() error {
	return ErrLex
}

// StructuralError represents a parse-tree violation such as an opcode key
// with no value. Fatal: no partial buffer is considered trustworthy.
type StructuralError struct {
	Pos     sfz.Position
	Message string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error at %s: %s", e.Pos, e.Message)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// Helper functions for creating common errors

// NewInclude creates an IncludeError
func NewInclude(path string, pos sfz.Position, err error) *IncludeError {
	return &IncludeError{Path: path, Pos: pos, Err: err}
}

// NewCycle creates a CycleError
func NewCycle(path string, chain []string, pos sfz.Position) *CycleError {
	return &CycleError{Path: path, Chain: chain, Pos: pos}
}

// NewLex creates a LexError
func NewLex(pos sfz.Position, reason string) *LexError {
	return &LexError{Pos: pos, Reason: reason}
}

// NewStructural creates a StructuralError
func NewStructural(pos sfz.Position, message string) *StructuralError {
	return &StructuralError{Pos: pos, Message: message}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
