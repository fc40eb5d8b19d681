package sfz

// types.go - Consolidated SFZ schema type definitions
// This file contains all core types used throughout JuniperSFZ.
// The preprocessing, lexing, and parsing stages should import these types
// from core/sfz rather than defining their own.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Position identifies a location in an SFZ source file.
// Line and Column are 1-based.
type Position struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String renders the position as "file:line:column" for error messages.
func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// TokenKind identifies the kind of a lexed token.
type TokenKind int

// Token kind constants.
const (
	// TokenHeaderOpen is a <name> header marker. Text holds the lowercased name.
	TokenHeaderOpen TokenKind = iota
	// TokenOpcodeKey is the key of a key=value opcode assignment, lowercased.
	TokenOpcodeKey
	// TokenOpcodeValue is the value of a key=value opcode assignment.
	TokenOpcodeValue
	// TokenEOF terminates a token stream.
	TokenEOF
)

// String returns the name of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenHeaderOpen:
		return "HeaderOpen"
	case TokenOpcodeKey:
		return "OpcodeKey"
	case TokenOpcodeValue:
		return "OpcodeValue"
	case TokenEOF:
		return "EOF"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a single lexed token with its source position.
// Tokens are immutable once produced by the lexer.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

// SourceFragment is a run of expanded SFZ text plus its originating file.
// The preprocessor produces one fragment per contiguous text run; a file
// with an #include in the middle contributes a fragment on each side of the
// spliced content. StartLine is the 1-based line in the originating file at
// which the fragment's first line appears (0 means line 1).
type SourceFragment struct {
	Path      string
	Text      string
	StartLine int
}

// Severity classifies a non-fatal diagnostic.
type Severity int

// Diagnostic severities.
const (
	// SeverityInfo is for informational records (e.g. duplicate key override).
	SeverityInfo Severity = iota
	// SeverityWarning is for conditions a caller should surface
	// (e.g. unknown header name, implicit group synthesis).
	SeverityWarning
)

// String returns the name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a non-fatal record accumulated during preprocessing,
// lexing, or parsing. Diagnostics never abort the pipeline.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Pos      Position `json:"pos"`
	Message  string   `json:"message"`
}

// String renders the diagnostic as "severity: position: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Pos, d.Message)
}

// knownHeaders is the enumerated set of recognized SFZ header names.
// Unrecognized names still tokenize and parse; they are flagged with a
// warning diagnostic for forward compatibility.
var knownHeaders = map[string]bool{
	"region":  true,
	"group":   true,
	"control": true,
	"global":  true,
	"master":  true,
	"curve":   true,
	"effect":  true,
}

// KnownHeader returns true if name is a recognized SFZ header name.
func KnownHeader(name string) bool {
	return knownHeaders[name]
}

// OpcodeMap is an insertion-ordered mapping of opcode name to value.
// Set is last-write-wins: assigning an existing key replaces its value but
// keeps the key's original position in the ordering.
type OpcodeMap struct {
	keys   []string
	values map[string]string
}

// NewOpcodeMap creates an empty OpcodeMap.
func NewOpcodeMap() *OpcodeMap {
	return &OpcodeMap{values: make(map[string]string)}
}

// Set assigns value to key. Returns true if the key already existed and its
// previous value was replaced.
func (m *OpcodeMap) Set(key, value string) bool {
	if _, ok := m.values[key]; ok {
		m.values[key] = value
		return true
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return false
}

// Get returns the value for key and whether it is present.
func (m *OpcodeMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *OpcodeMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OpcodeMap) Len() int {
	return len(m.keys)
}

// MarshalJSON serializes the map as a JSON object in insertion order.
func (m *OpcodeMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kj, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vj, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kj)
		buf.WriteByte(':')
		buf.Write(vj)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the map from a JSON object, preserving the
// object's key order as the insertion order.
func (m *OpcodeMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("opcode map: expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("opcode map: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("opcode map: value for %q: %w", key, err)
		}
		m.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Region is one <region> block: an ordered mapping of opcode name to value.
type Region struct {
	Opcodes *OpcodeMap `json:"opcodes"`
	Pos     Position   `json:"pos"`
}

// NewRegion creates an empty region at the given position.
func NewRegion(pos Position) *Region {
	return &Region{Opcodes: NewOpcodeMap(), Pos: pos}
}

// Group is one header-scoped block containing default opcodes and an
// ordered sequence of regions. Kind records the header name that opened the
// scope ("group" for real and synthesized groups; "master", "effect", and
// unknown headers also open group-like scopes so provenance survives).
type Group struct {
	Kind     string     `json:"kind"`
	Defaults *OpcodeMap `json:"defaults"`
	Regions  []*Region  `json:"regions"`
	Pos      Position   `json:"pos"`
}

// NewGroup creates an empty group of the given kind at the given position.
func NewGroup(kind string, pos Position) *Group {
	return &Group{Kind: kind, Defaults: NewOpcodeMap(), Pos: pos}
}

// AddRegion appends a region to the group.
func (g *Group) AddRegion(r *Region) {
	g.Regions = append(g.Regions, r)
}

// ParsedBuffer is the root structural result of parsing: global default
// opcodes plus an ordered sequence of groups. It is owned by the parser and
// read-only once parsing completes.
type ParsedBuffer struct {
	Globals *OpcodeMap `json:"globals"`
	Groups  []*Group   `json:"groups"`

	// Diagnostics accumulated across all pipeline stages, in stage order.
	// Excluded from serialization and hashing.
	Diagnostics []Diagnostic `json:"-"`
}

// NewParsedBuffer creates an empty buffer.
func NewParsedBuffer() *ParsedBuffer {
	return &ParsedBuffer{Globals: NewOpcodeMap()}
}

// AddGroup appends a group to the buffer.
func (b *ParsedBuffer) AddGroup(g *Group) {
	b.Groups = append(b.Groups, g)
}

// Resolve looks up an opcode through the inheritance chain: region first,
// then the group's defaults, then the buffer's globals. Either g or r may
// be nil to start the lookup lower in the chain.
func (b *ParsedBuffer) Resolve(g *Group, r *Region, key string) (string, bool) {
	if r != nil {
		if v, ok := r.Opcodes.Get(key); ok {
			return v, true
		}
	}
	if g != nil {
		if v, ok := g.Defaults.Get(key); ok {
			return v, true
		}
	}
	return b.Globals.Get(key)
}
