// Package parse builds the structural representation of an SFZ file from
// its token stream.
//
// SFZ has no header-close syntax: a new header or end of input always
// closes the previous scope. The parser is therefore a state machine over
// the token stream rather than a tree of nested scopes.
package parse

import (
	"fmt"

	sfzerrors "github.com/FocuswithJustin/JuniperSFZ/core/errors"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// state tracks which scope opcode assignments land in.
type state int

const (
	// stateTopLevel: opcodes are global defaults inherited by all groups.
	stateTopLevel state = iota
	// stateInGroup: opcodes are the current group's defaults.
	stateInGroup
	// stateInRegion: opcodes belong to the current region.
	stateInRegion
)

// Parse consumes a token stream (as produced by lex.TokenizeAll) and builds
// the parsed buffer. Structural violations fail with
// *errors.StructuralError and no partial buffer is returned. Non-fatal
// conditions (implicit group synthesis, duplicate key overrides) are
// recorded as diagnostics on the buffer.
func Parse(tokens []sfz.Token) (*sfz.ParsedBuffer, error) {
	buf := sfz.NewParsedBuffer()
	var diags []sfz.Diagnostic
	var group *sfz.Group
	var region *sfz.Region
	st := stateTopLevel

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		switch tok.Kind {
		case sfz.TokenEOF:
			// finalizes from any state; interior EOFs from per-fragment
			// tokenization are equally harmless
			i++

		case sfz.TokenHeaderOpen:
			switch tok.Text {
			case "region":
				if group == nil {
					group = sfz.NewGroup("group", tok.Pos)
					buf.AddGroup(group)
					diags = append(diags, sfz.Diagnostic{
						Severity: sfz.SeverityWarning,
						Pos:      tok.Pos,
						Message:  "region outside any group: synthesized an implicit default group",
					})
				}
				region = sfz.NewRegion(tok.Pos)
				group.AddRegion(region)
				st = stateInRegion

			case "global", "control":
				// opcodes in these scopes are global defaults
				region = nil
				st = stateTopLevel

			default:
				// group, master, curve, effect, and unknown names all open
				// a group-like scope; the kind keeps provenance
				group = sfz.NewGroup(tok.Text, tok.Pos)
				buf.AddGroup(group)
				region = nil
				st = stateInGroup
			}
			i++

		case sfz.TokenOpcodeKey:
			if i+1 >= len(tokens) || tokens[i+1].Kind != sfz.TokenOpcodeValue {
				return nil, sfzerrors.NewStructural(tok.Pos,
					fmt.Sprintf("opcode %q has no value", tok.Text))
			}
			value := tokens[i+1].Text
			var replaced bool
			switch st {
			case stateTopLevel:
				replaced = buf.Globals.Set(tok.Text, value)
			case stateInGroup:
				replaced = group.Defaults.Set(tok.Text, value)
			case stateInRegion:
				replaced = region.Opcodes.Set(tok.Text, value)
			}
			if replaced {
				diags = append(diags, sfz.Diagnostic{
					Severity: sfz.SeverityInfo,
					Pos:      tok.Pos,
					Message:  fmt.Sprintf("duplicate opcode %q: later value wins", tok.Text),
				})
			}
			i += 2

		case sfz.TokenOpcodeValue:
			// the lexer never emits a bare value, but a hand-built stream could
			return nil, sfzerrors.NewStructural(tok.Pos, "opcode value without a key")

		default:
			return nil, sfzerrors.NewStructural(tok.Pos,
				fmt.Sprintf("unexpected token kind %s", tok.Kind))
		}
	}

	buf.Diagnostics = diags
	return buf, nil
}
