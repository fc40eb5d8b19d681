package parse

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	sfzerrors "github.com/FocuswithJustin/JuniperSFZ/core/errors"
	"github.com/FocuswithJustin/JuniperSFZ/core/preprocess"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

func mustParse(t *testing.T, text string) *sfz.ParsedBuffer {
	t.Helper()
	buf, err := ParseText(text, "test.sfz", nil)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return buf
}

func getOpcode(t *testing.T, m *sfz.OpcodeMap, key string) string {
	t.Helper()
	v, ok := m.Get(key)
	if !ok {
		t.Fatalf("opcode %q not present", key)
	}
	return v
}

// TestParseGroupsAndRegions tests the basic hierarchy: two groups, each
// carrying its own regions, with defaults kept on the group rather than
// copied down.
func TestParseGroupsAndRegions(t *testing.T) {
	buf := mustParse(t, `<group>
lovel=0 hivel=63
<region> sample=soft.wav
<region> sample=softer.wav
<group>
lovel=64 hivel=127
<region> sample=hard.wav
`)

	if len(buf.Groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(buf.Groups))
	}
	if n := len(buf.Groups[0].Regions); n != 2 {
		t.Errorf("first group region count = %d, want 2", n)
	}
	if n := len(buf.Groups[1].Regions); n != 1 {
		t.Errorf("second group region count = %d, want 1", n)
	}
	if got := getOpcode(t, buf.Groups[1].Defaults, "lovel"); got != "64" {
		t.Errorf("second group lovel = %q, want 64", got)
	}
	region := buf.Groups[0].Regions[1]
	if got := getOpcode(t, region.Opcodes, "sample"); got != "softer.wav" {
		t.Errorf("region sample = %q, want softer.wav", got)
	}
	// group defaults are resolved through lookup, not copied onto regions
	if _, ok := region.Opcodes.Get("lovel"); ok {
		t.Error("group default was copied onto the region")
	}
	if got, ok := buf.Resolve(buf.Groups[0], region, "lovel"); !ok || got != "0" {
		t.Errorf("resolved lovel = %q %v, want 0 true", got, ok)
	}
}

// TestParseImplicitGroup tests that a region before any group synthesizes
// a default group and reports it.
func TestParseImplicitGroup(t *testing.T) {
	buf := mustParse(t, "<region>\nsample=kick.wav\n<region>\nsample=snare.wav\n")

	if len(buf.Groups) != 1 {
		t.Fatalf("group count = %d, want 1 implicit group", len(buf.Groups))
	}
	g := buf.Groups[0]
	if g.Kind != "group" {
		t.Errorf("implicit group kind = %q, want group", g.Kind)
	}
	if len(g.Regions) != 2 {
		t.Errorf("region count = %d, want 2 (both in the implicit group)", len(g.Regions))
	}

	found := false
	for _, d := range buf.Diagnostics {
		if d.Severity == sfz.SeverityWarning && strings.Contains(d.Message, "implicit") {
			found = true
		}
	}
	if !found {
		t.Errorf("no implicit-group warning in %v", buf.Diagnostics)
	}
}

// TestParseGlobalScopes tests that opcodes under <global> and <control>,
// and before any header at all, land in the buffer's globals.
func TestParseGlobalScopes(t *testing.T) {
	buf := mustParse(t, `volume=-3
<control>
default_path=samples/
<global>
tune=10
<group>
<region> sample=kick.wav
`)

	for key, want := range map[string]string{
		"volume":       "-3",
		"default_path": "samples/",
		"tune":         "10",
	} {
		if got := getOpcode(t, buf.Globals, key); got != want {
			t.Errorf("global %q = %q, want %q", key, got, want)
		}
	}
	if buf.Groups[0].Defaults.Len() != 0 {
		t.Errorf("globals leaked into group defaults: %v", buf.Groups[0].Defaults.Keys())
	}
}

// TestParseGlobalAfterGroup tests that a <global> header closes the open
// group scope so following opcodes do not land in it.
func TestParseGlobalAfterGroup(t *testing.T) {
	buf := mustParse(t, "<group>\nlovel=0\n<global>\ntune=10\n<region>\nsample=kick.wav\n")

	if got := getOpcode(t, buf.Globals, "tune"); got != "10" {
		t.Errorf("tune = %q, want 10 in globals", got)
	}
	if _, ok := buf.Groups[0].Defaults.Get("tune"); ok {
		t.Error("tune leaked into the group scope")
	}
	// the region still attaches to the previously opened group
	if len(buf.Groups) != 1 || len(buf.Groups[0].Regions) != 1 {
		t.Errorf("groups = %d regions = %d, want 1 and 1", len(buf.Groups), len(buf.Groups[0].Regions))
	}
}

// TestParseGroupLikeHeaders tests that <master>, <curve>, <effect>, and
// unknown headers open group-like scopes tagged with their kind.
func TestParseGroupLikeHeaders(t *testing.T) {
	buf := mustParse(t, `<master>
amp_veltrack=80
<curve>
v000=0
<mystery>
x=1
`)

	var kinds []string
	for _, g := range buf.Groups {
		kinds = append(kinds, g.Kind)
	}
	want := []string{"master", "curve", "mystery"}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("group kinds = %v, want %v", kinds, want)
	}
	if got := getOpcode(t, buf.Groups[0].Defaults, "amp_veltrack"); got != "80" {
		t.Errorf("master amp_veltrack = %q, want 80", got)
	}

	warned := false
	for _, d := range buf.Diagnostics {
		if strings.Contains(d.Message, "mystery") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no unknown-header warning in %v", buf.Diagnostics)
	}
}

// TestParseDuplicateOpcode tests last-write-wins with an informational
// diagnostic.
func TestParseDuplicateOpcode(t *testing.T) {
	buf := mustParse(t, "<group>\n<region>\nsample=first.wav\nvolume=-6\nsample=second.wav\n")

	region := buf.Groups[0].Regions[0]
	if got := getOpcode(t, region.Opcodes, "sample"); got != "second.wav" {
		t.Errorf("sample = %q, want second.wav (later value wins)", got)
	}
	// the key keeps its original position in the opcode order
	want := []string{"sample", "volume"}
	if !reflect.DeepEqual(region.Opcodes.Keys(), want) {
		t.Errorf("opcode order = %v, want %v", region.Opcodes.Keys(), want)
	}

	found := false
	for _, d := range buf.Diagnostics {
		if d.Severity == sfz.SeverityInfo && strings.Contains(d.Message, `"sample"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("no duplicate-opcode diagnostic in %v", buf.Diagnostics)
	}
}

// TestParseMissingValue tests that `key=` with nothing after it is a
// structural error.
func TestParseMissingValue(t *testing.T) {
	_, err := ParseText("<region>\nsample=\n", "test.sfz", nil)
	var structErr *sfzerrors.StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("error = %v, want StructuralError", err)
	}
	if !errors.Is(err, sfzerrors.ErrStructural) {
		t.Error("error does not unwrap to ErrStructural")
	}
	if structErr.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", structErr.Pos.Line)
	}
}

// TestParseInteriorEOF tests that EOF tokens inside a hand-assembled
// stream do not reset scope state.
func TestParseInteriorEOF(t *testing.T) {
	tokens := []sfz.Token{
		{Kind: sfz.TokenHeaderOpen, Text: "group"},
		{Kind: sfz.TokenEOF},
		{Kind: sfz.TokenHeaderOpen, Text: "region"},
		{Kind: sfz.TokenOpcodeKey, Text: "sample"},
		{Kind: sfz.TokenOpcodeValue, Text: "kick.wav"},
		{Kind: sfz.TokenEOF},
	}

	buf, err := Parse(tokens)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(buf.Groups) != 1 || len(buf.Groups[0].Regions) != 1 {
		t.Fatalf("groups = %+v, want one group holding one region", buf.Groups)
	}
	if len(buf.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", buf.Diagnostics)
	}
}

// TestParseBareValueToken tests that a value token with no preceding key
// is rejected.
func TestParseBareValueToken(t *testing.T) {
	tokens := []sfz.Token{
		{Kind: sfz.TokenOpcodeValue, Text: "orphan"},
		{Kind: sfz.TokenEOF},
	}
	_, err := Parse(tokens)
	if !errors.Is(err, sfzerrors.ErrStructural) {
		t.Fatalf("error = %v, want ErrStructural", err)
	}
}

// TestParseFileWithIncludes runs the full pipeline over an include graph
// and checks diagnostics merge in stage order.
func TestParseFileWithIncludes(t *testing.T) {
	loader := preprocess.MapLoader{
		"kit.sfz":     "#define $PATH samples\n<group>\ngroup_label=drums\n#include \"regions.sfz\"\n",
		"regions.sfz": "<region>\nsample=$PATH/kick.wav\nvolume=$GAIN\n",
	}

	buf, err := ParseFile("kit.sfz", loader)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(buf.Groups) != 1 || len(buf.Groups[0].Regions) != 1 {
		t.Fatalf("unexpected shape: %+v", buf.Groups)
	}
	region := buf.Groups[0].Regions[0]
	if got := getOpcode(t, region.Opcodes, "sample"); got != "samples/kick.wav" {
		t.Errorf("sample = %q, want samples/kick.wav", got)
	}
	// the undefined $GAIN reference stays verbatim and warns
	if got := getOpcode(t, region.Opcodes, "volume"); got != "$GAIN" {
		t.Errorf("volume = %q, want the verbatim $GAIN reference", got)
	}
	if len(buf.Diagnostics) != 1 || buf.Diagnostics[0].Severity != sfz.SeverityWarning {
		t.Fatalf("diagnostics = %v, want one expansion warning", buf.Diagnostics)
	}
	if buf.Diagnostics[0].Pos.File != "regions.sfz" {
		t.Errorf("warning file = %q, want regions.sfz", buf.Diagnostics[0].Pos.File)
	}
}

// TestParseEmptyInput tests that empty and comment-only inputs parse to an
// empty buffer.
func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "// nothing here\n", "/* all\ncomment */\n"} {
		buf, err := ParseText(input, "test.sfz", nil)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", input, err)
		}
		if len(buf.Groups) != 0 || buf.Globals.Len() != 0 {
			t.Errorf("parse %q yielded non-empty buffer: %+v", input, buf)
		}
	}
}
