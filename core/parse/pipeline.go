package parse

import (
	"github.com/FocuswithJustin/JuniperSFZ/core/lex"
	"github.com/FocuswithJustin/JuniperSFZ/core/preprocess"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// ParseFile runs the full pipeline over the SFZ file at path: directive
// expansion, tokenization, and parsing. Diagnostics from all three stages
// are merged onto the buffer in stage order. A nil loader defaults to
// reading from the local file system.
func ParseFile(path string, loader preprocess.Loader) (*sfz.ParsedBuffer, error) {
	frags, ppDiags, err := preprocess.Expand(path, loader)
	if err != nil {
		return nil, err
	}
	return parseFragments(frags, ppDiags)
}

// ParseText runs the full pipeline over in-memory SFZ text. path is used
// for diagnostics and to resolve any includes against loader; a nil loader
// makes includes fail.
func ParseText(text, path string, loader preprocess.Loader) (*sfz.ParsedBuffer, error) {
	frags, ppDiags, err := preprocess.ExpandText(text, path, loader)
	if err != nil {
		return nil, err
	}
	return parseFragments(frags, ppDiags)
}

func parseFragments(frags []sfz.SourceFragment, ppDiags []sfz.Diagnostic) (*sfz.ParsedBuffer, error) {
	tokens, lexDiags, err := lex.TokenizeAll(frags)
	if err != nil {
		return nil, err
	}
	buf, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	merged := make([]sfz.Diagnostic, 0, len(ppDiags)+len(lexDiags)+len(buf.Diagnostics))
	merged = append(merged, ppDiags...)
	merged = append(merged, lexDiags...)
	merged = append(merged, buf.Diagnostics...)
	buf.Diagnostics = merged
	return buf, nil
}
