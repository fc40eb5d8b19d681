// Package convert turns a parsed SFZ buffer into a JSON-friendly sample
// document for use with external programs (e.g. SuperCollider).
//
// The document maps group labels to 128 per-MIDI-note sample lists. A
// region with lokey/hikey/pitch_keycenter fans out across its key range
// with a per-note tune adjustment; a region with only pitch_keycenter
// lands on that single note. Regions with neither are skipped, as are
// groups that contribute no samples.
package convert

import (
	"path/filepath"
	"strconv"

	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

// midiNotes is the number of addressable MIDI notes.
const midiNotes = 128

// Sample is the resolved opcode set for one playable sample placement.
type Sample map[string]string

// Document maps group labels to per-MIDI-note sample lists. Each group has
// exactly 128 note slots; notes a group does not cover hold empty lists.
type Document map[string][][]Sample

// rangeOpcodes are excluded from fanned-out samples; their information is
// encoded in the note slot and the tune adjustment instead.
var rangeOpcodes = map[string]bool{
	"lokey":           true,
	"hikey":           true,
	"pitch_keycenter": true,
}

// Build converts a parsed buffer into a sample document. Opcode values are
// resolved through the inheritance chain (region, then group defaults,
// then globals); the control/global scope's default_path is joined onto
// every sample path.
func Build(buf *sfz.ParsedBuffer) Document {
	doc := make(Document)
	defaultPath, _ := buf.Globals.Get("default_path")

	for _, group := range buf.Groups {
		collection := newCollection()
		used := false
		for _, region := range group.Regions {
			if placeRegion(buf, group, region, defaultPath, collection) {
				used = true
			}
		}
		if used {
			doc[groupLabel(buf, group)] = collection
		}
	}
	return doc
}

func newCollection() [][]Sample {
	collection := make([][]Sample, midiNotes)
	for i := range collection {
		collection[i] = []Sample{}
	}
	return collection
}

// groupLabel resolves the group's label, falling back to "group".
func groupLabel(buf *sfz.ParsedBuffer, g *sfz.Group) string {
	if label, ok := buf.Resolve(g, nil, "group_label"); ok {
		return label
	}
	return "group"
}

// placeRegion resolves a region's effective opcodes and places its samples
// into the collection. Returns true if any sample was placed.
func placeRegion(buf *sfz.ParsedBuffer, g *sfz.Group, r *sfz.Region, defaultPath string, collection [][]Sample) bool {
	lokey, hasLokey := resolveInt(buf, g, r, "lokey")
	hikey, hasHikey := resolveInt(buf, g, r, "hikey")
	center, hasCenter := resolveInt(buf, g, r, "pitch_keycenter")

	if hasLokey && hasHikey && hasCenter {
		placed := false
		for note := max(lokey, 0); note <= hikey && note < midiNotes; note++ {
			sample := effectiveOpcodes(buf, g, r, true)
			adjustTune(sample, (note-center)*100)
			joinSamplePath(sample, defaultPath)
			collection[note] = append(collection[note], sample)
			placed = true
		}
		return placed
	}

	if hasCenter && center >= 0 && center < midiNotes {
		sample := effectiveOpcodes(buf, g, r, false)
		joinSamplePath(sample, defaultPath)
		collection[center] = append(collection[center], sample)
		return true
	}

	// no placement information; the region cannot be addressed
	return false
}

// effectiveOpcodes flattens the inheritance chain into one opcode set:
// globals first, overlaid by group defaults, overlaid by region opcodes.
func effectiveOpcodes(buf *sfz.ParsedBuffer, g *sfz.Group, r *sfz.Region, dropRange bool) Sample {
	sample := make(Sample)
	layer := func(m *sfz.OpcodeMap) {
		for _, k := range m.Keys() {
			if dropRange && rangeOpcodes[k] {
				continue
			}
			v, _ := m.Get(k)
			sample[k] = v
		}
	}
	layer(buf.Globals)
	layer(g.Defaults)
	layer(r.Opcodes)
	delete(sample, "default_path")
	delete(sample, "group_label")
	return sample
}

// adjustTune adds delta cents to the sample's tune opcode, treating an
// absent or non-numeric tune as zero.
func adjustTune(sample Sample, delta int) {
	base := 0
	if v, ok := sample["tune"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			base = n
		}
	}
	sample["tune"] = strconv.Itoa(base + delta)
}

// joinSamplePath prefixes the sample path with the control scope's
// default_path, if any.
func joinSamplePath(sample Sample, defaultPath string) {
	if defaultPath == "" {
		return
	}
	if p, ok := sample["sample"]; ok {
		sample["sample"] = filepath.Join(defaultPath, p)
	}
}

// resolveInt resolves an opcode through the inheritance chain and parses
// it as an integer. Non-numeric values are treated as absent.
func resolveInt(buf *sfz.ParsedBuffer, g *sfz.Group, r *sfz.Region, key string) (int, bool) {
	v, ok := buf.Resolve(g, r, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
