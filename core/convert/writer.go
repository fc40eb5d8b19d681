package convert

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// xzNewWriter and xzNewReader are variables to allow testing of
// compression errors.
var (
	xzNewWriter = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	xzNewReader = func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }
)

// CompressionType identifies the output compression.
type CompressionType string

// Supported compressions.
const (
	CompressionNone CompressionType = "none"
	CompressionXZ   CompressionType = "xz"
)

// WriteOptions controls document serialization.
type WriteOptions struct {
	Pretty      bool
	Compression CompressionType
}

// DefaultWriteOptions returns the default serialization options:
// compact JSON, no compression.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{Compression: CompressionNone}
}

// WriteJSON serializes the document as JSON to w.
func WriteJSON(w io.Writer, doc Document, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}

// WriteFile serializes the document to path, optionally xz-compressed.
func WriteFile(path string, doc Document, opts *WriteOptions) error {
	if opts == nil {
		opts = DefaultWriteOptions()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	switch opts.Compression {
	case CompressionXZ:
		compressWriter, err := xzNewWriter(file)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		defer compressWriter.Close()
		w = compressWriter
	case CompressionNone:
	default:
		return fmt.Errorf("unsupported compression type: %s", opts.Compression)
	}

	if err := WriteJSON(w, doc, opts.Pretty); err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	return nil
}

// ReadFile reads a document back from path. Files ending in .xz are
// decompressed transparently.
func ReadFile(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".xz") {
		xzReader, err := xzNewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xzReader
	}

	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}
