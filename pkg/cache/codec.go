// Package cache persists gathered release data as one file per release range,
// as plain JSON or LZ4-compressed JSON.
package cache

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	lz4Extension  = ".lz4"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Codec defines how an entry is serialized and deserialized.
type Codec interface {
	// Encode writes the entry to the writer.
	Encode(w io.Writer, entry any) error
	// Decode reads the entry from the reader.
	Decode(r io.Reader, entry any) error
	// Extension returns the file extension for this codec (e.g., ".json").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, entry any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(entry)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, entry any) error {
	decoder := json.NewDecoder(r)

	err := decoder.Decode(entry)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// LZ4Codec implements Codec by passing another codec's output through an LZ4
// frame. The wrapped extension gains a ".lz4" suffix.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec creates an LZ4 codec wrapping the given inner codec.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode implements Codec.Encode by compressing the inner codec's output.
func (c *LZ4Codec) Encode(w io.Writer, entry any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, entry)
	if err != nil {
		return err
	}

	closeErr := zw.Close()
	if closeErr != nil {
		return fmt.Errorf("lz4 flush: %w", closeErr)
	}

	return nil
}

// Decode implements Codec.Decode by decompressing before the inner codec runs.
func (c *LZ4Codec) Decode(r io.Reader, entry any) error {
	return c.Inner.Decode(lz4.NewReader(r), entry)
}

// Extension implements Codec.Extension for compressed files.
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}
