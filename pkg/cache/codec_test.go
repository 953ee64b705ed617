package cache

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEntry is a struct for round-trip codec testing.
type testEntry struct {
	Range string   `json:"range"`
	Lines []string `json:"lines"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	original := testEntry{
		Range: "v1.0..v1.1",
		Lines: []string{"* first", "* second"},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testEntry

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original, decoded)
}

func TestJSONCodec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", NewJSONCodec().Extension())
}

func TestJSONCodec_PrettyPrint(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testEntry{Range: "pretty"}))

	assert.Contains(t, buf.String(), "\n"+defaultIndent+`"range"`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestJSONCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testEntry

	err := NewJSONCodec().Decode(strings.NewReader("not valid json{{{"), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestLZ4Codec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewLZ4Codec(NewJSONCodec())

	original := testEntry{
		Range: "v2.0..v2.1",
		Lines: []string{"* compressed line"},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testEntry

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original, decoded)
}

func TestLZ4Codec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json.lz4", NewLZ4Codec(NewJSONCodec()).Extension())
}

func TestLZ4Codec_OutputIsFramed(t *testing.T) {
	t.Parallel()

	codec := NewLZ4Codec(NewJSONCodec())

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testEntry{Range: "framed"}))

	// LZ4 frame magic number.
	require.GreaterOrEqual(t, buf.Len(), 4)
	assert.Equal(t, []byte{0x04, 0x22, 0x4d, 0x18}, buf.Bytes()[:4])
}

func TestLZ4Codec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testEntry

	err := NewLZ4Codec(NewJSONCodec()).Decode(strings.NewReader("plain text, no frame"), &decoded)

	require.Error(t, err)
}
