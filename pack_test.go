package sfmesh

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

func payload(t *testing.T, packed []byte) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(packed, []byte(PACKED_PREFIX)))
	require.True(t, bytes.HasSuffix(packed, []byte(PACKED_SUFFIX)))
	lz, err := base64.StdEncoding.DecodeString(string(packed[len(PACKED_PREFIX) : len(packed)-len(PACKED_SUFFIX)]))
	require.NoError(t, err)
	return lz
}

func TestPackSizeField(t *testing.T) {
	raw, _ := SceneBytes(NewScene(meshWithTriangles("Cube", 12)))

	packed, err := Pack(raw, DefaultPackOptions())
	require.NoError(t, err)

	lz := payload(t, packed)
	require.True(t, len(lz) >= LZMA_HEADER_SIZE)
	assert.Equal(t, uint64(len(raw)), binary.LittleEndian.Uint64(lz[LZMA_SIZE_OFFSET:]))
	// lc=3 lp=0 pb=2
	assert.Equal(t, byte(0x5d), lz[0])

	back, err := Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestPackEmptyScene(t *testing.T) {
	raw, _ := SceneBytes(NewScene())
	packed, err := Pack(raw, DefaultPackOptions())
	require.NoError(t, err)

	lz := payload(t, packed)
	assert.Equal(t, uint64(11), binary.LittleEndian.Uint64(lz[LZMA_SIZE_OFFSET:]))

	back, err := Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestPackOptions(t *testing.T) {
	raw, _ := SceneBytes(NewScene(meshWithTriangles("A", 40), meshWithTriangles("B", 3)))

	tests := []struct {
		name string
		opts PackOptions
	}{
		{"Default", DefaultPackOptions()},
		{"HashChain", PackOptions{Matcher: MATCHER_HC4}},
		{"SmallDict", PackOptions{DictCap: lzma.MinDictCap, Matcher: MATCHER_HC4}},
		{"Prefix", PackOptions{Prefix: `mesh = "`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Pack(raw, tt.opts)
			require.NoError(t, err)
			if tt.opts.Prefix != "" {
				assert.True(t, bytes.HasPrefix(packed, []byte(tt.opts.Prefix)))
			}
			back, err := Unpack(packed)
			require.NoError(t, err)
			assert.Equal(t, raw, back)
		})
	}
}

func TestPackUnknownMatcher(t *testing.T) {
	_, err := Pack([]byte{1, 2, 3}, PackOptions{Matcher: "zip"})
	assert.Error(t, err)
	_, err = Pack([]byte{1, 2, 3}, PackOptions{Matcher: "bt4"})
	assert.Error(t, err)
}

func TestPackDefaultMatcherDecodes(t *testing.T) {
	assert.Equal(t, MATCHER_HC4, DefaultPackOptions().Matcher)

	for _, scene := range []*Scene{NewScene(), NewScene(meshWithTriangles("Cube", 12))} {
		raw, _ := SceneBytes(scene)
		lz, err := Compress(raw, DefaultPackOptions())
		require.NoError(t, err)

		r, err := lzma.NewReader(bytes.NewReader(lz))
		require.NoError(t, err)
		back, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, raw, back)
	}
}

func TestAutoDictCap(t *testing.T) {
	assert.Equal(t, lzma.MinDictCap, autoDictCap(0))
	assert.Equal(t, lzma.MinDictCap, autoDictCap(lzma.MinDictCap))
	assert.Equal(t, 1<<20, autoDictCap(1<<20-1))
	assert.Equal(t, 1<<21, autoDictCap(1<<20+1))
	assert.Equal(t, MAX_AUTO_DICT_CAP, autoDictCap(1<<30))
}

func TestPatchSizeShort(t *testing.T) {
	assert.Error(t, PatchSize(make([]byte, LZMA_HEADER_SIZE-1), 5))

	lz := make([]byte, LZMA_HEADER_SIZE)
	require.NoError(t, PatchSize(lz, 0x0102))
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, lz[LZMA_SIZE_OFFSET:])
}

func TestUnpackInvalid(t *testing.T) {
	raw, _ := SceneBytes(NewScene(meshWithTriangles("Cube", 2)))
	packed, err := Pack(raw, DefaultPackOptions())
	require.NoError(t, err)

	lz := payload(t, packed)
	binary.LittleEndian.PutUint64(lz[LZMA_SIZE_OFFSET:], uint64(len(raw)+1))
	wrongSize := []byte(PACKED_PREFIX + base64.StdEncoding.EncodeToString(lz) + PACKED_SUFFIX)

	tests := []struct {
		name   string
		packed []byte
	}{
		{"NoQuotes", []byte("return nil")},
		{"BadBase64", []byte(`return "!!!"`)},
		{"ShortHeader", []byte(`return "AAAA"`)},
		{"WrongSize", wrongSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(tt.packed)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPacked))
		})
	}
}
