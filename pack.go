package sfmesh

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

// MATCHER_HC4 selects the hash-chain match finder, the only one whose
// output the lzma package decodes reliably. "bt4" is refused.
const MATCHER_HC4 = "hc4"

// dictionary of liblzma preset 9, the upper bound of the automatic size
const MAX_AUTO_DICT_CAP = 1 << 26

// streaming marker of the LZMA-alone size field
const unknownSize = ^uint64(0)

type PackOptions struct {
	// DictCap of 0 sizes the dictionary to the input.
	DictCap int
	Matcher string
	Prefix  string
}

func DefaultPackOptions() PackOptions {
	return PackOptions{Matcher: MATCHER_HC4, Prefix: PACKED_PREFIX}
}

// autoDictCap is the smallest power of two holding size bytes, clamped to
// [lzma.MinDictCap, MAX_AUTO_DICT_CAP].
func autoDictCap(size int) int {
	c := lzma.MinDictCap
	for c < size && c < MAX_AUTO_DICT_CAP {
		c <<= 1
	}
	return c
}

func (o PackOptions) writerConfig(size int) (lzma.WriterConfig, error) {
	cfg := lzma.WriterConfig{
		Properties: &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:    o.DictCap,
		EOSMarker:  true,
	}
	if cfg.DictCap == 0 {
		cfg.DictCap = autoDictCap(size)
	}
	switch o.Matcher {
	case "", MATCHER_HC4:
		cfg.Matcher = lzma.HashTable4
	case "bt4":
		return cfg, errors.New("lzma matcher bt4 produces corrupt streams, use hc4")
	default:
		return cfg, errors.Errorf("unknown lzma matcher %q", o.Matcher)
	}
	if err := cfg.Verify(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Compress produces a standard LZMA-alone stream with an unknown size field.
func Compress(raw []byte, opts PackOptions) ([]byte, error) {
	cfg, err := opts.writerConfig(len(raw))
	if err != nil {
		return nil, errors.Wrap(err, "lzma config")
	}
	var buf bytes.Buffer
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "lzma writer")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, errors.Wrap(err, "lzma compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "lzma close")
	}
	return buf.Bytes(), nil
}

// PatchSize stores size in bytes 5..12 of an LZMA-alone stream. The GLua
// decompressor cannot stream and needs the length up front.
func PatchSize(lz []byte, size uint64) error {
	if len(lz) < LZMA_HEADER_SIZE {
		return errors.Errorf("lzma stream too short: %d bytes", len(lz))
	}
	binary.LittleEndian.PutUint64(lz[LZMA_SIZE_OFFSET:LZMA_HEADER_SIZE], size)
	return nil
}

// Pack compresses raw, patches the size field and wraps the result as a
// base64 string literal.
func Pack(raw []byte, opts PackOptions) ([]byte, error) {
	lz, err := Compress(raw, opts)
	if err != nil {
		return nil, err
	}
	if err := PatchSize(lz, uint64(len(raw))); err != nil {
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = PACKED_PREFIX
	}
	out := make([]byte, 0, len(prefix)+base64.StdEncoding.EncodedLen(len(lz))+len(PACKED_SUFFIX))
	out = append(out, prefix...)
	out = base64.StdEncoding.AppendEncode(out, lz)
	out = append(out, PACKED_SUFFIX...)
	return out, nil
}

// PackedPayload strips the literal and returns the patched LZMA stream.
func PackedPayload(packed []byte) ([]byte, error) {
	start := bytes.IndexByte(packed, '"')
	end := bytes.LastIndexByte(packed, '"')
	if start < 0 || end <= start {
		return nil, errors.Wrap(ErrInvalidPacked, "missing quotes")
	}
	lz, err := base64.StdEncoding.DecodeString(string(packed[start+1 : end]))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPacked, err.Error())
	}
	if len(lz) < LZMA_HEADER_SIZE {
		return nil, errors.Wrap(ErrInvalidPacked, "lzma header truncated")
	}
	return lz, nil
}

// Unpack reverses Pack. The size field is restored to the streaming marker
// before decoding and the decoded length is checked against it.
func Unpack(packed []byte) ([]byte, error) {
	lz, err := PackedPayload(packed)
	if err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint64(lz[LZMA_SIZE_OFFSET:LZMA_HEADER_SIZE])
	stream := append([]byte(nil), lz...)
	binary.LittleEndian.PutUint64(stream[LZMA_SIZE_OFFSET:LZMA_HEADER_SIZE], unknownSize)
	r, err := lzma.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, errors.Wrap(err, "lzma reader")
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "lzma decompress")
	}
	if size != unknownSize && uint64(len(raw)) != size {
		return nil, errors.Wrapf(ErrInvalidPacked, "size field %d, decoded %d bytes", size, len(raw))
	}
	return raw, nil
}
