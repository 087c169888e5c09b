package engine

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
)

// CodecZstd is the only block codec written by the builder.
const CodecZstd = "zstd"

// recordHeaderSize is the CRC32 prefix in front of every stored zstd frame.
const recordHeaderSize = 4

// blockEncoder turns plain residue blocks into stored records: crc32 || zstd frame.
type blockEncoder struct {
	enc *zstd.Encoder
}

func newBlockEncoder(level string) (*blockEncoder, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &blockEncoder{enc: enc}, nil
}

func (e *blockEncoder) encode(plain []byte) []byte {
	out := make([]byte, recordHeaderSize, recordHeaderSize+len(plain)/2)
	binary.LittleEndian.PutUint32(out, crc32.ChecksumIEEE(plain))
	return e.enc.EncodeAll(plain, out)
}

func (e *blockEncoder) Close() error {
	return e.enc.Close()
}

// blockDecoder verifies and decompresses stored records.
type blockDecoder struct {
	dec *zstd.Decoder
}

func newBlockDecoder() (*blockDecoder, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &blockDecoder{dec: dec}, nil
}

// decode returns the plain block. wantLen is the residue count the manifest promises for
// this block; any mismatch in length or checksum is reported as ErrCorrupt.
func (d *blockDecoder) decode(record []byte, wantLen int) ([]byte, error) {
	if len(record) < recordHeaderSize {
		return nil, fmt.Errorf("%w: block record too short (%d bytes)", ErrCorrupt, len(record))
	}
	sum := binary.LittleEndian.Uint32(record[:recordHeaderSize])
	plain, err := d.dec.DecodeAll(record[recordHeaderSize:], make([]byte, 0, wantLen))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress block: %v", ErrCorrupt, err)
	}
	if len(plain) != wantLen {
		return nil, fmt.Errorf("%w: block holds %d residues, expected %d", ErrCorrupt, len(plain), wantLen)
	}
	if crc32.ChecksumIEEE(plain) != sum {
		return nil, fmt.Errorf("%w: block checksum mismatch", ErrCorrupt)
	}
	return plain, nil
}

func (d *blockDecoder) Close() {
	d.dec.Close()
}

// ParseLevel maps a configuration level name onto a zstd encoder level.
// Accepted names are fastest, default, better and best.
func ParseLevel(name string) (zstd.EncoderLevel, error) {
	if name == "" {
		return zstd.SpeedDefault, nil
	}
	ok, lvl := zstd.EncoderLevelFromString(name)
	if !ok {
		return 0, fmt.Errorf("unknown compression level %q", name)
	}
	return lvl, nil
}
