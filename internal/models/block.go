package models

import (
	"encoding/binary"
	"fmt"
)

// BlockKey addresses one compressed block of a contig by ordinal positions.
// Sample and Contig are indexes into the manifest, Block is the block number within the contig.
type BlockKey struct {
	Sample int
	Contig int
	Block  int
}

// Bytes encodes the key as 12 big-endian bytes so that byte order matches archive order.
func (k BlockKey) Bytes() []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(k.Sample))
	binary.BigEndian.PutUint32(buf[4:8], uint32(k.Contig))
	binary.BigEndian.PutUint32(buf[8:12], uint32(k.Block))
	return buf
}

func (k BlockKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Sample, k.Contig, k.Block)
}
