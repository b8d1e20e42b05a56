package runtime

import (
	"unsafe"

	"github.com/sigurn/crc16"
)

var headerChecksumTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// HeaderChecksum computes a CRC-16 over the live prefix of the active
// half-space, word by word (headers and payloads alike). It exists purely
// as a cheap "did anything in this region change" signal for tests that
// want to assert that collecting an all-live heap again leaves the live
// prefix bit-for-bit the same (spec.md §8's round-trip property); the
// collector itself never computes or checks it.
func (e *Engine) HeaderChecksum() uint16 {
	n := (e.bump - e.from.base) / wordSize
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(e.from.base)), n*wordSize)
	return crc16.Checksum(bytes, headerChecksumTable)
}
