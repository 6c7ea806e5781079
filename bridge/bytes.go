package bridge

import (
	"fmt"

	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
)

// FeltsToBytes decodes one byte per element. An element above 0xff is an
// error unless lossy is set, in which case it is dropped and the following
// bytes shift left.
func FeltsToBytes(felts []felt.Felt, lossy bool) ([]byte, error) {
	out := make([]byte, 0, len(felts))
	for i, f := range felts {
		if !f.IsUint64() || f.Uint64() > 0xff {
			if lossy {
				log.Debug(log.CodecMonitoring, "dropping non-byte element", "index", i, "value", f)
				continue
			}
			return nil, fmt.Errorf("element %d is %s, not a byte", i, f)
		}
		out = append(out, byte(f.Uint64()))
	}
	return out, nil
}

// FeltsToBigEndianBytes concatenates the minimal big-endian bytes of every
// element. Zero contributes a single 0x00 so byte-per-element input decodes
// the same as FeltsToBytes. It never fails.
func FeltsToBigEndianBytes(felts []felt.Felt) []byte {
	out := make([]byte, 0, len(felts))
	for _, f := range felts {
		if f.IsZero() {
			out = append(out, 0)
			continue
		}
		out = append(out, f.BigInt().Bytes()...)
	}
	return out
}

// BytesToFelts encodes one byte per element.
func BytesToFelts(b []byte) []felt.Felt {
	out := make([]felt.Felt, len(b))
	for i, x := range b {
		out[i] = felt.FromUint64(uint64(x))
	}
	return out
}
