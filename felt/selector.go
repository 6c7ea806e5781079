package felt

import "golang.org/x/crypto/sha3"

// Selector returns the entrypoint selector for a contract function name:
// Keccak-256 of the name truncated to its low 250 bits.
func Selector(name string) Felt {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	sum := h.Sum(nil)
	sum[0] &= 0x03
	return FromBytes(sum)
}
