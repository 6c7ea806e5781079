// Package felt implements the native ledger's field element, an integer
// modulo the STARK prime p = 2^251 + 17*2^192 + 1.
package felt

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/holiman/uint256"
)

// Size is the width in bytes of a serialized field element.
const Size = fp.Bytes

// Felt is a native field element. The zero value is 0.
type Felt fp.Element

// Zero is the additive identity.
var Zero Felt

// One returns 1.
func One() Felt {
	return FromUint64(1)
}

// Max returns p - 1, the largest representable element.
func Max() Felt {
	var e fp.Element
	e.SetOne()
	e.Neg(&e)
	return Felt(e)
}

// Modulus returns a fresh copy of p.
func Modulus() *big.Int {
	return fp.Modulus()
}

// FromUint64 returns v as a field element.
func FromUint64(v uint64) Felt {
	var e fp.Element
	e.SetUint64(v)
	return Felt(e)
}

// FromBytes interprets b as a big-endian integer reduced modulo p.
func FromBytes(b []byte) Felt {
	var e fp.Element
	e.SetBytes(b)
	return Felt(e)
}

// FromBigInt converts v, rejecting values outside [0, p).
func FromBigInt(v *big.Int) (Felt, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return Zero, fmt.Errorf("value %v is not a field element", v)
	}
	var e fp.Element
	e.SetBigInt(v)
	return Felt(e), nil
}

// FromHex parses a 0x-prefixed (or bare) hexadecimal string.
func FromHex(s string) (Felt, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return Zero, fmt.Errorf("empty felt hex string %q", s)
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return Zero, fmt.Errorf("invalid felt hex string %q", s)
	}
	return FromBigInt(v)
}

// MustHex is FromHex for compile-time constants. It panics on bad input.
func MustHex(s string) Felt {
	f, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Bytes returns the 32-byte big-endian representation.
func (f Felt) Bytes() [Size]byte {
	e := fp.Element(f)
	return e.Bytes()
}

// BigInt returns the canonical integer value.
func (f Felt) BigInt() *big.Int {
	e := fp.Element(f)
	return e.BigInt(new(big.Int))
}

// Uint256 returns the value as a 256-bit integer.
func (f Felt) Uint256() *uint256.Int {
	b := f.Bytes()
	return new(uint256.Int).SetBytes32(b[:])
}

func (f Felt) IsZero() bool {
	e := fp.Element(f)
	return e.IsZero()
}

func (f Felt) Equal(g Felt) bool {
	a, b := fp.Element(f), fp.Element(g)
	return a.Equal(&b)
}

// IsUint64 reports whether the value fits in a uint64.
func (f Felt) IsUint64() bool {
	e := fp.Element(f)
	return e.IsUint64()
}

// Uint64 returns the low 64 bits of the value.
func (f Felt) Uint64() uint64 {
	e := fp.Element(f)
	return e.Uint64()
}

// String returns the minimal 0x-prefixed hex form used on the native JSON-RPC.
func (f Felt) String() string {
	return "0x" + f.BigInt().Text(16)
}

func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("felt must be a hex string: %w", err)
	}
	v, err := FromHex(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Felt) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
