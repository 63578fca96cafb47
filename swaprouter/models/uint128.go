package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnderflow is returned when a checked subtraction would go below zero
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrOverflow is returned when a result does not fit in 128 bits
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrDivideByZero is returned by MultiplyRatio with a zero denominator
	ErrDivideByZero = errors.New("divide by zero")
)

const uint128Bits = 128

// Uint128 is an unsigned 128-bit amount. The zero value is 0.
// It is encoded in JSON as a quoted decimal string, e.g. "1000000".
type Uint128 struct {
	v uint256.Int
}

// NewUint128 returns n as a Uint128
func NewUint128(n uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(n)
	return u
}

// ParseUint128 parses a base 10 string
func ParseUint128(s string) (Uint128, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Uint128{}, fmt.Errorf("invalid amount: empty string")
	}
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return Uint128{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if i.BitLen() > uint128Bits {
		return Uint128{}, fmt.Errorf("invalid amount %q: %w", s, ErrOverflow)
	}
	return Uint128{v: *i}, nil
}

// MustParseUint128 is ParseUint128 that panics on error. Intended for constants and tests.
func MustParseUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

func fromUint256(i *uint256.Int) (Uint128, error) {
	if i.BitLen() > uint128Bits {
		return Uint128{}, ErrOverflow
	}
	return Uint128{v: *i}, nil
}

// CheckedAdd returns a + b or ErrOverflow
func (a Uint128) CheckedAdd(b Uint128) (Uint128, error) {
	var out uint256.Int
	if _, overflow := out.AddOverflow(&a.v, &b.v); overflow {
		return Uint128{}, ErrOverflow
	}
	return fromUint256(&out)
}

// CheckedSub returns a - b or ErrUnderflow
func (a Uint128) CheckedSub(b Uint128) (Uint128, error) {
	var out uint256.Int
	if _, underflow := out.SubOverflow(&a.v, &b.v); underflow {
		return Uint128{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return Uint128{v: out}, nil
}

// CheckedMul returns a * b or ErrOverflow
func (a Uint128) CheckedMul(b Uint128) (Uint128, error) {
	var out uint256.Int
	if _, overflow := out.MulOverflow(&a.v, &b.v); overflow {
		return Uint128{}, ErrOverflow
	}
	return fromUint256(&out)
}

// MultiplyRatio returns floor(a * num / den). The intermediate product is 256 bits wide
// so it cannot overflow for 128-bit operands.
func (a Uint128) MultiplyRatio(num, den Uint128) (Uint128, error) {
	if den.IsZero() {
		return Uint128{}, ErrDivideByZero
	}
	var out uint256.Int
	if _, overflow := out.MulDivOverflow(&a.v, &num.v, &den.v); overflow {
		return Uint128{}, ErrOverflow
	}
	return fromUint256(&out)
}

// MulDecimalFloor returns floor(a * d). Negative d is rejected.
func (a Uint128) MulDecimalFloor(d decimal.Decimal) (Uint128, error) {
	if d.IsNegative() {
		return Uint128{}, fmt.Errorf("negative multiplier %s", d)
	}
	product := decimal.NewFromBigInt(a.v.ToBig(), 0).Mul(d).Floor()
	i, overflow := uint256.FromBig(product.BigInt())
	if overflow {
		return Uint128{}, ErrOverflow
	}
	return fromUint256(i)
}

// Min returns the smaller of a and b
func (a Uint128) Min(b Uint128) Uint128 {
	if a.LT(b) {
		return a
	}
	return b
}

// Cmp compares a and b and returns -1, 0 or +1
func (a Uint128) Cmp(b Uint128) int {
	return a.v.Cmp(&b.v)
}

func (a Uint128) LT(b Uint128) bool { return a.v.Lt(&b.v) }
func (a Uint128) GT(b Uint128) bool { return a.v.Gt(&b.v) }
func (a Uint128) Equal(b Uint128) bool { return a.v.Eq(&b.v) }
func (a Uint128) IsZero() bool { return a.v.IsZero() }

// Decimal returns the amount as an integral decimal.Decimal
func (a Uint128) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), 0)
}

func (a Uint128) String() string {
	return a.v.Dec()
}

// MarshalJSON encodes the amount as a quoted decimal string
func (a Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted decimal string. Bare JSON numbers are accepted as well
// since some LCD endpoints return them.
func (a *Uint128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return fmt.Errorf("invalid amount %s: %w", string(data), err)
		}
		s = n.String()
	}
	parsed, err := ParseUint128(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText lets Uint128 be used by TOML/YAML encoders and flag parsing
func (a Uint128) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Uint128) UnmarshalText(text []byte) error {
	parsed, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
