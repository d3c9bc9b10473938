// Package fixed64 implements signed 64.64 fixed point arithmetic on an
// arbitrary precision backing, together with the base unit scaling shared by
// all monetary amounts.
package fixed64

import (
	"math/big"

	"github.com/iotaledger/hive.go/ierrors"
)

// ErrOverflow is returned when the result of a checked operation leaves the
// representable 64.64 range.
var ErrOverflow = ierrors.New("fixed point overflow")

// floatPrecision is the mantissa size used for exponentiation. 512 bits give
// roughly 154 significant decimal digits, twice the precision the decay curve
// needs to round deterministically.
const floatPrecision = 512

var (
	// EXA scales whole coins to base units (18 decimals).
	EXA = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	rawOne = new(big.Int).Lsh(big.NewInt(1), 64)
	rawMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	rawMin = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	floatOne = new(big.Float).SetPrec(floatPrecision).SetInt(rawOne)
)

// Int is an immutable 64.64 fixed point number. The zero value is zero. The
// represented real value is the backing integer divided by 2^64, bounded to
// the two's complement 128 bit range [-2^127, 2^127-1] in backing units.
type Int struct {
	v *big.Int
}

// One is the fixed point representation of 1.
var One = Int{v: rawOne}

// FromInt64 converts a whole number to fixed point. The full int64 range is
// representable.
func FromInt64(v int64) Int {
	return Int{v: new(big.Int).Lsh(big.NewInt(v), 64)}
}

// FromRawUint64 adopts an already scaled 64 bit value, such as the quantized
// decay constants.
func FromRawUint64(raw uint64) Int {
	return Int{v: new(big.Int).SetUint64(raw)}
}

// FromRaw adopts an already scaled value.
func FromRaw(raw *big.Int) (Int, error) {
	if err := checkRaw(raw); err != nil {
		return Int{}, err
	}

	return Int{v: new(big.Int).Set(raw)}, nil
}

// FromBigFloat rounds a real value to the nearest representable fixed point
// number, half away from zero.
func FromBigFloat(f *big.Float) (Int, error) {
	scaled := new(big.Float).SetPrec(floatPrecision).Mul(f, floatOne)
	half := big.NewFloat(0.5)
	if scaled.Signbit() {
		scaled.Sub(scaled, half)
	} else {
		scaled.Add(scaled, half)
	}
	raw, _ := scaled.Int(nil)

	return FromRaw(raw)
}

// Add returns x + y, checked against the representable range.
func (x Int) Add(y Int) (Int, error) {
	sum := new(big.Int).Add(x.raw(), y.raw())
	if err := checkRaw(sum); err != nil {
		return Int{}, err
	}

	return Int{v: sum}, nil
}

// Sub returns x - y, checked against the representable range.
func (x Int) Sub(y Int) (Int, error) {
	diff := new(big.Int).Sub(x.raw(), y.raw())
	if err := checkRaw(diff); err != nil {
		return Int{}, err
	}

	return Int{v: diff}, nil
}

// Mul returns x * y with the product scaled back down by 2^64, truncated
// toward zero and checked against the representable range.
func (x Int) Mul(y Int) (Int, error) {
	product := new(big.Int).Mul(x.raw(), y.raw())
	product.Quo(product, rawOne)
	if err := checkRaw(product); err != nil {
		return Int{}, err
	}

	return Int{v: product}, nil
}

// MulBig multiplies the fixed point value with a plain integer and returns the
// plain integer result, truncated toward zero. The result is unbounded, any
// ceiling is the caller's to enforce.
func (x Int) MulBig(v *big.Int) *big.Int {
	product := new(big.Int).Mul(x.raw(), v)

	return product.Quo(product, rawOne)
}

// Pow returns x^n for n >= 0, computed at floatPrecision and rounded to the
// nearest representable value. Pow(0) is One for every base.
func (x Int) Pow(n int64) (Int, error) {
	if n < 0 {
		return Int{}, ierrors.Errorf("negative exponent %d", n)
	}

	base := new(big.Float).SetPrec(floatPrecision).SetInt(x.raw())
	base.Quo(base, floatOne)
	acc := new(big.Float).SetPrec(floatPrecision).SetInt64(1)
	for n > 0 {
		if n&1 == 1 {
			acc.Mul(acc, base)
		}
		base.Mul(base, base)
		n >>= 1
	}

	result, err := FromBigFloat(acc)
	if err != nil {
		return Int{}, ierrors.Wrap(err, "exponentiation left the representable range")
	}

	return result, nil
}

// Cmp compares x and y, returning -1, 0 or 1.
func (x Int) Cmp(y Int) int {
	return x.raw().Cmp(y.raw())
}

// Sign returns the sign of x as -1, 0 or 1.
func (x Int) Sign() int {
	return x.raw().Sign()
}

// IsZero reports whether x is zero.
func (x Int) IsZero() bool {
	return x.raw().Sign() == 0
}

// Raw returns a copy of the scaled backing integer.
func (x Int) Raw() *big.Int {
	return new(big.Int).Set(x.raw())
}

// Float64 returns the represented real value as a float64, for reporting.
func (x Int) Float64() float64 {
	value := new(big.Float).SetPrec(floatPrecision).SetInt(x.raw())
	value.Quo(value, floatOne)
	f, _ := value.Float64()

	return f
}

func (x Int) String() string {
	value := new(big.Float).SetPrec(floatPrecision).SetInt(x.raw())
	value.Quo(value, floatOne)

	return value.Text('g', 20)
}

// Coins returns the given amount of whole coins in base units.
func Coins(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), EXA)
}

func (x Int) raw() *big.Int {
	if x.v == nil {
		return bigZero
	}

	return x.v
}

var bigZero = big.NewInt(0)

func checkRaw(raw *big.Int) error {
	if raw.Cmp(rawMin) < 0 || raw.Cmp(rawMax) > 0 {
		return ierrors.Wrapf(ErrOverflow, "scaled value %s is outside the representable range", raw)
	}

	return nil
}
