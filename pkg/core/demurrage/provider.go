// Package demurrage derives the per day decay of balances and supplies.
package demurrage

import (
	"math/big"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/zyedidia/generic/cache"

	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

// Gamma64x64 is the per day decay factor in 64.64 fixed point, quantized
// from GammaDecimal.
const Gamma64x64 uint64 = 18443079296116538654

// Beta64x64 is the per day inflation factor, the reciprocal of gamma, in
// 64.64 fixed point. Lying above one it exceeds the uint64 range and is
// carried as a fixed point value directly.
var Beta64x64 = lo.PanicOnErr(fixed64.FromRaw(lo.Return1(new(big.Int).SetString("18450409579521241655", 10))))

// GammaDecimal is the per day decay factor at full precision. The issuance
// curve is computed from this string, balance discounting uses the quantized
// Gamma64x64.
const GammaDecimal = "0.9998013320085989574306134065681911664857225676913333806934"

// MaxValue is the ceiling of every supply, the largest unsigned 192 bit
// value. Issuance that would push a supply past it is forfeited.
var MaxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 192), big.NewInt(1))

// factorCacheCapacity bounds the per provider LRUs of computed factors.
const factorCacheCapacity = 512

// Provider converts ticks to day indexes and applies decay and inflation
// factors to balances. Factors are quantized before use so that repeated
// discounting is reproducible across runs.
type Provider struct {
	window      int64
	epochOffset int64

	gamma fixed64.Int
	beta  fixed64.Int

	decayCache     *cache.Cache[int64, fixed64.Int]
	inflationCache *cache.Cache[int64, fixed64.Int]
	cacheMutex     syncutils.Mutex
}

// NewProvider creates a Provider for the given parameters.
func NewProvider(parameters *model.Parameters) *Provider {
	return &Provider{
		window:         parameters.DemurrageWindow,
		epochOffset:    parameters.EpochOffset,
		gamma:          fixed64.FromRawUint64(Gamma64x64),
		beta:           Beta64x64,
		decayCache:     cache.New[int64, fixed64.Int](factorCacheCapacity),
		inflationCache: cache.New[int64, fixed64.Int](factorCacheCapacity),
	}
}

// DayIndex returns the demurrage day the given tick falls into. Ticks before
// the epoch offset land on negative days.
func (p *Provider) DayIndex(t model.Tick) int64 {
	elapsed := int64(t) - p.epochOffset
	day := elapsed / p.window
	if elapsed < 0 && elapsed%p.window != 0 {
		day--
	}

	return day
}

// DecayFactor returns gamma^dayDiff in fixed point.
func (p *Provider) DecayFactor(dayDiff int64) (fixed64.Int, error) {
	if dayDiff < 0 {
		return fixed64.Int{}, ierrors.Errorf("cannot decay across a negative day span %d", dayDiff)
	}
	if dayDiff == 0 {
		return fixed64.One, nil
	}

	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()

	if factor, exists := p.decayCache.Get(dayDiff); exists {
		return factor, nil
	}

	factor, err := p.gamma.Pow(dayDiff)
	if err != nil {
		return fixed64.Int{}, ierrors.Wrapf(err, "failed to compute decay factor for day span %d", dayDiff)
	}
	p.decayCache.Put(dayDiff, factor)

	return factor, nil
}

// InflationFactor returns beta^dayIndex in fixed point.
func (p *Provider) InflationFactor(dayIndex int64) (fixed64.Int, error) {
	if dayIndex < 0 {
		return fixed64.Int{}, ierrors.Errorf("cannot inflate across a negative day span %d", dayIndex)
	}
	if dayIndex == 0 {
		return fixed64.One, nil
	}

	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()

	if factor, exists := p.inflationCache.Get(dayIndex); exists {
		return factor, nil
	}

	factor, err := p.beta.Pow(dayIndex)
	if err != nil {
		return fixed64.Int{}, ierrors.Wrapf(err, "failed to compute inflation factor for day %d", dayIndex)
	}
	p.inflationCache.Put(dayIndex, factor)

	return factor, nil
}

// DiscountedBalance applies dayDiff days of demurrage to the balance. A zero
// day span returns the balance unchanged, without rounding.
func (p *Provider) DiscountedBalance(balance *big.Int, dayDiff int64) (*big.Int, error) {
	if dayDiff == 0 {
		return new(big.Int).Set(balance), nil
	}

	factor, err := p.DecayFactor(dayDiff)
	if err != nil {
		return nil, err
	}

	return factor.MulBig(balance), nil
}

// InflationaryBalance converts a demurraged balance into its inflationary
// display form on the given day.
func (p *Provider) InflationaryBalance(balance *big.Int, dayIndex int64) (*big.Int, error) {
	factor, err := p.InflationFactor(dayIndex)
	if err != nil {
		return nil, err
	}
	if factor.Cmp(fixed64.One) == 0 {
		return new(big.Int).Set(balance), nil
	}

	return factor.MulBig(balance), nil
}
