// Package issuance computes personal currency issuance along the decayed
// UBI curve.
package issuance

import (
	"math/big"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/zyedidia/generic/cache"

	"github.com/aboutcircles/circles-engine/pkg/core/demurrage"
	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

// floatPrecision is the mantissa size of the curve computations, matching the
// fixed point rounding precision.
const floatPrecision = 512

// curveCacheCapacity bounds the LRUs of computed curve terms.
const curveCacheCapacity = 512

// Calculator evaluates the issuance curve. One unit of issuance accrues per
// tick, decayed per demurrage day, and a mint can reach at most
// MaxClaimDuration ticks into the past.
type Calculator struct {
	window           int64
	epochOffset      int64
	maxClaimDuration int64

	gamma    *big.Float
	provider *demurrage.Provider

	rCache     *cache.Cache[int64, fixed64.Int]
	tCache     *cache.Cache[int64, fixed64.Int]
	cacheMutex syncutils.Mutex
}

// NewCalculator creates a Calculator for the given parameters, discounting
// supplies through the given provider.
func NewCalculator(parameters *model.Parameters, provider *demurrage.Provider) *Calculator {
	gamma, ok := new(big.Float).SetPrec(floatPrecision).SetString(demurrage.GammaDecimal)
	if !ok {
		panic("malformed decay constant")
	}

	return &Calculator{
		window:           parameters.DemurrageWindow,
		epochOffset:      parameters.EpochOffset,
		maxClaimDuration: parameters.MaxClaimDuration,
		gamma:            gamma,
		provider:         provider,
		rCache:           cache.New[int64, fixed64.Int](curveCacheCapacity),
		tCache:           cache.New[int64, fixed64.Int](curveCacheCapacity),
	}
}

// Result is a computed issuance together with the claimable period it covers.
type Result struct {
	// Amount is the claimable issuance in base units. It is not positive when
	// the claimable period has already been minted.
	Amount *big.Int
	// PeriodStart and PeriodEnd delimit the covered ticks.
	PeriodStart model.Tick
	PeriodEnd   model.Tick
}

func (r *Result) String() string {
	return stringify.Struct("IssuanceResult",
		stringify.NewStructField("Amount", r.Amount.String()),
		stringify.NewStructField("PeriodStart", int64(r.PeriodStart)),
		stringify.NewStructField("PeriodEnd", int64(r.PeriodEnd)),
	)
}

// R returns gamma^n, the decay of a claim n days old, rounded to the nearest
// fixed point value.
func (c *Calculator) R(n int64) (fixed64.Int, error) {
	if n < 0 {
		return fixed64.Int{}, ierrors.Errorf("negative day span %d", n)
	}

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if factor, exists := c.rCache.Get(n); exists {
		return factor, nil
	}

	factor, err := fixed64.FromBigFloat(c.gammaPow(n))
	if err != nil {
		return fixed64.Int{}, ierrors.Wrapf(err, "failed to compute R(%d)", n)
	}
	c.rCache.Put(n, factor)

	return factor, nil
}

// T returns the total decayed issuance of n whole days plus the currently
// accruing day, in ticks: window * ((gamma^n - 1) / (gamma - 1) + gamma^n).
func (c *Calculator) T(n int64) (fixed64.Int, error) {
	if n < 0 {
		return fixed64.Int{}, ierrors.Errorf("negative day span %d", n)
	}

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if total, exists := c.tCache.Get(n); exists {
		return total, nil
	}

	one := new(big.Float).SetPrec(floatPrecision).SetInt64(1)
	pow := c.gammaPow(n)
	geometric := new(big.Float).SetPrec(floatPrecision).Sub(pow, one)
	geometric.Quo(geometric, new(big.Float).SetPrec(floatPrecision).Sub(c.gamma, one))
	geometric.Add(geometric, pow)
	geometric.Mul(geometric, new(big.Float).SetPrec(floatPrecision).SetInt64(c.window))

	total, err := fixed64.FromBigFloat(geometric)
	if err != nil {
		return fixed64.Int{}, ierrors.Wrapf(err, "failed to compute T(%d)", n)
	}
	c.tCache.Put(n, total)

	return total, nil
}

// Calculate evaluates the issuance claimable at currentTime given the times
// of all previous mints. The claimable period starts at the last mint,
// clamped to MaxClaimDuration ticks before currentTime.
func (c *Calculator) Calculate(currentTime model.Tick, mintTimes []model.Tick) (*Result, error) {
	if len(mintTimes) == 0 {
		return nil, ierrors.New("cannot calculate issuance without a mint history")
	}

	lastMint := lo.Max(mintTimes...)
	if currentTime < lastMint {
		return nil, ierrors.Errorf("current time %d precedes the last mint at %d", currentTime, lastMint)
	}

	start := lo.Max(model.Tick(int64(currentTime)-c.maxClaimDuration), lastMint)
	dayA := c.provider.DayIndex(start)
	dayB := c.provider.DayIndex(currentTime)
	span := dayB - dayA

	completeHours := fixed64.FromInt64(int64(start) - (dayA*c.window + c.epochOffset))
	incompleteHours := fixed64.FromInt64((dayB+1)*c.window + c.epochOffset - int64(currentTime))

	decay, err := c.R(span)
	if err != nil {
		return nil, err
	}
	total, err := c.T(span)
	if err != nil {
		return nil, err
	}

	// hours already counted by previous mints plus the not yet accrued rest
	// of the current day
	counted, err := decay.Mul(completeHours)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to weigh the counted hours")
	}
	overcount, err := counted.Add(incompleteHours)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to total the overcounted hours")
	}
	net, err := total.Sub(overcount)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to net the issuance")
	}

	// the claimable window collapses to [start, currentTime] after the day
	// decomposition
	return &Result{
		Amount:      net.MulBig(fixed64.EXA),
		PeriodStart: start,
		PeriodEnd:   currentTime,
	}, nil
}

// ApplyToSupply discounts a total supply from lastUpdatedDay to currentDay
// and adds the issuance. When the sum would exceed the supply ceiling the
// issuance is forfeited: the previous day and supply are returned unchanged
// and applied reports false.
func (c *Calculator) ApplyToSupply(totalSupply *big.Int, amount *big.Int, currentDay int64, lastUpdatedDay int64) (day int64, supply *big.Int, applied bool, err error) {
	span := currentDay - lastUpdatedDay
	if span < 0 {
		return 0, nil, false, ierrors.Errorf("supply was updated on day %d, after the current day %d", lastUpdatedDay, currentDay)
	}

	discounted, err := c.provider.DiscountedBalance(totalSupply, span)
	if err != nil {
		return 0, nil, false, err
	}

	next := discounted.Add(discounted, amount)
	if next.Cmp(demurrage.MaxValue) > 0 {
		return lastUpdatedDay, new(big.Int).Set(totalSupply), false, nil
	}

	return currentDay, next, true, nil
}

func (c *Calculator) gammaPow(n int64) *big.Float {
	base := new(big.Float).SetPrec(floatPrecision).Set(c.gamma)
	acc := new(big.Float).SetPrec(floatPrecision).SetInt64(1)
	for n > 0 {
		if n&1 == 1 {
			acc.Mul(acc, base)
		}
		base.Mul(base, base)
		n >>= 1
	}

	return acc
}
