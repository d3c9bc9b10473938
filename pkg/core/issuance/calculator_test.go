package issuance_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aboutcircles/circles-engine/pkg/core/demurrage"
	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/core/issuance"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

func newCalculator() *issuance.Calculator {
	parameters := model.NewParameters()

	return issuance.NewCalculator(parameters, demurrage.NewProvider(parameters))
}

func TestCurveTerms(t *testing.T) {
	calculator := newCalculator()

	r1, err := calculator.R(1)
	require.NoError(t, err)
	require.Equal(t, 0, r1.Raw().Cmp(new(big.Int).SetUint64(demurrage.Gamma64x64)))

	r14, err := calculator.R(14)
	require.NoError(t, err)
	require.Equal(t, "18395503389519647372", r14.Raw().String())

	t0, err := calculator.T(0)
	require.NoError(t, err)
	require.Equal(t, 0, t0.Cmp(fixed64.FromInt64(24)))

	t1, err := calculator.T(1)
	require.NoError(t, err)
	require.Equal(t, "885355760875826166476", t1.Raw().String())

	t14, err := calculator.T(14)
	require.NoError(t, err)
	require.Equal(t, "6631600572832662544739", t14.Raw().String())

	_, err = calculator.R(-1)
	require.Error(t, err)
	_, err = calculator.T(-1)
	require.Error(t, err)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name           string
		currentTime    model.Tick
		mintTimes      []model.Tick
		expectedAmount string
		expectedStart  model.Tick
		expectedEnd    model.Tick
	}{
		{
			name:           "one day after genesis",
			currentTime:    24,
			mintTimes:      []model.Tick{0},
			expectedAmount: "23995231968206374978",
			expectedStart:  0,
			expectedEnd:    24,
		},
		{
			name:           "mid second day",
			currentTime:    49,
			mintTimes:      []model.Tick{0},
			expectedAmount: "48985696851874424310",
			expectedStart:  0,
			expectedEnd:    49,
		},
		{
			name:           "nothing accrued since the last mint",
			currentTime:    24,
			mintTimes:      []model.Tick{0, 24},
			expectedAmount: "0",
			expectedStart:  24,
			expectedEnd:    24,
		},
		{
			name:           "clamped to the claim window",
			currentTime:    360,
			mintTimes:      []model.Tick{0},
			expectedAmount: "335499787406064420311",
			expectedStart:  24,
			expectedEnd:    360,
		},
		{
			name:           "clamped mid day",
			currentTime:    365,
			mintTimes:      []model.Tick{0},
			expectedAmount: "335513676221344004766",
			expectedStart:  29,
			expectedEnd:    365,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := newCalculator().Calculate(test.currentTime, test.mintTimes)
			require.NoError(t, err)
			require.Equal(t, test.expectedAmount, result.Amount.String())
			require.Equal(t, test.expectedStart, result.PeriodStart)
			require.Equal(t, test.expectedEnd, result.PeriodEnd)
		})
	}
}

func TestCalculateRejects(t *testing.T) {
	calculator := newCalculator()

	_, err := calculator.Calculate(10, nil)
	require.Error(t, err)

	_, err = calculator.Calculate(10, []model.Tick{24})
	require.Error(t, err)
}

func TestApplyToSupply(t *testing.T) {
	calculator := newCalculator()

	issued, ok := new(big.Int).SetString("23995231968206374978", 10)
	require.True(t, ok)

	day, supply, applied, err := calculator.ApplyToSupply(fixed64.Coins(50), issued, 1, 0)
	require.NoError(t, err)
	require.True(t, applied)
	require.EqualValues(t, 1, day)
	require.Equal(t, "73985298568636322850", supply.String())

	// a supply at the ceiling forfeits the issuance and stays untouched
	day, supply, applied, err = calculator.ApplyToSupply(demurrage.MaxValue, big.NewInt(1), 5, 5)
	require.NoError(t, err)
	require.False(t, applied)
	require.EqualValues(t, 5, day)
	require.Equal(t, 0, supply.Cmp(demurrage.MaxValue))

	_, _, _, err = calculator.ApplyToSupply(fixed64.Coins(50), issued, 1, 2)
	require.Error(t, err)
}
