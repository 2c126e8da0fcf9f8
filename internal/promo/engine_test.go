package promo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "BEZVA10", Normalize("  bezva10 "))
	require.Equal(t, "", Normalize("   "))
}

func TestLookupDefaultTable(t *testing.T) {
	table := Default()
	rule, ok := table.Lookup(" freeship")
	require.True(t, ok)
	require.Equal(t, KindFixed, rule.Kind)

	_, ok = table.Lookup("NOPE")
	require.False(t, ok)
	_, ok = table.Lookup("")
	require.False(t, ok)
	require.Equal(t, []string{"BEZVA10", "FREESHIP"}, table.Codes())
	require.NoError(t, table.Validate())
}

func TestResolveUnknownCode(t *testing.T) {
	rule, err := Default().Resolve("bezva10")
	require.NoError(t, err)
	require.Equal(t, "BEZVA10", rule.Code)

	_, err = Default().Resolve(" sleva50 ")
	require.True(t, errors.Is(err, ErrUnknownCode))
	require.Contains(t, err.Error(), `"SLEVA50"`)
}

func TestPercentDiscountRoundsAndCaps(t *testing.T) {
	rule := Default()["BEZVA10"]
	require.Equal(t, int64(100_000), rule.Discount(1_000_000))
	require.Equal(t, int64(200_000), rule.Discount(5_000_000))
	// 10% of 123.45 CZK is 12.345 CZK which rounds to 12 CZK.
	require.Equal(t, int64(1_200), rule.Discount(12_345))
	// 10% of 125 CZK is 12.5 CZK which rounds up.
	require.Equal(t, int64(1_300), rule.Discount(12_500))
	require.Equal(t, int64(0), rule.Discount(0))
}

func TestFixedDiscountClampsToSubtotal(t *testing.T) {
	rule := Default()["FREESHIP"]
	require.Equal(t, int64(30_000), rule.Discount(1_000_000))
	require.Equal(t, int64(10_000), rule.Discount(10_000))
}

func TestValidateRejectsBrokenRules(t *testing.T) {
	table := Table{
		"BAD":   {Code: "BAD", Kind: KindPercent},
		"lower": {Code: "lower", Kind: KindFixed, Value: 1},
	}
	err := table.Validate()
	require.ErrorIs(t, err, ErrInvalidRule)
	require.Error(t, Rule{Kind: "bogus"}.Validate())
}
