package normalizer

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CekNomor/pkg/errors"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local zero prefix", "081234567890", "+6281234567890"},
		{"bare country code", "6281234567890", "+6281234567890"},
		{"already canonical", "+6281234567890", "+6281234567890"},
		{"zero prefix with separators", "0812-3456-7890", "+6281234567890"},
		{"spaces and dots", "0812 3456.7890", "+6281234567890"},
		{"plus with country code", "+62 812 3456 7890", "+6281234567890"},
		{"foreign number keeps country code", "+14155552671", "+14155552671"},
		{"surrounding whitespace", "  081234567890  ", "+6281234567890"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeNumber(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeNumberIdempotent(t *testing.T) {
	first, err := NormalizeNumber("0812-3456-7890")
	require.NoError(t, err)

	second, err := NormalizeNumber(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeNumberInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no recognizable prefix", "81234567890"},
		{"letters only", "abc"},
		{"too short after normalization", "081234"},
		{"too long after normalization", "+628123456789012345"},
		{"plus without digits", "+"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeNumber(tc.in)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.InvalidNumber))
		})
	}
}

func TestParseLine(t *testing.T) {
	assert.Equal(t, RawInput{}, ParseLine("   "))
	assert.Equal(t, RawInput{Phone: "0812345678"}, ParseLine("0812345678"))
	assert.Equal(t, RawInput{Identifier: "budi", Phone: "0812345678"}, ParseLine("budi 0812345678"))
	assert.Equal(t, RawInput{Identifier: "budi santoso", Phone: "0812345678"}, ParseLine("budi santoso 0812345678"))
}

func TestNormalizeDeduplicates(t *testing.T) {
	inputs := []RawInput{
		{Identifier: "a", Phone: "081234567890"},
		{Identifier: "b", Phone: "+6281234567890"}, // 同一号码的不同写法
		{Identifier: "c", Phone: "6281234567890"},
		{Identifier: "d", Phone: "081234567891"},
	}

	res := Normalize(inputs)

	require.Len(t, res.Numbers, 2)
	assert.Equal(t, 2, res.DuplicatesRemoved)
	assert.Empty(t, res.Invalid)

	// 保留首见顺序与首见标识
	assert.Equal(t, "+6281234567890", res.Numbers[0].Phone)
	assert.Equal(t, "a", res.Numbers[0].Identifier)
	assert.Equal(t, "081234567890", res.Numbers[0].Original)
	assert.Equal(t, "+6281234567891", res.Numbers[1].Phone)
	assert.Equal(t, "d", res.Numbers[1].Identifier)
}

func TestNormalizeKeepsInvalidEntries(t *testing.T) {
	inputs := []RawInput{
		{Phone: "081234567890"},
		{Identifier: "bad", Phone: "not-a-number"},
		{Phone: "0812345678"},
	}

	res := Normalize(inputs)

	assert.Len(t, res.Numbers, 2)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "not-a-number", res.Invalid[0].Phone)
	assert.Equal(t, "bad", res.Invalid[0].Identifier)
	assert.Zero(t, res.DuplicatesRemoved)
}
