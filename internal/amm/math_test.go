package amm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

func TestIsqrt_SpotValues(t *testing.T) {
	tests := []struct {
		x    uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{9, 3},
		{10, 3},
		{100, 10},
		{99, 9},
		{1_000_000, 1000},
		{999_999, 999},
	}
	for _, tt := range tests {
		got := IsqrtU64(tt.x)
		assert.Equal(t, tt.want, got, "isqrt(%d)", tt.x)
	}
}

func TestIsqrt_FloorProperty(t *testing.T) {
	// isqrt(x)^2 <= x < (isqrt(x)+1)^2 across a spread of magnitudes.
	xs := []uint64{
		0, 1, 2, 5, 15, 16, 17, 255, 256, 257,
		65535, 65536, 1<<32 - 1, 1 << 32, 1<<40 + 12345,
		1<<63 - 1, 1 << 63, ^uint64(0),
	}
	for _, x := range xs {
		root := IsqrtU64(x)
		lo := new(uint256.Int).Mul(uint256.NewInt(root), uint256.NewInt(root))
		hi := new(uint256.Int).Mul(uint256.NewInt(root+1), uint256.NewInt(root+1))
		assert.True(t, !lo.GtUint64(x), "isqrt(%d)=%d: square exceeds input", x, root)
		assert.True(t, hi.GtUint64(x), "isqrt(%d)=%d: next square does not exceed input", x, root)
	}
}

func TestIsqrt_WideInput(t *testing.T) {
	// (2^64)^2 has an exact root of 2^64.
	x := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	assert.Equal(t, 0, Isqrt(x).Cmp(want))
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAdd(^uint64(0), 1)
	assert.ErrorIs(t, err, domain.ErrOverflow)
}

func TestCheckedSub(t *testing.T) {
	diff, err := CheckedSub(5, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), diff)

	_, err = CheckedSub(2, 5)
	assert.ErrorIs(t, err, domain.ErrOverflow)
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d uint64
		want    uint64
		wantErr error
	}{
		{"small", 6, 7, 2, 21, nil},
		{"floor", 7, 3, 2, 10, nil},
		{"fee bps", 1_000_000, 250, 10_000, 25_000, nil},
		{"wide intermediate", 1 << 62, 12, 4, 3 << 62, nil},
		{"zero denominator", 1, 1, 0, 0, domain.ErrDivisionByZero},
		{"quotient overflow", ^uint64(0), 3, 2, 0, domain.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
