package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample operands shared by the property tests
var operands = []int{0, 1, -1, 2, -2, 3, 5, -7, 10, 42, -100, 1 << 20, math.MaxInt32, math.MinInt32}

func TestAdd_TwoPositiveNumbers(t *testing.T) {
	// Arrange
	calc := New()

	// Act
	actual := calc.Add(5, 4)

	// Assert
	assert.Equal(t, 9, actual)
}

func TestAdd_PositiveAndNegative(t *testing.T) {
	// Arrange
	calc := New()
	positive := 10
	negative := -5
	expected := 5

	// Act
	actual := calc.Add(negative, positive)

	// Assert
	assert.Equal(t, expected, actual)
}

func TestAdd_TwoNegativeNumbers(t *testing.T) {
	calc := New()

	actual := calc.Add(-6, -4)

	assert.Equal(t, -10, actual)
}

func TestAdd_ThenDivideResult(t *testing.T) {
	// Arrange
	calc := New()
	a, b := 10, 5
	divisor := 3
	expected := 5

	// Act
	sum := calc.Add(a, b)
	actual, err := calc.Divide(sum, divisor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 15, sum)
	assert.Equal(t, expected, actual)
}

func TestDivide_ByZero(t *testing.T) {
	calc := New()

	_, err := calc.Divide(10, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
	assert.Equal(t, "division by zero", err.Error())
}

func TestDivide_AnyDividendByZero(t *testing.T) {
	for _, a := range append(operands, math.MaxInt, math.MinInt) {
		_, err := Divide(a, 0)
		assert.ErrorIs(t, err, ErrDivisionByZero, "Divide(%d, 0)", a)
	}
}

func TestDivide_TruncatesTowardZero(t *testing.T) {
	tests := []struct {
		name string
		a, b int
		want int
	}{
		{"exact", 10, 2, 5},
		{"positive remainder", 7, 2, 3},
		{"negative dividend", -7, 2, -3},
		{"negative divisor", 7, -2, -3},
		{"both negative", -7, -2, 3},
		{"smaller dividend", 1, 3, 0},
		{"smaller negative dividend", -1, 3, 0},
		{"zero dividend", 0, 9, 0},
		{"min int by minus one wraps", math.MinInt, -1, math.MinInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Divide(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd_Properties(t *testing.T) {
	t.Run("commutative", func(t *testing.T) {
		for _, a := range operands {
			for _, b := range operands {
				assert.Equal(t, Add(a, b), Add(b, a), "a=%d b=%d", a, b)
			}
		}
	})

	t.Run("associative", func(t *testing.T) {
		for _, a := range operands {
			for _, b := range operands {
				for _, c := range operands {
					assert.Equal(t, Add(Add(a, b), c), Add(a, Add(b, c)), "a=%d b=%d c=%d", a, b, c)
				}
			}
		}
	})

	t.Run("identity", func(t *testing.T) {
		for _, a := range operands {
			assert.Equal(t, a, Add(a, 0))
		}
	})

	t.Run("wraps on overflow", func(t *testing.T) {
		assert.Equal(t, math.MinInt, Add(math.MaxInt, 1))
	})
}

func TestDivide_QuotientRemainderIdentity(t *testing.T) {
	for _, a := range operands {
		for _, b := range operands {
			if b == 0 {
				continue
			}
			q, err := Divide(a, b)
			require.NoError(t, err)
			r := a % b
			assert.Equal(t, a, q*b+r, "a=%d b=%d", a, b)
			// truncation keeps the remainder's sign equal to the dividend's
			if r != 0 {
				assert.Equal(t, a < 0, r < 0, "a=%d b=%d", a, b)
			}
		}
	}
}

func TestParseOp(t *testing.T) {
	tests := []struct {
		in      string
		want    Op
		wantErr bool
	}{
		{"add", OpAdd, false},
		{"+", OpAdd, false},
		{"SOMAR", OpAdd, false},
		{" sum ", OpAdd, false},
		{"divide", OpDivide, false},
		{"/", OpDivide, false},
		{"dividir", OpDivide, false},
		{"div", OpDivide, false},
		{"multiply", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOp(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownOp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	calc := New()

	sum, err := Apply(calc, OpAdd, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)

	quo, err := Apply(calc, OpDivide, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, quo)

	_, err = Apply(calc, OpDivide, 9, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = Apply(calc, Op("modulo"), 9, 2)
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestOpSymbol(t *testing.T) {
	assert.Equal(t, "+", OpAdd.Symbol())
	assert.Equal(t, "/", OpDivide.Symbol())
	assert.Equal(t, "?", Op("x").Symbol())
}
