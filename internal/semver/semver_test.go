package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	versions := []string{
		"0.0.1",
		"1.0.0",
		"1.2.3",
		"10.20.30",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"2.1.0-rc.2",
		"1.2.3+build.42",
		"1.2.3-beta.1+exp.sha.5114f85",
	}

	for _, raw := range versions {
		v, err := Parse(raw)
		require.NoError(t, err, raw)

		again, err := Parse(v.String())
		require.NoError(t, err, raw)
		assert.Equal(t, 0, Compare(v, again), "round trip changed ordering for %s", raw)
		assert.Equal(t, v.String(), again.String(), raw)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "1", "1.2", "v1.2.3.4", "1.2.x", "one.two.three", "1.2.3 "} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidVersion, raw)
	}
}

func TestCompareOrdering(t *testing.T) {
	ordered := []string{
		"0.9.9",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-beta",
		"1.0.0",
		"1.0.1",
		"1.1.0",
		"2.0.0",
	}

	for i := 0; i < len(ordered)-1; i++ {
		a, err := Parse(ordered[i])
		require.NoError(t, err)
		b, err := Parse(ordered[i+1])
		require.NoError(t, err)

		assert.Equal(t, -1, Compare(a, b), "%s < %s", ordered[i], ordered[i+1])
		assert.Equal(t, 1, Compare(b, a), "%s > %s", ordered[i+1], ordered[i])
	}
}

func TestSatisfiesRangeMatrix(t *testing.T) {
	tests := []struct {
		version string
		rng     string
		want    bool
	}{
		{"1.2.0", "^1.0.0", true},
		{"1.9.9", "^1.0.0", true},
		{"2.0.0", "^1.0.0", false},
		{"0.9.0", "^1.0.0", false},
		{"1.2.3", "~1.2.0", true},
		{"1.3.0", "~1.2.0", false},
		{"1.2.0", ">=1.2.0", true},
		{"1.1.9", ">=1.2.0", false},
		{"1.2.1", ">1.2.0", true},
		{"1.2.0", ">1.2.0", false},
		{"1.2.0", "<=1.2.0", true},
		{"1.2.1", "<=1.2.0", false},
		{"1.1.9", "<1.2.0", true},
		{"1.2.0", "<1.2.0", false},
		{"1.2.3", "1.2.3", true},
		{"1.2.4", "1.2.3", false},
	}

	for _, tt := range tests {
		got, err := Satisfies(tt.version, tt.rng)
		require.NoError(t, err, "%s %s", tt.version, tt.rng)
		assert.Equal(t, tt.want, got, "%s against %s", tt.version, tt.rng)
	}
}

func TestSatisfiesRejectsBadInput(t *testing.T) {
	_, err := Satisfies("not-a-version", "^1.0.0")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = Satisfies("1.0.0", "!!nonsense")
	assert.ErrorIs(t, err, ErrInvalidRange)
}
