package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategy_Names(t *testing.T) {
	testCases := []struct {
		name     string
		strategy Strategy
	}{
		{"first", First},
		{"best", Best},
		{"worst", Worst},
		{"next", Next},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.strategy.String())
			got, err := ParseStrategy(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.strategy, got)
			assert.True(t, got.Valid())
		})
	}

	assert.Equal(t, "unknown", NotSet.String())
	assert.Equal(t, "unknown", Strategy(99).String())
	assert.False(t, NotSet.Valid())
}

func TestParseStrategy_Rejects(t *testing.T) {
	for _, name := range []string{"", "First", "unknown", "best-fit", " next"} {
		got, err := ParseStrategy(name)
		assert.ErrorIs(t, err, ErrUnknownStrategy, "name %q", name)
		assert.Equal(t, NotSet, got)
	}
}

func TestStrategy_Text(t *testing.T) {
	text, err := Worst.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "worst", string(text))

	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("next")))
	assert.Equal(t, Next, s)

	require.ErrorIs(t, s.Set("bogus"), ErrUnknownStrategy)
	assert.Equal(t, Next, s, "failed parse must not clobber the value")

	_, err = NotSet.MarshalText()
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "strategy", s.Type())
}

func TestStrategies(t *testing.T) {
	assert.Equal(t, []Strategy{First, Best, Worst, Next}, Strategies())
}
