package rating

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingJSON(t *testing.T) {
	cases := []struct {
		r    Rating
		want string
	}{
		{Unset(), "null"},
		{NoneRating(), `"none"`},
		{Scaled(0), "0"},
		{Scaled(73), "73"},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.r)
		require.NoError(t, err)
		assert.Equal(t, c.want, string(b))

		var back Rating
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, c.r, back)
	}

	var r Rating
	assert.Error(t, json.Unmarshal([]byte(`101`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"nah"`), &r))
}

func TestScaledPanicsOutOfRange(t *testing.T) {
	assert.Panics(t, func() { Scaled(-1) })
	assert.Panics(t, func() { Scaled(101) })
}

func TestRatingsKeepOrder(t *testing.T) {
	rs := Ratings{
		{Item: "zebra", Rating: Scaled(5)},
		{Item: "apple", Rating: NoneRating()},
		{Item: "mango", Rating: Unset()},
	}
	b, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":5,"apple":"none","mango":null}`, string(b))

	var back Ratings
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rs, back)

	r, ok := back.Get("apple")
	assert.True(t, ok)
	assert.True(t, r.IsNone())
	_, ok = back.Get("kiwi")
	assert.False(t, ok)
}

func TestParamsDefaults(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{"items":["A","B"]}`), &p))
	assert.Equal(t, DefaultSubmitKey, p.SubmitKey)
	assert.True(t, p.AllowNone)
	assert.False(t, p.AllowBlank)
	assert.Equal(t, -1.0, p.SubmitTimeout)
	_, on := p.Timeout()
	assert.False(t, on)

	require.NoError(t, json.Unmarshal([]byte(`{"items":["A"],"allowNone":false,"submitKey":13,"submitTimeout":2.5}`), &p))
	assert.False(t, p.AllowNone)
	assert.Equal(t, 13, p.SubmitKey)
	d, on := p.Timeout()
	assert.True(t, on)
	assert.Equal(t, "2.5s", d.String())
}

func TestParamsTimeoutBounds(t *testing.T) {
	cases := []struct {
		sec  float64
		want time.Duration
		on   bool
	}{
		{-1, 0, false},
		{0, 0, false},
		{0.25, 250 * time.Millisecond, true},
		{3600, time.Hour, true},
		{1e10, 0, false},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
	}
	for _, c := range cases {
		p := DefaultParams()
		p.SubmitTimeout = c.sec
		d, on := p.Timeout()
		assert.Equal(t, c.on, on, "timeout %v", c.sec)
		assert.Equal(t, c.want, d, "timeout %v", c.sec)
	}
}

func TestParamsMerge(t *testing.T) {
	base := DefaultParams()
	base.Items = []string{"A", "B"}
	base.LogCommits = true

	got, err := base.Merge([]byte(`{"allowBlank":true}`))
	require.NoError(t, err)
	assert.True(t, got.AllowBlank)
	assert.True(t, got.LogCommits)
	assert.Equal(t, []string{"A", "B"}, got.Items)

	_, err = base.Merge([]byte(`5`))
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = base.Merge([]byte(`{"submitKey":"space"}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParamsValidate(t *testing.T) {
	for _, items := range [][]string{nil, {}, {"A", "A"}, {"A", " "}} {
		p := DefaultParams()
		p.Items = items
		assert.ErrorIs(t, p.Validate(), ErrInvalidItems, "items %v", items)
	}
}

func TestGeometryValueAt(t *testing.T) {
	g := Geometry{Left: 100, Width: 200}
	cases := []struct {
		x    float64
		want int
		ok   bool
	}{
		{100, 0, true},
		{300, 100, true},
		{246, 73, true},
		{100.9, 0, true},   // 0.45 rounds down
		{101.2, 1, true},   // 0.6 rounds up
		{98, 0, false},     // -1
		{302, 0, false},    // 101
		{300.9, 100, true}, // 100.45
	}
	for _, c := range cases {
		v, ok := g.ValueAt(c.x)
		assert.Equal(t, c.ok, ok, "x=%v", c.x)
		if c.ok {
			assert.Equal(t, c.want, v, "x=%v", c.x)
		}
	}
	_, ok := Geometry{Width: 0}.ValueAt(10)
	assert.False(t, ok)
}
