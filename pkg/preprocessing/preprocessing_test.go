package preprocessing

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/winequality/pkg/models"
	"github.com/mimir-aip/winequality/pkg/table"
)

func wines(t *testing.T) *table.Table {
	t.Helper()
	nan := math.NaN()
	return table.MustNew(
		table.NewFloat("alcohol", []float64{9, 10, nan, 12, 14}),
		table.NewFloat("sulphates", []float64{0.5, 0.5, 0.5, 0.5, 0.5}),
		table.NewString("region", []string{"douro", "dao", "douro", "minho", "dao"}),
		table.NewString("grade", []string{"low", "mid", "high", "mid", "low"}),
	)
}

func TestDropColumns(t *testing.T) {
	tbl := wines(t)
	out, err := FitTransform(NewDropColumns(nil, "region", "does_not_exist"), tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alcohol", "sulphates", "grade"}, out.Names())
	assert.True(t, tbl.Has("region"), "input must be unchanged")
}

func TestOneHotEncoder(t *testing.T) {
	enc := NewOneHotEncoder("region")
	out, err := FitTransform(enc, wines(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"dao", "douro", "minho"}, enc.Categories["region"])
	assert.False(t, out.Has("region"))
	douro, err := out.Float("region_douro")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, douro)

	unseen := table.MustNew(table.NewString("region", []string{"alentejo"}))
	encoded, err := enc.Transform(unseen)
	require.NoError(t, err)
	for _, cat := range enc.Categories["region"] {
		v, _ := encoded.Float("region_" + cat)
		assert.Equal(t, []float64{0}, v)
	}
}

func TestOrdinalEncoder(t *testing.T) {
	enc := NewOrdinalEncoder(map[string][]string{"grade": {"low", "mid", "high"}})
	out, err := FitTransform(enc, wines(t), nil)
	require.NoError(t, err)
	grade, err := out.Float("grade")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 1, 0}, grade)

	other := table.MustNew(table.NewString("grade", []string{"superb"}))
	encoded, err := enc.Transform(other)
	require.NoError(t, err)
	v, _ := encoded.Float("grade")
	assert.True(t, math.IsNaN(v[0]))

	err = NewOrdinalEncoder(map[string][]string{"grade": nil}).Fit(wines(t), nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestMinMaxScaler(t *testing.T) {
	s := NewMinMaxScaler("alcohol", "sulphates")
	out, err := FitTransform(s, wines(t), nil)
	require.NoError(t, err)

	alcohol, _ := out.Float("alcohol")
	assert.InDelta(t, 0, alcohol[0], 1e-12)
	assert.InDelta(t, 0.2, alcohol[1], 1e-12)
	assert.True(t, math.IsNaN(alcohol[2]))
	assert.InDelta(t, 1, alcohol[4], 1e-12)

	sulphates, _ := out.Float("sulphates")
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, sulphates)
}

func TestStandardScaler(t *testing.T) {
	tbl := table.MustNew(table.NewFloat("x", []float64{1, 2, 3, 4}), table.NewFloat("c", []float64{0.1, 0.1, 0.1, 0.1}))
	s := NewStandardScaler()
	out, err := FitTransform(s, tbl, nil)
	require.NoError(t, err)

	x, _ := out.Float("x")
	assert.InDelta(t, 0, x[0]+x[1]+x[2]+x[3], 1e-12)
	assert.InDelta(t, -1.3416407865, x[0], 1e-9)
	c, _ := out.Float("c")
	assert.Equal(t, []float64{0, 0, 0, 0}, c)
}

func TestImputer(t *testing.T) {
	tests := []struct {
		strategy ImputeStrategy
		want     float64
	}{
		{ImputeMedian, 11},
		{ImputeMean, 11.25},
		{ImputeMode, 9},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			out, err := FitTransform(NewImputer(tt.strategy, "alcohol"), wines(t), nil)
			require.NoError(t, err)
			alcohol, _ := out.Float("alcohol")
			assert.InDelta(t, tt.want, alcohol[2], 1e-12)
		})
	}

	err := NewImputer("constant").Fit(wines(t), nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestFScore(t *testing.T) {
	labels := []string{"a", "a", "b", "b"}
	assert.Greater(t, FScore([]float64{1, 1.1, 5, 5.1}, labels), FScore([]float64{1, 5, 1.1, 5.1}, labels))
	assert.True(t, math.IsInf(FScore([]float64{1, 1, 2, 2}, labels), 1))
	assert.Equal(t, 0.0, FScore([]float64{3, 3, 3, 3}, labels))
	assert.Equal(t, 0.0, FScore([]float64{1, 2, 3, 4}, []string{"a", "a", "a", "a"}))

	// f_classif reference value for x = [1, 2, 4, 5], labels a a b b
	assert.InDelta(t, 18.0, FScore([]float64{1, 2, 4, 5}, labels), 1e-9)
}

func TestSelectKBest(t *testing.T) {
	tbl := table.MustNew(
		table.NewFloat("noise", []float64{1, 5, 1.1, 5.1}),
		table.NewFloat("signal", []float64{1, 1.1, 5, 5.1}),
		table.NewFloat("tie_a", []float64{0, 0, 0, 0}),
		table.NewFloat("tie_b", []float64{0, 0, 0, 0}),
		table.NewString("id", []string{"w", "x", "y", "z"}),
	)
	labels := []string{"a", "a", "b", "b"}

	sel := NewSelectKBest(2)
	out, err := FitTransform(sel, tbl, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"noise", "signal"}, sel.Selected)
	assert.Equal(t, []string{"noise", "signal", "id"}, out.Names())

	sel = NewSelectKBest(2, "tie_b", "tie_a", "signal")
	require.NoError(t, sel.Fit(tbl, labels))
	assert.Equal(t, []string{"tie_b", "signal"}, sel.Selected, "ties keep the earlier column")

	sel = NewSelectKBest(10)
	require.NoError(t, sel.Fit(tbl, labels))
	assert.Len(t, sel.Selected, 4)

	assert.ErrorIs(t, NewSelectKBest(2).Fit(tbl, nil), models.ErrConfiguration)
	assert.ErrorIs(t, NewSelectKBest(0).Fit(tbl, labels), models.ErrConfiguration)
}

func TestOversampler(t *testing.T) {
	tbl := table.MustNew(
		table.NewFloat("x", []float64{0, 1, 2, 3, 4, 5, 10, 11}),
		table.NewString("note", []string{"", "", "", "", "", "", "p", "q"}),
		table.NewString("label", []string{"n", "n", "n", "n", "n", "n", "y", "y"}),
	)
	o := NewOversampler("label", 42)
	out, err := FitTransform(o, tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, out.NumRows())

	labels, _ := out.Strings("label")
	y := 0
	for _, l := range labels {
		if l == "y" {
			y++
		}
	}
	assert.Equal(t, 6, y)

	x, _ := out.Float("x")
	for _, v := range x[8:] {
		assert.GreaterOrEqual(t, v, 10.0)
		assert.LessOrEqual(t, v, 11.0)
	}
	assert.Equal(t, 8, tbl.NumRows(), "input must be unchanged")

	err = NewOversampler("quality_label", 42).Fit(tbl, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = o.Transform(tbl.Drop("label"))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestChainComposesAndPersists(t *testing.T) {
	tbl := table.MustNew(
		table.NewFloat("a", []float64{1, math.NaN(), 3, 4}),
		table.NewFloat("b", []float64{4, 3, 2, 1}),
		table.NewFloat("c", []float64{7, 7, 7, 7}),
	)
	labels := []string{"x", "x", "y", "y"}
	chain := NewChain(NewImputer(ImputeMedian), NewStandardScaler(), NewSelectKBest(2))
	require.NoError(t, chain.Fit(tbl, labels))
	want, err := chain.Transform(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, want.Names())

	var buf bytes.Buffer
	var steps Transformer = chain
	require.NoError(t, gob.NewEncoder(&buf).Encode(&steps))
	var decoded Transformer
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	got, err := decoded.Transform(tbl)
	require.NoError(t, err)
	for _, name := range want.Names() {
		w, _ := want.Float(name)
		g, _ := got.Float(name)
		assert.Equal(t, w, g, name)
	}
}

func TestUnfittedTransformersFail(t *testing.T) {
	tbl := wines(t)
	for _, tr := range []Transformer{&OneHotEncoder{}, &MinMaxScaler{}, &StandardScaler{}, &Imputer{}, &SelectKBest{}} {
		_, err := tr.Transform(tbl)
		assert.Error(t, err, "%T", tr)
	}
}
