// Package testutil generates synthetic wine datasets for tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mimir-aip/winequality/pkg/table"
)

// UCIColumns are the column headers of the UCI red wine quality file, in file order
var UCIColumns = []string{
	"fixed acidity",
	"volatile acidity",
	"citric acid",
	"residual sugar",
	"chlorides",
	"free sulfur dioxide",
	"total sulfur dioxide",
	"density",
	"pH",
	"sulphates",
	"alcohol",
	"quality",
}

type span struct{ lo, hi float64 }

func (s span) draw(rng *rand.Rand) float64 {
	return s.lo + rng.Float64()*(s.hi-s.lo)
}

// Rows returns n distinct rows in UCIColumns order. Roughly 55% of rows score 6 or 7 and
// have high alcohol, high sulphates and low volatile acidity; the rest score 4 or 5 with
// the opposite profile.
func Rows(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		high := rng.Float64() < 0.55
		volatile, sulphates, alcohol := span{0.55, 0.9}, span{0.4, 0.62}, span{9, 10.8}
		quality := 4 + float64(rng.Intn(2))
		if high {
			volatile, sulphates, alcohol = span{0.2, 0.45}, span{0.7, 1.0}, span{11.5, 14.5}
			quality = 6 + float64(rng.Intn(2))
		}
		rows[i] = []float64{
			span{7, 9}.draw(rng),
			volatile.draw(rng),
			span{0.1, 0.5}.draw(rng),
			span{1.5, 3}.draw(rng),
			span{0.06, 0.1}.draw(rng),
			span{8, 20}.draw(rng),
			span{25, 60}.draw(rng),
			span{0.995, 0.998}.draw(rng),
			span{3.2, 3.5}.draw(rng),
			sulphates.draw(rng),
			alcohol.draw(rng),
			quality,
		}
	}
	return rows
}

// WineTable returns Rows as a raw table with the UCI headers
func WineTable(n int, seed int64) *table.Table {
	t, err := table.FromMatrix(UCIColumns, Rows(n, seed))
	if err != nil {
		panic(err)
	}
	return t
}

// WineCSV renders Rows as a semicolon separated file with quoted headers, like the UCI download
func WineCSV(n int, seed int64) string {
	var b strings.Builder
	quoted := make([]string, len(UCIColumns))
	for i, c := range UCIColumns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	b.WriteString(strings.Join(quoted, ";"))
	b.WriteByte('\n')
	for _, row := range Rows(n, seed) {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = fmt.Sprintf("%g", v)
		}
		b.WriteString(strings.Join(fields, ";"))
		b.WriteByte('\n')
	}
	return b.String()
}

// HighQualitySample is an unseen high quality wine in UCIColumns order, without quality
var HighQualitySample = []float64{8.0, 0.2, 0.3, 2.2, 0.08, 15, 40, 0.9965, 3.3, 0.9, 14}
