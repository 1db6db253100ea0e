package table

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// canonical NaN so that missing values compare equal when detecting duplicates
var nanBits = math.Float64bits(math.NaN())

// DropDuplicates removes rows that exactly repeat an earlier row, keeping first occurrences
// in their original order. It also returns, for every input row, the index of the output
// row that represents it.
func (t *Table) DropDuplicates() (*Table, []int) {
	buckets := make(map[uint64][]int, t.rows)
	kept := make([]int, 0, t.rows)
	mapping := make([]int, t.rows)

	digest := xxhash.New()
	var scratch [8]byte
	for r := 0; r < t.rows; r++ {
		digest.Reset()
		t.hashRow(digest, r, scratch[:])
		h := digest.Sum64()

		found := -1
		for _, out := range buckets[h] {
			if t.rowsEqual(kept[out], r) {
				found = out
				break
			}
		}
		if found < 0 {
			found = len(kept)
			kept = append(kept, r)
			buckets[h] = append(buckets[h], found)
		}
		mapping[r] = found
	}

	if len(kept) == t.rows {
		return t, mapping
	}
	out, _ := t.Take(kept)
	return out, mapping
}

func (t *Table) hashRow(d *xxhash.Digest, r int, scratch []byte) {
	for _, c := range t.cols {
		if c.Kind == Float {
			bits := math.Float64bits(c.floats[r])
			if math.IsNaN(c.floats[r]) {
				bits = nanBits
			}
			binary.LittleEndian.PutUint64(scratch, bits)
			d.Write(scratch)
			continue
		}
		binary.LittleEndian.PutUint64(scratch, uint64(len(c.strings[r])))
		d.Write(scratch)
		d.WriteString(c.strings[r])
	}
}

func (t *Table) rowsEqual(a, b int) bool {
	for _, c := range t.cols {
		if c.Kind == Float {
			x, y := c.floats[a], c.floats[b]
			if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
				return false
			}
			continue
		}
		if c.strings[a] != c.strings[b] {
			return false
		}
	}
	return true
}
