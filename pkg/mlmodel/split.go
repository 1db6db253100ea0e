package mlmodel

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mimir-aip/winequality/pkg/models"
)

// StratifiedSplit partitions row indices into train and test sets so that every class keeps
// its share of rows in both. Each class contributes round(n*testSize) rows to the test set,
// with at least one row on each side. Returned indices are sorted.
func StratifiedSplit(labels []string, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, models.NewConfigurationError("StratifiedSplit", "test_size", "must be in (0, 1), got %v", testSize)
	}

	groups := make(map[string][]int)
	for i, label := range labels {
		groups[label] = append(groups[label], i)
	}
	classes := make([]string, 0, len(groups))
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	if len(classes) < 2 {
		return nil, nil, fmt.Errorf("stratified split needs at least 2 classes, got %d", len(classes))
	}

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		members := append([]int(nil), groups[c]...)
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("class %q has %d row, need at least 2 to stratify", c, len(members))
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		nTest := int(math.Round(float64(len(members)) * testSize))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(members)-1 {
			nTest = len(members) - 1
		}
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
