package linuxperf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_getStringColorId(t *testing.T) {
	for _, s := range []string{"", "a", "Running", "MISRWrapper", "C-State.state"} {
		id := getStringColorId(s)
		assert.GreaterOrEqual(t, id, 0, s)
		assert.Less(t, id, numRegularColorIds, s)

		// Memoized or not, the answer is the same.
		assert.Equal(t, id, getStringColorId(s), s)
		assert.Equal(t, int(getStringHash(s)%numRegularColorIds), id, s)
	}

	assert.Equal(t, uint64(0), getStringHash(""))
	assert.Equal(t, uint64(11*'a'), getStringHash("a"))
}

func Test_getColorIdByName(t *testing.T) {
	assert.Equal(t, numRegularColorIds, getColorIdByName("running"))
	assert.Equal(t, numRegularColorIds+1, getColorIdByName("runnable"))
	assert.Equal(t, numRegularColorIds+2, getColorIdByName("sleeping"))
	assert.Equal(t, numRegularColorIds+3, getColorIdByName("iowait"))
	assert.Equal(t, -1, getColorIdByName("purple"))
}
