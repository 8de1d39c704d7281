package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Current: 1, Size: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Current: 3, Size: MaxPageSize}, Page{Current: 3, Size: 5000}.Normalize())
	assert.Equal(t, MaxPageNum, Page{Current: 1 << 61, Size: 10}.Normalize().Current)
}

func TestPageOffsetNeverNegative(t *testing.T) {
	assert.Equal(t, 0, Page{}.Offset())
	assert.Equal(t, 20, Page{Current: 3, Size: 10}.Offset())
	for _, current := range []int{1 << 61, 1<<62 + 7, MaxPageNum} {
		assert.GreaterOrEqual(t, Page{Current: current, Size: MaxPageSize}.Offset(), 0, current)
	}
}
