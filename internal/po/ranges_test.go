package po

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRanges(t *testing.T) {
	ranges, err := ParsePageRanges("1-10:22, 11-20")
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	assert.Equal(t, 1, ranges[0].StartPage)
	assert.Equal(t, 10, ranges[0].EndPage)
	require.NotNil(t, ranges[0].ExpectedItems)
	assert.Equal(t, 22, *ranges[0].ExpectedItems)

	assert.Equal(t, 11, ranges[1].StartPage)
	assert.Equal(t, 20, ranges[1].EndPage)
	assert.Nil(t, ranges[1].ExpectedItems)
}

func TestParsePageRangesSinglePage(t *testing.T) {
	ranges, err := ParsePageRanges("7")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, 7, ranges[0].StartPage)
	assert.Equal(t, 7, ranges[0].EndPage)
}

func TestParsePageRangesSinglePageWithCount(t *testing.T) {
	ranges, err := ParsePageRanges("3:5")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, 3, ranges[0].StartPage)
	assert.Equal(t, 3, ranges[0].EndPage)
	require.NotNil(t, ranges[0].ExpectedItems)
	assert.Equal(t, 5, *ranges[0].ExpectedItems)
}

func TestParsePageRangesEmpty(t *testing.T) {
	ranges, err := ParsePageRanges("   ")
	require.NoError(t, err)
	assert.Nil(t, ranges)
}

func TestParsePageRangesErrors(t *testing.T) {
	for _, in := range []string{"a-b", "1-x", "1-10:zero", "1-10:0", "1-10:-3"} {
		_, err := ParsePageRanges(in)
		assert.Error(t, err, "input %q", in)
	}
}
