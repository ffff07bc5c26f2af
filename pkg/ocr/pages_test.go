package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocrkit/ocrkit/pkg/utils"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []int
	}{
		{name: "empty selects all", spec: "", want: nil},
		{name: "whitespace selects all", spec: "   ", want: nil},
		{name: "single page", spec: "1", want: []int{0}},
		{name: "simple range", spec: "1-5", want: []int{0, 1, 2, 3, 4}},
		{name: "mixed", spec: "1-5,10,20-25", want: []int{0, 1, 2, 3, 4, 9, 19, 20, 21, 22, 23, 24}},
		{name: "duplicates collapse", spec: "3,1-3,2", want: []int{0, 1, 2}},
		{name: "unsorted input sorts", spec: "10,2,7", want: []int{1, 6, 9}},
		{name: "spaces tolerated", spec: " 1 - 3 , 5 ", want: []int{0, 1, 2, 4}},
		{name: "single page range", spec: "4-4", want: []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePages(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePagesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{name: "zero page", spec: "0"},
		{name: "zero in range", spec: "0-5"},
		{name: "reversed range", spec: "5-1"},
		{name: "negative page", spec: "-3"},
		{name: "letters", spec: "abc"},
		{name: "letters in range", spec: "1-x"},
		{name: "empty segment", spec: "1,,5"},
		{name: "trailing comma", spec: "1,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePages(tt.spec)
			require.Error(t, err)
			assert.Equal(t, utils.ErrorTypeValidation, utils.GetErrorType(err))
		})
	}
}

func TestBatchSpans(t *testing.T) {
	t.Run("even split with remainder", func(t *testing.T) {
		assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, batchSpans(10, 4))
	})

	t.Run("single span when size exceeds total", func(t *testing.T) {
		assert.Equal(t, [][2]int{{0, 3}}, batchSpans(3, 16))
	})

	t.Run("size below one covers everything", func(t *testing.T) {
		assert.Equal(t, [][2]int{{0, 5}}, batchSpans(5, 0))
	})

	t.Run("nothing to split", func(t *testing.T) {
		assert.Nil(t, batchSpans(0, 4))
	})

	t.Run("spans are contiguous and complete", func(t *testing.T) {
		spans := batchSpans(23, 7)
		next := 0
		for _, span := range spans {
			assert.Equal(t, next, span[0])
			assert.LessOrEqual(t, span[1]-span[0], 7)
			next = span[1]
		}
		assert.Equal(t, 23, next)
	})
}

func TestSelectPages(t *testing.T) {
	t.Run("nil selects all pages", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2}, SelectPages(nil, 3))
	})

	t.Run("indices past the last page drop", func(t *testing.T) {
		assert.Equal(t, []int{0, 4}, SelectPages([]int{0, 4, 9, 50}, 5))
	})

	t.Run("selection fully out of range is empty", func(t *testing.T) {
		assert.Empty(t, SelectPages([]int{10, 11}, 3))
	})
}
