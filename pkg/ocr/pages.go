package ocr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ocrkit/ocrkit/pkg/utils"
)

// ParsePages parses a 1-indexed page selection like "1-5,10,20-25" into
// sorted, deduplicated 0-based page indices. An empty spec selects all
// pages, signalled by a nil slice. Page numbers below 1 and reversed
// ranges are rejected.
func ParsePages(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, utils.NewValidationError(
				fmt.Sprintf("invalid page selection %q: empty segment", spec), nil)
		}

		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			start, err := parsePageNumber(bounds[0], spec)
			if err != nil {
				return nil, err
			}
			end, err := parsePageNumber(bounds[1], spec)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, utils.NewValidationError(
					fmt.Sprintf("invalid page range %q: end before start", part), nil)
			}
			for page := start; page <= end; page++ {
				seen[page-1] = true
			}
			continue
		}

		page, err := parsePageNumber(part, spec)
		if err != nil {
			return nil, err
		}
		seen[page-1] = true
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

// parsePageNumber parses a single 1-indexed page number
func parsePageNumber(s, spec string) (int, error) {
	s = strings.TrimSpace(s)
	page, err := strconv.Atoi(s)
	if err != nil {
		return 0, utils.NewValidationError(
			fmt.Sprintf("invalid page selection %q: %q is not a page number", spec, s), nil)
	}
	if page < 1 {
		return 0, utils.NewValidationError(
			fmt.Sprintf("invalid page selection %q: pages are numbered from 1", spec), nil)
	}
	return page, nil
}

// SelectPages resolves a parsed selection against a document's page count.
// A nil selection means all pages; indices past the last page are dropped.
func SelectPages(indices []int, pageCount int) []int {
	if indices == nil {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i
		}
		return all
	}

	selected := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < pageCount {
			selected = append(selected, idx)
		}
	}
	return selected
}

// batchSpans splits n items into contiguous [start, end) spans of at most
// size items each. A size below 1 yields a single span covering everything.
func batchSpans(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		return [][2]int{{0, n}}
	}

	var spans [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, [2]int{start, end})
	}
	return spans
}
