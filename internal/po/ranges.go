package po

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePageRanges parses a range list of the form "1-10:22,11-20" where the
// optional ":N" suffix is the expected item count for that range.
func ParsePageRanges(s string) ([]PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ranges []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		spec := part
		var expected *int
		if i := strings.IndexByte(part, ':'); i != -1 {
			n, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid expected count in range %q", part)
			}
			expected = &n
			spec = part[:i]
		}

		lo, hi, ok := strings.Cut(spec, "-")
		if !ok {
			// single page, e.g. "7"
			hi = lo
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid start page in range %q", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid end page in range %q", part)
		}

		ranges = append(ranges, PageRange{StartPage: start, EndPage: end, ExpectedItems: expected})
	}
	return ranges, nil
}
