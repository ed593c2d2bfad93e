// Package bindcore parses CPU core-group specs like "1,5-7" and binds the
// calling OS thread to the parsed set where the platform supports it.
package bindcore

import (
	"strconv"
	"strings"

	"github.com/pingcap/errors"
)

// ParseCoreGroup converts a spec such as "1,5-7" into the core list
// [1 5 6 7], in order of first appearance with duplicates dropped. An empty
// spec yields an empty list (binding disabled).
func ParseCoreGroup(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]struct{})
	var cores []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.Errorf("empty segment in core group %q", spec)
		}

		bounds := strings.SplitN(part, "-", 2)
		lo, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, errors.Errorf("invalid core %q in group %q", part, spec)
		}
		hi := lo
		if len(bounds) == 2 {
			hi, err = strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, errors.Errorf("invalid core range %q in group %q", part, spec)
			}
		}
		if lo < 0 || hi < lo {
			return nil, errors.Errorf("invalid core range %q in group %q", part, spec)
		}

		for c := lo; c <= hi; c++ {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cores = append(cores, c)
		}
	}
	return cores, nil
}
