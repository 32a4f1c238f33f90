package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// SplitIDs splits a comma-joined id list, trimming tokens and dropping empty
// ones. Order is kept and duplicates are not removed.
func SplitIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			ids = append(ids, token)
		}
	}
	return ids
}

// parseIDs converts string ids to int64, rejecting anything non-numeric.
func parseIDs(field string, ids []string) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %s contains invalid id %q", shared.ErrValidation, field, id)
		}
		out = append(out, n)
	}
	return out, nil
}

// numericIDs keeps only the ids that parse as positive integers. Ids that do
// not can never match a lookup row and are left to display raw.
func numericIDs(ids []string) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}

func optionalID(field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ids, err := parseIDs(field, []string{raw})
	if err != nil {
		return nil, err
	}
	return &ids[0], nil
}
