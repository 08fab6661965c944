// conf/utils.go various util functions for configuration package
package conf

import (
	"strconv"
	"strings"

	"github.com/tphakala/sift-go/internal/errors"
)

// ParseCSV parses a comma-separated list of numbers such as "1000,640,480".
// Blank items are skipped, so an empty string yields an empty, non-nil slice.
func ParseCSV(value string) ([]float64, error) {
	values := make([]float64, 0)
	for item := range strings.SplitSeq(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryValidation).
				Context("value", value).
				Context("item", item).
				Build()
		}
		values = append(values, v)
	}
	return values, nil
}

// FormatCSV is the inverse of ParseCSV
func FormatCSV(values []float64) string {
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(items, ",")
}
