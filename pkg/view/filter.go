package view

import (
	"strings"

	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/types"
)

// Filter keeps the records whose label contains text, ignoring case. An empty
// text returns the input as is. Order is preserved.
func Filter(in []types.Record, text string) []types.Record {
	if text == "" {
		return in
	}
	needle := records.Fold(text)
	ret := make([]types.Record, 0, len(in))
	for _, r := range in {
		if strings.Contains(records.Fold(r.Label), needle) {
			ret = append(ret, r)
		}
	}
	return ret
}
