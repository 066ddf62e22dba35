package analysis

import "fmt"

// DepthWarning flags a root whose nesting depth exceeds the configured limit.
//
// Depth is a warning, not an error: the verdicts are still computed and
// correct. It marks inputs where the recursive walk is close to the stack
// budget callers should expect.
type DepthWarning struct {
	Root    string `json:"root"`
	Depth   int    `json:"depth"`
	Limit   int    `json:"limit"`
	Message string `json:"message"`
	Level   string `json:"level"` // "warning" or "info"
}

// CheckDepth reports every result deeper than limit. A negative limit
// disables the check. Results within a quarter of the limit get an "info"
// entry so callers see trends before they become warnings.
func CheckDepth(results []RootResult, limit int) []DepthWarning {
	if limit < 0 {
		return nil
	}

	var warnings []DepthWarning
	for _, res := range results {
		switch {
		case res.Depth > limit:
			warnings = append(warnings, DepthWarning{
				Root:    res.Name,
				Depth:   res.Depth,
				Limit:   limit,
				Message: fmt.Sprintf("root %q nests %d levels deep (limit %d)", res.Name, res.Depth, limit),
				Level:   "warning",
			})
		case limit >= 4 && res.Depth > limit-limit/4:
			warnings = append(warnings, DepthWarning{
				Root:    res.Name,
				Depth:   res.Depth,
				Limit:   limit,
				Message: fmt.Sprintf("root %q nests %d levels deep, approaching limit %d", res.Name, res.Depth, limit),
				Level:   "info",
			})
		}
	}
	return warnings
}
