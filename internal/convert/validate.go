package convert

import (
	"fmt"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

// ValidationResult lists every structural problem found in a canvas item list.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateCanvasItems checks the minimal structure every saved layout needs.
// It never stops at the first problem: each failed rule yields one message.
// An empty list is itself invalid.
func ValidateCanvasItems(items []document.CanvasItem) ValidationResult {
	errs := make([]string, 0)

	if len(items) == 0 {
		errs = append(errs, "layout is empty: nothing to save")
		return ValidationResult{Valid: false, Errors: errs}
	}

	seen := make(map[string]int, len(items))
	for i, it := range items {
		name := itemName(i, it)

		if it.ID != "" {
			if first, dup := seen[it.ID]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate id (also used by item %d)", name, first+1))
			} else {
				seen[it.ID] = i
			}
		}

		switch it.Type {
		case document.ItemTypeTable:
			if it.Capacity < 1 {
				errs = append(errs, fmt.Sprintf("%s: capacity must be at least 1 (got %d)", name, it.Capacity))
			} else if it.Capacity > layout.MaxTableCapacity {
				errs = append(errs, fmt.Sprintf("%s: capacity must be at most %d (got %d)", name, layout.MaxTableCapacity, it.Capacity))
			}
			if it.Shape == "" {
				errs = append(errs, fmt.Sprintf("%s: shape is required", name))
			} else if !it.Shape.Valid() {
				errs = append(errs, fmt.Sprintf("%s: unknown shape %q", name, it.Shape))
			}

		case document.ItemTypeRowSection:
			if it.RowCount < 1 {
				errs = append(errs, fmt.Sprintf("%s: row count must be at least 1 (got %d)", name, it.RowCount))
			}
			if it.SeatsPerRow < 1 {
				errs = append(errs, fmt.Sprintf("%s: seats per row must be at least 1 (got %d)", name, it.SeatsPerRow))
			}

		case document.ItemTypeStage, document.ItemTypeDanceFloor:
			// Decorations carry no seats.

		default:
			errs = append(errs, fmt.Sprintf("%s: unknown item type %q", name, it.Type))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func itemName(i int, it document.CanvasItem) string {
	kind := "item"
	switch it.Type {
	case document.ItemTypeTable:
		kind = "table"
	case document.ItemTypeRowSection:
		kind = "row section"
	case document.ItemTypeStage:
		kind = "stage"
	case document.ItemTypeDanceFloor:
		kind = "dance floor"
	}
	if it.Label != "" {
		return fmt.Sprintf("%s %q", kind, it.Label)
	}
	return fmt.Sprintf("%s %d", kind, i+1)
}
