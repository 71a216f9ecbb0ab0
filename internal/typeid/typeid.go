package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixChart      = "chart"
	PrefixSnapshot   = "snap"
	PrefixOp         = "op"
	PrefixTable      = "tbl"
	PrefixRowSection = "rows"
	PrefixStage      = "stage"
	PrefixDanceFloor = "floor"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewChartID() string      { return New(PrefixChart) }
func NewSnapshotID() string   { return New(PrefixSnapshot) }
func NewOpID() string         { return New(PrefixOp) }
func NewTableID() string      { return New(PrefixTable) }
func NewRowSectionID() string { return New(PrefixRowSection) }
func NewStageID() string      { return New(PrefixStage) }
func NewDanceFloorID() string { return New(PrefixDanceFloor) }

// Validate reports whether id is a well-formed typeid carrying expectedPrefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
