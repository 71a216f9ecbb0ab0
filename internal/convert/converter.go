package convert

import (
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
	"github.com/seatplan/seatplan/internal/typeid"
)

// Auto-layout cursor settings, in canvas pixels.
const (
	LayoutPadding  = 50.0
	ItemGap        = 40.0
	SectionSpacing = 250.0
)

// Options controls a conversion. The zero value is ready to use.
type Options struct {
	// NewID generates an id for items whose source carries none. Defaults
	// to a typeid with the given prefix.
	NewID func(prefix string) string
}

func (o Options) newID(prefix string) string {
	if o.NewID != nil {
		return o.NewID(prefix)
	}
	return typeid.New(prefix)
}

// rowGroup is a run of consecutive rows sharing a seats-per-row count.
type rowGroup struct {
	seatsPerRow int
	rows        []*RowDescriptor
}

// ConvertSections flattens imported sections into canvas items. Tables come
// first in each section, followed by its row groups. Items without an
// explicit position are placed left to right from the section's starting
// row; each section that produces items starts SectionSpacing below the
// previous one. Placement never moves an item after the cursor has placed it.
func ConvertSections(sections []*SectionDescriptor, opts Options) []document.CanvasItem {
	items := make([]document.CanvasItem, 0)
	placedSections := 0

	for _, section := range sections {
		if section == nil {
			continue
		}

		sectionID := str(section.ID)
		y := LayoutPadding + float64(placedSections)*SectionSpacing
		cursorX := LayoutPadding
		produced := 0

		place := func(it *document.CanvasItem, explicit *layout.Position) {
			if explicit != nil {
				it.Position = *explicit
			} else {
				it.Position = layout.Position{X: cursorX, Y: y}
				cursorX += it.Size.Width + ItemGap
			}
			it.SectionID = sectionID
			items = append(items, *it)
			produced++
		}

		for _, td := range section.Tables {
			if td == nil {
				continue
			}
			it, pos := tableItem(td, opts)
			place(&it, pos)
		}

		for _, g := range groupRows(section.Rows) {
			it := rowSectionItem(g, opts)
			place(&it, nil)
		}

		if produced > 0 {
			placedSections++
		}
	}

	return items
}

func tableItem(td *TableDescriptor, opts Options) (document.CanvasItem, *layout.Position) {
	r := ResolveTable(td)
	id := r.ID
	if id == "" {
		id = opts.newID(typeid.PrefixTable)
	}
	return document.CanvasItem{
		Type:     document.ItemTypeTable,
		ID:       id,
		Size:     r.Size,
		Rotation: r.Rotation,
		Label:    r.Label,
		Color:    r.Color,
		Shape:    r.Shape,
		Capacity: r.Capacity,
	}, r.Position
}

func rowSectionItem(g rowGroup, opts Options) document.CanvasItem {
	// A block keeps the id of its first row so re-imports stay stable.
	id := str(g.rows[0].ID)
	if id == "" {
		id = opts.newID(typeid.PrefixRowSection)
	}

	labels := make([]string, len(g.rows))
	hasLabel := false
	for i, row := range g.rows {
		labels[i] = str(row.Label)
		if labels[i] != "" {
			hasLabel = true
		}
	}
	if !hasLabel {
		labels = nil
	}

	blockLabel := ""
	if len(labels) > 0 {
		blockLabel = labels[0]
		if last := labels[len(labels)-1]; len(labels) > 1 && last != "" && last != blockLabel {
			blockLabel += "–" + last
		}
	}

	return document.CanvasItem{
		Type:        document.ItemTypeRowSection,
		ID:          id,
		Size:        layout.RowBlockSize(len(g.rows), g.seatsPerRow, layout.DefaultRowSpacing, layout.DefaultSeatSpacing),
		Label:       blockLabel,
		RowCount:    len(g.rows),
		SeatsPerRow: g.seatsPerRow,
		RowSpacing:  layout.DefaultRowSpacing,
		SeatSpacing: layout.DefaultSeatSpacing,
		RowLabels:   labels,
	}
}

// groupRows merges consecutive rows with the same seat count.
func groupRows(rows []*RowDescriptor) []rowGroup {
	var groups []rowGroup
	for _, row := range rows {
		if row == nil {
			continue
		}
		n := RowSeatCount(row)
		if len(groups) > 0 && groups[len(groups)-1].seatsPerRow == n {
			last := &groups[len(groups)-1]
			last.rows = append(last.rows, row)
			continue
		}
		groups = append(groups, rowGroup{seatsPerRow: n, rows: []*RowDescriptor{row}})
	}
	return groups
}
