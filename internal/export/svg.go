package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/engine"
)

// WriteSVG renders a layout as a standalone SVG document. It draws the same
// command buffer the browser canvas executes, so the export matches the editor.
func WriteSVG(w io.Writer, l *document.Layout) error {
	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)

	width, height := l.Width, l.Height
	if width <= 0 {
		width = 1600
	}
	if height <= 0 {
		height = 1000
	}

	canvas.Startview(width, height, 0, 0, width, height)
	if l.Background != "" {
		canvas.Rect(0, 0, width, height, attr("fill", l.Background))
	}

	sg := engine.BuildSceneGraph(l, "")
	for _, cmd := range engine.CompileDrawCommands(sg) {
		switch cmd.Op {
		case "path":
			writePath(canvas, cmd)
		case "text":
			writeText(canvas, cmd)
		}
	}

	canvas.End()
	return bw.Flush()
}

func writePath(canvas *svg.SVG, cmd engine.DrawCommand) {
	fill := cmd.Fill
	if fill == "" {
		fill = "none"
	}
	attrs := []string{attr("fill", fill)}
	if cmd.Stroke != "" {
		attrs = append(attrs, attr("stroke", cmd.Stroke), attr("stroke-width", num(cmd.StrokeWidth)))
	}
	if t := transform(cmd.Transform); t != "" {
		attrs = append(attrs, attr("transform", t))
	}
	if cmd.ItemID != "" {
		attrs = append(attrs, attr("data-item", cmd.ItemID))
	}
	if cmd.SeatNumber > 0 {
		attrs = append(attrs, attr("data-seat", strconv.Itoa(cmd.SeatNumber)))
	}
	canvas.Path(pathData(cmd.Path), attrs...)
}

// writeText places the label through a group transform; svgo positions text
// on integer coordinates only.
func writeText(canvas *svg.SVG, cmd engine.DrawCommand) {
	place := fmt.Sprintf("translate(%s %s)", num(cmd.X), num(cmd.Y))
	if t := transform(cmd.Transform); t != "" {
		place = t + " " + place
	}
	canvas.Gtransform(place)
	canvas.Text(0, 0, cmd.Text,
		`text-anchor="middle"`,
		`dominant-baseline="middle"`,
		`font-family="sans-serif"`,
		`font-size="12"`,
	)
	canvas.Gend()
}

func transform(m []float64) string {
	if len(m) != 6 || engine.Matrix2D(m).IsIdentity() {
		return ""
	}
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = num(v)
	}
	return "matrix(" + strings.Join(parts, " ") + ")"
}

// pathData converts canvas path commands into an SVG path string.
func pathData(path []engine.PathCommand) string {
	var sb strings.Builder
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(op)
		for _, arg := range cmd[1:] {
			sb.WriteByte(' ')
			switch v := arg.(type) {
			case float64:
				sb.WriteString(num(v))
			case int:
				sb.WriteString(strconv.Itoa(v))
			}
		}
	}
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// attr formats an escaped attribute; svgo writes attribute strings verbatim.
func attr(name, value string) string {
	return name + `="` + escape(value) + `"`
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
