//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/seatplan/seatplan/internal/engine"
	"github.com/seatplan/seatplan/internal/layout"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(engine.DefaultGridSize)

	// Create the engine API object
	seatplanEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	seatplanEngine.Set("loadLayout", js.FuncOf(loadLayout))
	seatplanEngine.Set("loadSample", js.FuncOf(loadSample))
	seatplanEngine.Set("select", js.FuncOf(selectItem))
	seatplanEngine.Set("setZoom", js.FuncOf(setZoom))
	seatplanEngine.Set("zoomAt", js.FuncOf(zoomAt))
	seatplanEngine.Set("setPan", js.FuncOf(setPan))
	seatplanEngine.Set("setGridSize", js.FuncOf(setGridSize))
	seatplanEngine.Set("beginDrag", js.FuncOf(beginDrag))
	seatplanEngine.Set("dragTo", js.FuncOf(dragTo))
	seatplanEngine.Set("endDrag", js.FuncOf(endDrag))
	seatplanEngine.Set("cancelDrag", js.FuncOf(cancelDrag))
	seatplanEngine.Set("addTable", js.FuncOf(addTable))
	seatplanEngine.Set("removeItem", js.FuncOf(removeItem))
	seatplanEngine.Set("rotate", js.FuncOf(rotate))
	seatplanEngine.Set("resize", js.FuncOf(resize))
	seatplanEngine.Set("setCapacity", js.FuncOf(setCapacity))

	// --- Queries (frontend ← engine) ---
	seatplanEngine.Set("render", js.FuncOf(render))
	seatplanEngine.Set("hitTest", js.FuncOf(hitTest))
	seatplanEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	seatplanEngine.Set("getState", js.FuncOf(getState))
	seatplanEngine.Set("getLayout", js.FuncOf(getLayout))
	seatplanEngine.Set("chairs", js.FuncOf(chairs))
	seatplanEngine.Set("validate", js.FuncOf(validate))

	js.Global().Set("seatplanEngine", seatplanEngine)
	js.Global().Set("seatplanWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// toJSON marshals v for the frontend, which parses it with JSON.parse.
func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(string(data))
}

func point(args []js.Value, at int) (layout.Position, bool) {
	if len(args) < at+2 {
		return layout.Position{}, false
	}
	return layout.Position{X: args[at].Float(), Y: args[at+1].Float()}, true
}

// --- Command Handlers ---

func loadLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing layout JSON")
	}
	if err := eng.LoadLayout(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func loadSample(this js.Value, args []js.Value) interface{} {
	chartID := "chart_playground"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		chartID = args[0].String()
	}
	eng.LoadSampleLayout(chartID)
	return ok()
}

func selectItem(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].IsNull() || args[0].IsUndefined() {
		eng.ClearSelection()
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Select(args[0].String()))
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing zoom")
	}
	return js.ValueOf(eng.SetZoom(args[0].Float()))
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	p, found := point(args, 1)
	if !found {
		return fail("usage: zoomAt(zoom, x, y)")
	}
	return js.ValueOf(eng.ZoomAt(args[0].Float(), p))
}

func setPan(this js.Value, args []js.Value) interface{} {
	p, found := point(args, 0)
	if !found {
		return fail("usage: setPan(x, y)")
	}
	eng.SetPan(p)
	return ok()
}

func setGridSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing grid size")
	}
	eng.SetGridSize(args[0].Float())
	return ok()
}

func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail("usage: beginDrag(id, x, y)")
	}
	p, _ := point(args, 1)
	if err := eng.BeginDrag(args[0].String(), p); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func dragTo(this js.Value, args []js.Value) interface{} {
	p, found := point(args, 0)
	if !found {
		return fail("usage: dragTo(x, y)")
	}
	pos, err := eng.DragTo(p)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"x": pos.X, "y": pos.Y})
}

func endDrag(this js.Value, args []js.Value) interface{} {
	item, moved, err := eng.EndDrag()
	if err != nil {
		return fail(err.Error())
	}
	if !moved {
		return js.ValueOf(map[string]interface{}{"moved": false})
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"moved": true, "item": string(data)})
}

func cancelDrag(this js.Value, args []js.Value) interface{} {
	eng.CancelDrag()
	return nil
}

func addTable(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return fail("usage: addTable(shape, capacity, x, y)")
	}
	shape, valid := layout.ParseTableShape(args[0].String())
	if !valid {
		return fail("unknown table shape")
	}
	p, _ := point(args, 2)
	item, err := eng.AddTableFromTemplate(shape, args[1].Int(), p)
	if err != nil {
		return fail(err.Error())
	}
	return toJSON(item)
}

func removeItem(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing item id")
	}
	if err := eng.RemoveItem(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func rotate(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return fail("usage: rotate(id, degrees)")
	}
	if err := eng.RotateItem(args[0].String(), args[1].Float()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return fail("usage: resize(id, width, height)")
	}
	size := layout.Size{Width: args[1].Float(), Height: args[2].Float()}
	if err := eng.ResizeItem(args[0].String(), size); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setCapacity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return fail("usage: setCapacity(id, capacity)")
	}
	if err := eng.SetCapacity(args[0].String(), args[1].Int()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, found := point(args, 0)
	if !found {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(p))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.SelectionBounds())
}

func getState(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.State())
}

func getLayout(this js.Value, args []js.Value) interface{} {
	l := eng.Layout()
	if l == nil {
		return js.Null()
	}
	return toJSON(l)
}

func chairs(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return toJSON([]layout.Chair{})
	}
	return toJSON(eng.Chairs(args[0].String()))
}

func validate(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Validate())
}
