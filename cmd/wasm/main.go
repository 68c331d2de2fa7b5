//go:build js && wasm

package main

import (
	"encoding/json"
	"strings"
	"syscall/js"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/definitions"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/engine"
)

var ed *engine.Editor

func main() {
	ed = engine.NewEditor(
		engine.WithOnChange(func(layout string) { callHook("siteviewOnChange", layout) }),
		engine.WithOnRequest(func(req engine.Request) { callHook("siteviewOnRequest", toJSON(req)) }),
	)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("loadLayout", js.FuncOf(loadLayout))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("setImage", js.FuncOf(setImage))
	api.Set("setClient", js.FuncOf(setClient))
	api.Set("setMode", js.FuncOf(setMode))
	api.Set("pointerDown", js.FuncOf(pointer(ed.PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointer(ed.PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointer(ed.PointerUp)))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("respond", js.FuncOf(respond))
	api.Set("applyDefinitions", js.FuncOf(applyDefinitions))
	api.Set("action", js.FuncOf(action))
	api.Set("markSaved", js.FuncOf(func(js.Value, []js.Value) interface{} {
		ed.MarkSaved()
		return nil
	}))

	// --- Queries (frontend ← editor) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getLayout", js.FuncOf(func(js.Value, []js.Value) interface{} { return js.ValueOf(ed.Layout()) }))
	api.Set("getSummary", js.FuncOf(func(js.Value, []js.Value) interface{} { return js.ValueOf(toJSON(ed.Summary())) }))
	api.Set("getViewport", js.FuncOf(func(js.Value, []js.Value) interface{} { return js.ValueOf(toJSON(ed.Viewport())) }))
	api.Set("getState", js.FuncOf(func(js.Value, []js.Value) interface{} { return js.ValueOf(ed.State().String()) }))
	api.Set("getPending", js.FuncOf(getPending))
	api.Set("isDirty", js.FuncOf(func(js.Value, []js.Value) interface{} { return js.ValueOf(ed.Dirty()) }))

	js.Global().Set("siteviewEditor", api)
	js.Global().Set("siteviewWasmReady", js.ValueOf(true))

	select {}
}

func callHook(name string, arg string) {
	fn := js.Global().Get(name)
	if fn.Type() == js.TypeFunction {
		fn.Invoke(arg)
	}
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

// mods reads {ctrl, shift, alt} from a JS object.
func mods(v js.Value) engine.Mods {
	var m engine.Mods
	if v.Type() != js.TypeObject {
		return m
	}
	if v.Get("ctrl").Truthy() {
		m |= engine.ModCtrl
	}
	if v.Get("shift").Truthy() {
		m |= engine.ModShift
	}
	if v.Get("alt").Truthy() {
		m |= engine.ModAlt
	}
	return m
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

// --- Command Handlers ---

func loadLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("layout text")
	}
	skipped, err := ed.LoadLayout(args[0].String())
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "skipped": toJSON(skipped)})
}

func loadSample(this js.Value, args []js.Value) interface{} {
	ed.Load(document.NewSampleDocument())
	return nil
}

func setImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("file, width and height")
	}
	ed.SetImage(args[0].String(), args[1].Int(), args[2].Int())
	return nil
}

func setClient(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("width and height")
	}
	ed.SetClient(args[0].Float(), args[1].Float())
	return nil
}

func setMode(this js.Value, args []js.Value) interface{} {
	mode := engine.CreateNone
	if len(args) > 0 && args[0].Type() == js.TypeString {
		mode = engine.CreateMode(args[0].String())
	}
	return result(ed.SetMode(mode))
}

// pointer adapts a pointer handler to (x, y, button, mods).
func pointer(fn func(engine.PointerEvent) error) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return missing("x and y")
		}
		ev := engine.PointerEvent{
			At:   document.Point{X: args[0].Float(), Y: args[1].Float()},
			Mods: mods(arg(args, 3)),
		}
		if b := arg(args, 2); b.Type() == js.TypeNumber && b.Int() == 2 {
			ev.Button = engine.ButtonSecondary
		}
		return result(fn(ev))
	}
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("delta")
	}
	return result(ed.Wheel(args[0].Float(), mods(arg(args, 1))))
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("key")
	}
	host, err := ed.KeyDown(args[0].String(), mods(arg(args, 1)))
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "host": string(host)})
}

func respond(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("response JSON")
	}
	var resp engine.Response
	if err := json.Unmarshal([]byte(args[0].String()), &resp); err != nil {
		return result(err)
	}
	return result(ed.Respond(resp))
}

func applyDefinitions(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("definitions XML")
	}
	defs, err := definitions.Import(strings.NewReader(args[0].String()))
	if err != nil {
		return result(err)
	}
	return result(ed.ApplyDefinitions(defs))
}

// action runs a named editor action: action(name, value, x, y).
func action(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("action name")
	}
	value := ""
	if v := arg(args, 1); v.Type() == js.TypeString {
		value = v.String()
	}
	var at document.Point
	if len(args) >= 4 {
		at = document.Point{X: args[2].Float(), Y: args[3].Float()}
	}

	switch args[0].String() {
	case "duplicate":
		return result(ed.DuplicateSelected())
	case "copy":
		return result(ed.Copy())
	case "paste":
		return result(ed.Paste())
	case "delete":
		return result(ed.DeleteSelected())
	case "bend":
		p, ok := ed.Viewport().ScreenToImage(at)
		if !ok {
			return result(engine.ErrNoImage)
		}
		return result(ed.InsertBendAt(p))
	case "arrow":
		t, ok := codec.ParseArrow(value)
		if !ok {
			return js.ValueOf(map[string]interface{}{"error": "unknown arrow type " + value})
		}
		return result(ed.SetArrowType(t))
	case "assign.phase":
		if value == "" {
			return result(ed.RequestAssignPhase())
		}
		return result(ed.AssignPhase(value))
	case "assign.detector":
		if value == "" {
			return result(ed.RequestAssignDetector())
		}
		if strings.EqualFold(value, definitions.NoDetector) {
			value = ""
		}
		return result(ed.AssignDetector(value))
	case "edit.text":
		return result(ed.RequestEditText())
	case "color.square":
		return result(ed.RequestSquareColor())
	case "drop":
		return result(ed.DropDefinition(value, at))
	}
	return js.ValueOf(map[string]interface{}{"error": "unknown action " + args[0].String()})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, err := ed.Render()
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	hit, ok := ed.HitTest(document.Point{X: args[0].Float(), Y: args[1].Float()})
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(toJSON(hit))
}

func getPending(this js.Value, args []js.Value) interface{} {
	req, ok := ed.Pending()
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(toJSON(req))
}
