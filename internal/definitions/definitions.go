package definitions

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/siteview/siteview/backend-go/internal/codec"
	"github.com/siteview/siteview/backend-go/internal/document"
)

const (
	phaseTable    = "XSG"
	detectorTable = "XDET"
	nameColumn    = "Name"
	symbolColumn  = "LampSymbol"

	// NoDetector heads the detector pick list.
	NoDetector = "None"
)

// ImportError reports a controller configuration that could not be read.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import definitions: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Definitions are the phase and detector names taken from a controller
// configuration export.
type Definitions struct {
	Phases    []string `json:"phases"`
	Detectors []string `json:"detectors"`

	// LampSymbols is keyed by phase name as written in the source.
	LampSymbols map[string]string `json:"lampSymbols,omitempty"`

	defaults map[string]document.ArrowType // lower(phase) -> arrow
}

// Empty returns definitions with no names.
func Empty() *Definitions {
	return &Definitions{
		LampSymbols: map[string]string{},
		defaults:    map[string]document.ArrowType{},
	}
}

// Import reads a CPF/XML document. Only the XSG (phases) and XDET
// (detectors) tables are used; everything else is ignored.
func Import(r io.Reader) (*Definitions, error) {
	cols, err := readColumns(r)
	if err != nil {
		return nil, &ImportError{Err: err}
	}
	if _, ok := cols[phaseTable]; !ok {
		if _, ok := cols[detectorTable]; !ok {
			return nil, &ImportError{Err: errors.New("no XSG or XDET table")}
		}
	}

	d := Empty()
	phaseNames := cols[phaseTable][nameColumn]
	d.Phases = nonBlank(phaseNames)
	d.Detectors = nonBlank(cols[detectorTable][nameColumn])

	// Symbols pair with the unfiltered name column, row by row.
	symbols := cols[phaseTable][symbolColumn]
	for i := 0; i < min(len(phaseNames), len(symbols)); i++ {
		name := phaseNames[i]
		if name == "" {
			continue
		}
		d.LampSymbols[name] = symbols[i]
		if at, ok := ArrowFromLampSymbol(symbols[i]); ok {
			d.defaults[strings.ToLower(name)] = at
		}
	}
	return d, nil
}

// ArrowFromLampSymbol converts a signal lamp symbol into the default arrow
// for that phase.
func ArrowFromLampSymbol(sym string) (document.ArrowType, bool) {
	sym = strings.TrimSpace(sym)
	switch {
	case sym == "":
		return document.Arrow, false
	case strings.EqualFold(sym, "Default"):
		return document.Arrow, true
	case strings.EqualFold(sym, "Pedestrian"), strings.EqualFold(sym, "Toucan"):
		return document.PedCrossing, true
	}
	return codec.ParseArrow(sym)
}

// DefaultArrow returns the imported default for a phase id.
func (d *Definitions) DefaultArrow(id string) (document.ArrowType, bool) {
	at, ok := d.defaults[strings.ToLower(strings.TrimSpace(id))]
	return at, ok
}

// Defaults returns a copy of the default arrow table keyed by lower-cased name.
func (d *Definitions) Defaults() map[string]document.ArrowType {
	out := make(map[string]document.ArrowType, len(d.defaults))
	for k, v := range d.defaults {
		out[k] = v
	}
	return out
}

// IsPhase reports whether id names an imported phase.
func (d *Definitions) IsPhase(id string) bool {
	return contains(d.Phases, id)
}

// IsDetector reports whether id names an imported detector.
func (d *Definitions) IsDetector(id string) bool {
	return contains(d.Detectors, id)
}

// DetectorChoices is the detector pick list, headed by NoDetector.
func (d *Definitions) DetectorChoices() []string {
	return append([]string{NoDetector}, d.Detectors...)
}

// Positions numbers phases and detectors by their row in the source. A
// detector sharing a name with a phase overwrites it.
func (d *Definitions) Positions() *document.Mappings {
	m := document.NewMappings()
	for i, n := range d.Phases {
		m.Set(n, i)
	}
	for i, n := range d.Detectors {
		m.Set(n, i)
	}
	return m
}

// ApplyDefault sets a phase line's arrow to its imported default unless the
// type was edited by hand. It reports whether the line changed.
func (d *Definitions) ApplyDefault(l *document.LineShape) bool {
	if l.TypeEdited || strings.TrimSpace(l.ID) == "" {
		return false
	}
	at, ok := d.DefaultArrow(l.ID)
	if !ok || at == l.Type {
		return false
	}
	l.Type = at
	return true
}

// Apply replaces the document's position table and applies default arrows
// to every phase. It returns the number of phases whose type changed.
func (d *Definitions) Apply(doc *document.Document) int {
	doc.Positions = d.Positions()
	changed := 0
	for _, p := range doc.Phases {
		if d.ApplyDefault(p) {
			changed++
		}
	}
	return changed
}

// readColumns streams the document and collects Data cells per table and
// column name. Tables and columns may be nested at any depth.
func readColumns(r io.Reader) (map[string]map[string][]string, error) {
	dec := xml.NewDecoder(r)

	cols := make(map[string]map[string][]string)
	var table, column string
	var tableDepth, columnDepth, depth int

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "Table":
				if table == "" {
					table, tableDepth = attr(t, "Name"), depth
					if _, ok := cols[table]; !ok {
						cols[table] = make(map[string][]string)
					}
				}
			case "Column":
				if table != "" && column == "" {
					column, columnDepth = attr(t, "Name"), depth
				}
			case "Data":
				if table != "" && column != "" {
					var s string
					if err := dec.DecodeElement(&s, &t); err != nil {
						return nil, err
					}
					depth--
					cols[table][column] = append(cols[table][column], strings.TrimSpace(s))
				}
			}
		case xml.EndElement:
			if depth == columnDepth {
				column, columnDepth = "", 0
			}
			if depth == tableDepth {
				table, tableDepth = "", 0
			}
			depth--
		}
	}
	if depth != 0 {
		return nil, errors.New("unexpected end of document")
	}
	return cols, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(names []string, id string) bool {
	id = strings.TrimSpace(id)
	for _, n := range names {
		if strings.EqualFold(n, id) {
			return true
		}
	}
	return false
}
