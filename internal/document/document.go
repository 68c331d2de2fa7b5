package document

import "strings"

// Collection names one of the three owning shape lists.
type Collection int

const (
	CollectionNone Collection = iota
	CollectionPhases
	CollectionDetectors
	CollectionTexts
)

func (c Collection) String() string {
	switch c {
	case CollectionPhases:
		return "phases"
	case CollectionDetectors:
		return "detectors"
	case CollectionTexts:
		return "texts"
	default:
		return "none"
	}
}

// Ref addresses a live shape by owning collection and index. The zero Ref
// refers to nothing.
type Ref struct {
	Collection Collection `json:"collection"`
	Index      int        `json:"index"`
}

func (r Ref) Valid() bool {
	return r.Collection != CollectionNone && r.Index >= 0
}

// Document owns every shape of a layout.
type Document struct {
	ImageFile string
	Phases    []*LineShape
	Detectors []Shape // KindLine or KindSquare
	Texts     []*TextShape
	Positions *Mappings
}

// NewDocument creates an empty layout that references the default image name.
func NewDocument() *Document {
	return &Document{
		ImageFile: DefaultImageFile,
		Positions: NewMappings(),
	}
}

func (d *Document) AddPhase(l *LineShape) Ref {
	d.Phases = append(d.Phases, l)
	return Ref{Collection: CollectionPhases, Index: len(d.Phases) - 1}
}

func (d *Document) AddDetector(s Shape) Ref {
	d.Detectors = append(d.Detectors, s)
	return Ref{Collection: CollectionDetectors, Index: len(d.Detectors) - 1}
}

func (d *Document) AddText(t *TextShape) Ref {
	d.Texts = append(d.Texts, t)
	return Ref{Collection: CollectionTexts, Index: len(d.Texts) - 1}
}

// Shape resolves a reference to the live shape it points at.
func (d *Document) Shape(r Ref) (Shape, bool) {
	switch r.Collection {
	case CollectionPhases:
		if r.Index >= 0 && r.Index < len(d.Phases) {
			return LineOf(d.Phases[r.Index]), true
		}
	case CollectionDetectors:
		if r.Index >= 0 && r.Index < len(d.Detectors) {
			return d.Detectors[r.Index], true
		}
	case CollectionTexts:
		if r.Index >= 0 && r.Index < len(d.Texts) {
			return TextOf(d.Texts[r.Index]), true
		}
	}
	return Shape{}, false
}

// Remove deletes the referenced shape from its collection. It reports whether
// anything was removed.
func (d *Document) Remove(r Ref) bool {
	if _, ok := d.Shape(r); !ok {
		return false
	}
	switch r.Collection {
	case CollectionPhases:
		d.Phases = append(d.Phases[:r.Index], d.Phases[r.Index+1:]...)
	case CollectionDetectors:
		d.Detectors = append(d.Detectors[:r.Index], d.Detectors[r.Index+1:]...)
	case CollectionTexts:
		d.Texts = append(d.Texts[:r.Index], d.Texts[r.Index+1:]...)
	}
	return true
}

// Clone deep-copies the whole document.
func (d *Document) Clone() *Document {
	c := &Document{
		ImageFile: d.ImageFile,
		Phases:    make([]*LineShape, len(d.Phases)),
		Detectors: make([]Shape, len(d.Detectors)),
		Texts:     make([]*TextShape, len(d.Texts)),
		Positions: d.Positions.Clone(),
	}
	for i, p := range d.Phases {
		c.Phases[i] = LineOf(p).Clone().Line
	}
	for i, s := range d.Detectors {
		c.Detectors[i] = s.Clone()
	}
	for i, t := range d.Texts {
		nt := *t
		c.Texts[i] = &nt
	}
	return c
}

// NameCount is one row of the phase/detector usage tables.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Type  string `json:"type,omitempty"`
}

// PhaseCounts counts phase lines per name, in the order of names.
func (d *Document) PhaseCounts(names []string, defaults map[string]ArrowType) []NameCount {
	counts := make(map[string]int)
	for _, p := range d.Phases {
		counts[strings.ToLower(p.ID)]++
	}
	rows := make([]NameCount, 0, len(names))
	for _, n := range names {
		row := NameCount{Name: n, Count: counts[strings.ToLower(n)]}
		if def, ok := defaults[strings.ToLower(n)]; ok {
			row.Type = def.String()
		}
		rows = append(rows, row)
	}
	return rows
}

// DetectorCounts counts line and square detectors per name, in the order of names.
func (d *Document) DetectorCounts(names []string) []NameCount {
	counts := make(map[string]int)
	for _, s := range d.Detectors {
		id := strings.TrimSpace(s.ID())
		if id == "" {
			continue
		}
		counts[strings.ToLower(id)]++
	}
	rows := make([]NameCount, 0, len(names))
	for _, n := range names {
		rows = append(rows, NameCount{Name: n, Count: counts[strings.ToLower(n)], Type: "Detector"})
	}
	return rows
}
