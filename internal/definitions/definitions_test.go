package definitions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteview/siteview/backend-go/internal/document"
)

const sampleCPF = `<?xml version="1.0" encoding="utf-8"?>
<Configuration>
  <Tables>
    <Table Name="XSG">
      <Column Name="Name">
        <Data>A</Data>
        <Data> </Data>
        <Data>B</Data>
        <Data>P1</Data>
      </Column>
      <Column Name="LampSymbol">
        <Data>Default</Data>
        <Data>Left_Arrow</Data>
        <Data>Right_Arrow</Data>
        <Data>Pedestrian</Data>
      </Column>
    </Table>
    <Table Name="XDET">
      <Column Name="Name"><Data>D1</Data><Data>A</Data></Column>
    </Table>
    <Table Name="XOTHER">
      <Column Name="Name"><Data>ignored</Data></Column>
    </Table>
  </Tables>
</Configuration>`

func TestImport(t *testing.T) {
	d, err := Import(strings.NewReader(sampleCPF))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "P1"}, d.Phases)
	assert.Equal(t, []string{"D1", "A"}, d.Detectors)

	// Symbols pair with rows, so the blank row still consumes one.
	assert.Equal(t, "Right_Arrow", d.LampSymbols["B"])
	at, ok := d.DefaultArrow("b")
	require.True(t, ok)
	assert.Equal(t, document.RightArrow, at)

	at, _ = d.DefaultArrow("P1")
	assert.Equal(t, document.PedCrossing, at)
	at, _ = d.DefaultArrow("A")
	assert.Equal(t, document.Arrow, at)
}

func TestImportRejects(t *testing.T) {
	_, err := Import(strings.NewReader(`<Configuration><Table Name="XFOO"/></Configuration>`))
	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)

	_, err = Import(strings.NewReader(`<Configuration><Table Name="XSG">`))
	require.ErrorAs(t, err, &ierr)
}

func TestImportDetectorsOnly(t *testing.T) {
	d, err := Import(strings.NewReader(`<C><Table Name="XDET"><Column Name="Name"><Data>D9</Data></Column></Table></C>`))
	require.NoError(t, err)
	assert.Empty(t, d.Phases)
	assert.Equal(t, []string{NoDetector, "D9"}, d.DetectorChoices())
}

func TestArrowFromLampSymbol(t *testing.T) {
	tests := []struct {
		sym  string
		want document.ArrowType
		ok   bool
	}{
		{"Default", document.Arrow, true},
		{"toucan", document.PedCrossing, true},
		{"Pedestrian", document.PedCrossing, true},
		{"Left_Arrow", document.LeftArrow, true},
		{"NoArrow", document.NoArrow, true},
		{"", document.Arrow, false},
		{"Flashing", document.Arrow, false},
	}
	for _, tt := range tests {
		got, ok := ArrowFromLampSymbol(tt.sym)
		assert.Equal(t, tt.want, got, tt.sym)
		assert.Equal(t, tt.ok, ok, tt.sym)
	}
}

func TestPositionsDetectorOverwrites(t *testing.T) {
	d, err := Import(strings.NewReader(sampleCPF))
	require.NoError(t, err)

	m := d.Positions()
	pos, _ := m.Get("B")
	assert.Equal(t, 1, pos)
	pos, _ = m.Get("A")
	assert.Equal(t, 1, pos, "detector row wins")
	assert.Equal(t, 4, m.Len())
}

func TestApply(t *testing.T) {
	d, err := Import(strings.NewReader(sampleCPF))
	require.NoError(t, err)

	doc := document.NewDocument()
	b := document.NewLine("B", document.Point{}, document.Point{X: 10})
	edited := document.NewLine("P1", document.Point{}, document.Point{X: 10})
	edited.TypeEdited = true
	blank := document.NewLine("", document.Point{}, document.Point{X: 10})
	doc.AddPhase(b)
	doc.AddPhase(edited)
	doc.AddPhase(blank)

	assert.Equal(t, 1, d.Apply(doc))
	assert.Equal(t, document.RightArrow, b.Type)
	assert.Equal(t, document.Arrow, edited.Type)
	assert.Equal(t, document.Arrow, blank.Type)
	assert.Equal(t, d.Positions().ToMap(), doc.Positions.ToMap())
}

func TestMembership(t *testing.T) {
	d, err := Import(strings.NewReader(sampleCPF))
	require.NoError(t, err)
	assert.True(t, d.IsPhase("p1"))
	assert.True(t, d.IsDetector(" d1 "))
	assert.False(t, d.IsDetector("B"))
	assert.False(t, Empty().IsPhase("A"))
}
