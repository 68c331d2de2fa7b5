package document

// NewSampleDocument returns a small junction layout: two approach phases, a
// turning phase, a pedestrian crossing, one loop and one line detector and a
// street label.
func NewSampleDocument() *Document {
	doc := NewDocument()
	doc.ImageFile = "sample-junction.png"

	north := NewLine("A", Point{X: 420, Y: 80}, Point{X: 420, Y: 300})
	south := NewLine("B", Point{X: 520, Y: 620}, Point{X: 520, Y: 400})

	turn := NewLine("C", Point{X: 140, Y: 360}, Point{X: 360, Y: 360})
	turn.Type = LeftArrow
	turn.Points = []Point{{X: 140, Y: 360}, {X: 260, Y: 350}, {X: 360, Y: 360}}

	ped := NewLine("D", Point{X: 600, Y: 240}, Point{X: 760, Y: 240})
	ped.Type = PedCrossing
	ped.Thickness = 6

	doc.AddPhase(north)
	doc.AddPhase(south)
	doc.AddPhase(turn)
	doc.AddPhase(ped)

	loop := NewSquare("D1", 420, 220)
	doc.AddDetector(SquareOf(loop))

	stop := NewLine("D2", Point{X: 500, Y: 420}, Point{X: 540, Y: 420})
	stop.Type = NoArrow
	stop.Thickness = 4
	doc.AddDetector(LineOf(stop))

	doc.AddText(NewText("High St NB", "High St", 380, 40, Black))

	for i, id := range []string{"A", "B", "C", "D"} {
		doc.Positions.Set(id, i)
	}
	doc.Positions.Set("D1", 0)
	doc.Positions.Set("D2", 1)

	return doc
}
