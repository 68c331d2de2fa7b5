package codec

import (
	"strings"

	"github.com/siteview/siteview/backend-go/internal/document"
)

// arrowNames maps squashed, lower-cased tokens to arrow types. Squashing
// removes '_' and '-' so "Left_Arrow", "left-arrow" and "leftarrow" agree.
var arrowNames = map[string]document.ArrowType{
	"noarrow":     document.NoArrow,
	"arrow":       document.Arrow,
	"pedcrossing": document.PedCrossing,
	"leftarrow":   document.LeftArrow,
	"rightarrow":  document.RightArrow,
}

// ParseArrow reads an arrow type token. Unknown tokens yield Arrow with
// ok=false; callers decide whether that is an error.
func ParseArrow(s string) (document.ArrowType, bool) {
	if at, ok := arrowNames[squash(s)]; ok {
		return at, true
	}
	return document.Arrow, false
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}
