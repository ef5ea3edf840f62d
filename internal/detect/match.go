package detect

import (
	"strings"

	"github.com/CZERTAINLY/Spotter/internal/model"
)

// Match returns the phrases contained in text. Matching is case sensitive and
// text is not normalized in any way.
func Match(text string, phrases []string) model.Matches {
	ret := model.NewMatches()
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(text, p) {
			ret[p] = struct{}{}
		}
	}
	return ret
}
