package routing

import (
	"net/http"
	"strings"
)

type Target string

const (
	Primary  Target = "primary"
	Fallback Target = "fallback"
)

// Rules decides which upstream receives a proxied request.
// It is immutable after NewRules and safe for concurrent use.
type Rules struct {
	primaryGetMarkers []string
}

func NewRules(primaryGetMarkers []string) Rules {
	return Rules{
		primaryGetMarkers: append([]string(nil), primaryGetMarkers...),
	}
}

// Classify applies the rules in order, first match wins:
// any POST goes to Primary, a GET whose url contains one of the markers goes
// to Primary, everything else goes to Fallback.
func (r Rules) Classify(method string, url string) Target {
	if method == http.MethodPost {
		return Primary
	}
	if method == http.MethodGet && r.isPrimaryGet(url) {
		return Primary
	}
	return Fallback
}

func (r Rules) isPrimaryGet(url string) bool {
	for _, marker := range r.primaryGetMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}
