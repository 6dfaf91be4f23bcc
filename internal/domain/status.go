package domain

import "strings"

type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusDesignated
	StatusDispatched
	StatusExecuting
	StatusClosed
)

var statusCodes = map[string]Status{
	"P":  StatusPending,
	"D":  StatusDesignated,
	"A":  StatusDispatched,
	"E":  StatusExecuting,
	"EN": StatusClosed,
}

var statusLabels = map[Status]string{
	StatusPending:    "PENDENTE",
	StatusDesignated: "DESIGNADO",
	StatusDispatched: "ACIONADO",
	StatusExecuting:  "EXECUTANDO",
	StatusClosed:     "ENCERRADO",
}

// ParseStatus maps a short status code to its Status. Anything that is not
// an exact (case-insensitive) code is StatusUnknown.
func ParseStatus(raw string) Status {
	if s, ok := statusCodes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// Label returns the display label for a known status.
func (s Status) Label() string {
	return statusLabels[s]
}

// StatusLabel renders a raw code: known codes map to their label, unknown
// codes pass through upper-cased.
func StatusLabel(raw string) string {
	if s := ParseStatus(raw); s != StatusUnknown {
		return s.Label()
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

type Indicator string

const (
	IndicatorGreen   Indicator = "🟢"
	IndicatorBlue    Indicator = "🔵"
	IndicatorWhite   Indicator = "⚪"
	IndicatorOrange  Indicator = "🟠"
	IndicatorUnknown Indicator = "⚫"
)

var indicatorRules = []struct {
	word string
	code string
	ind  Indicator
}{
	{"DESIGNADO", "D", IndicatorGreen},
	{"ACIONADO", "A", IndicatorBlue},
	{"PENDENTE", "P", IndicatorWhite},
	{"EXECUTANDO", "E", IndicatorOrange},
}

// IndicatorFor picks the status symbol for a raw code or label. Rules are
// checked in order and the first hit wins.
func IndicatorFor(raw string) Indicator {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, r := range indicatorRules {
		if strings.Contains(s, r.word) || s == r.code {
			return r.ind
		}
	}
	return IndicatorUnknown
}
