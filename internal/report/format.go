// Package report renders the critical-cluster status message.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"critreport/internal/aggregate"
	"critreport/internal/domain"
	"critreport/internal/state"

	"go.uber.org/zap"
)

// NothingCritical is sent in place of the report when no ticket matched.
const NothingCritical = "⚠️ *Alerta*: Nenhum conjunto crítico com ocorrências no momento."

const headerTimeLayout = "02/01 15:04"

type Formatter struct {
	State    state.Tracker
	Now      func() time.Time
	Location *time.Location
	Log      *zap.Logger
}

// NewFormatter builds a Formatter. A nil tracker reads 0 and saves nothing.
func NewFormatter(tracker state.Tracker, loc *time.Location, log *zap.Logger) *Formatter {
	if tracker == nil {
		tracker = noopTracker{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{State: tracker, Now: time.Now, Location: loc, Log: log}
}

// Format renders the report for m. An empty or nil match set yields
// NothingCritical and leaves the tracker untouched. Otherwise the previous
// total is read, the current one saved, and both appear in the panorama.
func (f *Formatter) Format(m *domain.MatchSet) string {
	if m.Empty() {
		return NothingCritical
	}
	tracker := f.State
	if tracker == nil {
		tracker = noopTracker{}
	}
	log := f.Log
	if log == nil {
		log = zap.NewNop()
	}
	summary := aggregate.Summarize(m)

	previous := tracker.ReadPrevious()
	tracker.SaveCurrent(summary.Total)
	log.Info("panorama updated",
		zap.Int("previous", previous),
		zap.Int("current", summary.Total),
		zap.String("delta", Delta(previous, summary.Total)),
	)

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return Render(summary, previous, now().In(loc))
}

// Delta renders current-previous with a "+" only when positive.
func Delta(previous, current int) string {
	d := current - previous
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

// Render lays out a summary in the fixed report template.
func Render(s aggregate.Summary, previous int, now time.Time) string {
	var regional strings.Builder
	for _, r := range s.Regions {
		fmt.Fprintf(&regional, "🔸 *%s:* %d Ocorr. | CI: %d\n", r.Region, r.Occurrences, r.ImpactSum)
	}

	var scopes strings.Builder
	for _, sc := range s.Scopes {
		fmt.Fprintf(&scopes, "\t%s: %d\n", sc.Scope, sc.Occurrences)
	}

	var detail strings.Builder
	for _, d := range s.Details {
		fmt.Fprintf(&detail, "\n*%s*\n", d.Region)
		for _, l := range d.Lines {
			fmt.Fprintf(&detail, "%s - %s - %s - CI: %d - *%s %s*\n",
				orDash(l.Record.Cluster),
				orDash(l.Record.Occurrence),
				orDash(l.Record.Scope),
				l.Record.Impact,
				orDash(l.Label),
				l.Indicator,
			)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Alerta de Conjunto Crítico - %s*\n\n", now.Format(headerTimeLayout))
	b.WriteString("📋 *Resumo:*\n")
	fmt.Fprintf(&b, "\tTotal de Ocorrências: *%d*\n", s.Total)
	fmt.Fprintf(&b, "\tConjuntos Afetados: *%d*\n\n", s.DistinctClusters)
	b.WriteString("🗺️ *Distribuição Regional:*\n")
	b.WriteString(regional.String())
	b.WriteString("\n\n🏗️ *Distribuição Por Abrangência:*\n")
	b.WriteString(scopes.String())
	b.WriteString("\n\n📍 *Detalhamento das Ocorrências:*\n")
	b.WriteString(detail.String())
	b.WriteString("\n📉 *Panorama Comparativo*\n")
	fmt.Fprintf(&b, "\tPanorama anterior: %d\n", previous)
	fmt.Fprintf(&b, "\tPanorama atual: %d\n", s.Total)
	fmt.Fprintf(&b, "\tDiferença: %s", Delta(previous, s.Total))
	return strings.TrimSpace(b.String())
}

type noopTracker struct{}

func (noopTracker) ReadPrevious() int { return 0 }
func (noopTracker) SaveCurrent(int)   {}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
