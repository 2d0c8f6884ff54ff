// Package projectfilter applies the secondary project predicates (phase,
// sector, visibility class) in memory, after a single-key store query.
package projectfilter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
)

// Phase selects projects by lifecycle status.
type Phase int

const (
	PhaseAny Phase = iota
	PhaseLive
	PhaseSuccessful
	PhaseFailed
	PhaseExact
)

var (
	ErrBadPhase      = errors.New("unknown project phase")
	ErrBadVisibility = errors.New("visibility must be 0, 1 or 2")
)

// Filter holds the in-memory predicates. The zero value matches everything.
type Filter struct {
	Phase  Phase
	Status models.ProjectStatus // used when Phase is PhaseExact
	Sector string
	// Visibilities restricts to these classes; empty means any.
	Visibilities []models.Visibility
}

// Match reports whether p passes every predicate in f.
func (f Filter) Match(p models.Project) bool {
	switch f.Phase {
	case PhaseLive:
		if !p.Status.IsLive() || p.TemporarilyClosed {
			return false
		}
	case PhaseSuccessful:
		if p.Status != models.StatusSuccessful {
			return false
		}
	case PhaseFailed:
		if p.Status != models.StatusFailed {
			return false
		}
	case PhaseExact:
		if p.Status != f.Status {
			return false
		}
	}
	if f.Sector != "" {
		want := text.Fold(f.Sector)
		have := p.SectorCI
		if have == "" {
			have = text.Fold(p.Sector)
		}
		if !strings.Contains(have, want) {
			return false
		}
	}
	if len(f.Visibilities) > 0 {
		ok := false
		for _, v := range f.Visibilities {
			if p.Visibility == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Apply returns the projects in ps that match f, preserving order.
func Apply(ps []models.Project, f Filter) []models.Project {
	out := make([]models.Project, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// ParsePhase maps "any", "live", "successful", "failed" or a status code or
// name to a phase.
func ParsePhase(s string) (Phase, models.ProjectStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "any", "all":
		return PhaseAny, 0, nil
	case "live":
		return PhaseLive, 0, nil
	case "successful":
		return PhaseSuccessful, models.StatusSuccessful, nil
	case "failed":
		return PhaseFailed, models.StatusFailed, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		st := models.ProjectStatus(n)
		if st.String() != "unknown" {
			return PhaseExact, st, nil
		}
	}
	for st := models.StatusDraft; st <= models.StatusRejected; st++ {
		if st.String() == s {
			return PhaseExact, st, nil
		}
	}
	return PhaseAny, 0, ErrBadPhase
}

// FromRequest reads phase, sector and visibility query parameters.
func FromRequest(r *http.Request) (Filter, error) {
	var f Filter
	phase, st, err := ParsePhase(query.Get(r, "phase"))
	if err != nil {
		return f, err
	}
	f.Phase, f.Status = phase, st
	f.Sector = query.Search(r, "sector")
	if raw := query.Get(r, "visibility"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || !models.Visibility(n).Valid() {
				return f, ErrBadVisibility
			}
			f.Visibilities = append(f.Visibilities, models.Visibility(n))
		}
	}
	return f, nil
}
