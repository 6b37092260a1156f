// Package guard keeps the builder wizard's steps in dependency order:
// a plan must be chosen before anything else, and a template before any
// step that renders content.
package guard

import (
	"fmt"

	"wedding-builder/internal/models"
)

// Step is a page of the builder wizard
type Step string

const (
	StepPlan      Step = "plan"
	StepTemplate  Step = "template"
	StepDetails   Step = "details"
	StepLocations Step = "locations"
	StepTimeline  Step = "timeline"
	StepDresscode Step = "dresscode"
	StepGifts     Step = "gifts"
	StepFAQ       Step = "faq"
	StepRSVP      Step = "rsvp"
	StepStyling   Step = "styling"
	StepPreview   Step = "preview"
	StepCheckout  Step = "checkout"
)

// Steps lists the wizard in order
var Steps = []Step{
	StepPlan, StepTemplate, StepDetails, StepLocations, StepTimeline, StepDresscode,
	StepGifts, StepFAQ, StepRSVP, StepStyling, StepPreview, StepCheckout,
}

// Level is the prerequisite a step needs
type Level int

const (
	// LevelNone has no prerequisite
	LevelNone Level = iota
	// LevelPlan needs a selected plan
	LevelPlan
	// LevelTemplate needs a plan and a template
	LevelTemplate
)

// LevelOf returns the prerequisite level of step
func LevelOf(step Step) Level {
	switch step {
	case StepPlan:
		return LevelNone
	case StepTemplate:
		return LevelPlan
	}
	return LevelTemplate
}

// Check returns the step to redirect to when d does not satisfy level.
// ok is true when no redirect is needed.
func Check(d models.Draft, level Level) (redirect Step, ok bool) {
	if level >= LevelPlan && d.SelectedPlan == "" {
		return StepPlan, false
	}
	if level >= LevelTemplate && d.TemplateID == "" {
		return StepTemplate, false
	}
	return "", true
}

// Navigator moves the user to another step
type Navigator interface {
	Redirect(step Step)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(step Step)

// Redirect calls f(step)
func (f NavigatorFunc) Redirect(step Step) { f(step) }

// DraftSource supplies the current draft
type DraftSource interface {
	Snapshot() models.Draft
}

// Guard checks steps against a live draft
type Guard struct {
	source DraftSource
	nav    Navigator
}

// New creates a Guard
func New(source DraftSource, nav Navigator) *Guard {
	return &Guard{source: source, nav: nav}
}

// Enter is called whenever step is shown. It redirects backwards and reports
// false if the step's prerequisites are missing.
func (g *Guard) Enter(step Step) bool {
	redirect, ok := Check(g.source.Snapshot(), LevelOf(step))
	if !ok {
		g.nav.Redirect(redirect)
	}
	return ok
}

// ParseStep turns a step name into a Step
func ParseStep(name string) (Step, error) {
	for _, s := range Steps {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", name)
}

// Next returns the step after step, or step itself for the last one
func Next(step Step) Step {
	for i, s := range Steps {
		if s == step && i+1 < len(Steps) {
			return Steps[i+1]
		}
	}
	return step
}
