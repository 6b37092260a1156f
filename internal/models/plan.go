package models

// Plan is the pricing tier an invitation is built on
type Plan string

const (
	PlanBasis   Plan = "basis"
	PlanPremium Plan = "premium"
	PlanDeluxe  Plan = "deluxe"
)

// Plans lists every tier from lowest to highest
var Plans = []Plan{PlanBasis, PlanPremium, PlanDeluxe}

// Valid reports whether p is one of the known tiers
func (p Plan) Valid() bool {
	switch p {
	case PlanBasis, PlanPremium, PlanDeluxe:
		return true
	}
	return false
}

// Rank orders tiers; unknown plans rank with basis.
func (p Plan) Rank() int {
	switch p {
	case PlanPremium:
		return 1
	case PlanDeluxe:
		return 2
	}
	return 0
}

// AtLeast reports whether p includes everything min includes
func (p Plan) AtLeast(min Plan) bool {
	return p.Rank() >= min.Rank()
}

// EffectiveFields projects the stored RSVP toggles onto what the plan actually
// offers. The result is never stored.
func EffectiveFields(plan Plan, cfg RSVPConfig) RSVPFields {
	fields := cfg.Fields
	if !plan.AtLeast(PlanPremium) {
		fields.Dietary = false
		fields.Song = false
	}
	if !plan.AtLeast(PlanDeluxe) {
		fields.Message = false
	}
	return fields
}

// EffectiveQuestions returns the custom questions the plan allows, which is
// none below premium.
func EffectiveQuestions(plan Plan, cfg RSVPConfig) []CustomQuestion {
	if !plan.AtLeast(PlanPremium) {
		return nil
	}
	return cfg.CustomQuestions
}
