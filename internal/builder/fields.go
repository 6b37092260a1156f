package builder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"wedding-builder/internal/models"
)

var (
	// ErrUnknownField is returned by SetField for keys the draft does not have
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a value does not fit the field
	ErrInvalidValue = errors.New("invalid value")
)

// Field names a settable draft field
type Field string

const (
	FieldPlan            Field = "selectedPlan"
	FieldTemplate        Field = "templateId"
	FieldPartner1Name    Field = "partner1Name"
	FieldPartner2Name    Field = "partner2Name"
	FieldWeddingDate     Field = "weddingDate"
	FieldWeddingTime     Field = "weddingTime"
	FieldHeadline        Field = "headline"
	FieldLocations       Field = "locations"
	FieldTimeline        Field = "timeline"
	FieldFAQItems        Field = "faqItems"
	FieldDresscode       Field = "dresscode"
	FieldDresscodeColors Field = "dresscodeColors"
	FieldGiftConfig      Field = "giftConfig"
	FieldRSVPConfig      Field = "rsvpConfig"
	FieldStyling         Field = "styling"
)

var (
	hexColor  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	clockTime = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
)

// SetField sets one field by name. value must have the field's Go type.
func (s *Store) SetField(field Field, value any) error {
	switch field {
	case FieldPlan:
		switch v := value.(type) {
		case models.Plan:
			return s.SetPlan(v)
		case string:
			return s.SetPlan(models.Plan(v))
		}
	case FieldTemplate:
		if v, ok := value.(string); ok {
			s.SetTemplate(v)
			return nil
		}
	case FieldPartner1Name, FieldPartner2Name, FieldHeadline, FieldDresscode:
		if v, ok := value.(string); ok {
			s.setString(field, v)
			return nil
		}
	case FieldWeddingDate:
		if v, ok := value.(string); ok {
			return s.SetWeddingDate(v)
		}
	case FieldWeddingTime:
		if v, ok := value.(string); ok {
			return s.SetWeddingTime(v)
		}
	case FieldLocations:
		if v, ok := value.([]models.Location); ok {
			s.SetLocations(v)
			return nil
		}
	case FieldTimeline:
		if v, ok := value.([]models.TimelineItem); ok {
			s.SetTimeline(v)
			return nil
		}
	case FieldFAQItems:
		if v, ok := value.([]models.FAQItem); ok {
			s.SetFAQItems(v)
			return nil
		}
	case FieldDresscodeColors:
		if v, ok := value.([]models.DresscodeColor); ok {
			return s.SetDresscodeColors(v)
		}
	case FieldGiftConfig:
		if v, ok := value.(models.GiftConfig); ok {
			s.SetGiftConfig(v)
			return nil
		}
	case FieldRSVPConfig:
		if v, ok := value.(models.RSVPConfig); ok {
			return s.SetRSVPConfig(v)
		}
	case FieldStyling:
		if v, ok := value.(models.Styling); ok {
			s.SetStyling(v)
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return fmt.Errorf("%w: %s cannot be set to %T", ErrInvalidValue, field, value)
}

func (s *Store) setString(field Field, v string) {
	s.mutate(field, func(d *models.Draft) {
		switch field {
		case FieldPartner1Name:
			d.Partner1Name = v
		case FieldPartner2Name:
			d.Partner2Name = v
		case FieldHeadline:
			d.Headline = v
		case FieldDresscode:
			d.Dresscode = v
		}
	})
}

// SetPlan selects the plan tier
func (s *Store) SetPlan(p models.Plan) error {
	if !p.Valid() {
		return fmt.Errorf("%w: plan %q", ErrInvalidValue, p)
	}
	s.mutate(FieldPlan, func(d *models.Draft) { d.SelectedPlan = p })
	return nil
}

// SetTemplate selects the invitation template
func (s *Store) SetTemplate(id string) {
	s.mutate(FieldTemplate, func(d *models.Draft) { d.TemplateID = id })
}

// SetPartnerNames sets both names in one mutation
func (s *Store) SetPartnerNames(partner1, partner2 string) {
	s.mutate(FieldPartner1Name, func(d *models.Draft) {
		d.Partner1Name = strings.TrimSpace(partner1)
		d.Partner2Name = strings.TrimSpace(partner2)
	})
}

// SetHeadline sets the headline shown above the names
func (s *Store) SetHeadline(headline string) {
	s.setString(FieldHeadline, headline)
}

// SetWeddingDate sets the date as YYYY-MM-DD; empty clears it
func (s *Store) SetWeddingDate(date string) error {
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return fmt.Errorf("%w: wedding date %q", ErrInvalidValue, date)
		}
	}
	s.mutate(FieldWeddingDate, func(d *models.Draft) { d.WeddingDate = date })
	return nil
}

// SetWeddingTime sets the time as HH:MM; empty clears it
func (s *Store) SetWeddingTime(t string) error {
	if t != "" && !clockTime.MatchString(t) {
		return fmt.Errorf("%w: wedding time %q", ErrInvalidValue, t)
	}
	s.mutate(FieldWeddingTime, func(d *models.Draft) { d.WeddingTime = t })
	return nil
}

// SetDresscode sets the dress code description
func (s *Store) SetDresscode(dresscode string) {
	s.setString(FieldDresscode, dresscode)
}

// SetDresscodeColors replaces the colour palette. Colours are a set keyed by
// hex value; later duplicates are dropped.
func (s *Store) SetDresscodeColors(colors []models.DresscodeColor) error {
	seen := make(map[string]bool, len(colors))
	set := make([]models.DresscodeColor, 0, len(colors))
	for _, c := range colors {
		if !hexColor.MatchString(c.Hex) {
			return fmt.Errorf("%w: colour %q", ErrInvalidValue, c.Hex)
		}
		key := strings.ToLower(c.Hex)
		if seen[key] {
			continue
		}
		seen[key] = true
		set = append(set, c)
	}
	s.mutate(FieldDresscodeColors, func(d *models.Draft) { d.DresscodeColors = set })
	return nil
}

// SetGiftConfig replaces the gift section
func (s *Store) SetGiftConfig(cfg models.GiftConfig) {
	s.mutate(FieldGiftConfig, func(d *models.Draft) { d.GiftConfig = cfg })
}

// SetRSVPConfig replaces the RSVP configuration. Questions without an id get one.
func (s *Store) SetRSVPConfig(cfg models.RSVPConfig) error {
	if cfg.Deadline != "" {
		if _, err := time.Parse(models.DateLayout, cfg.Deadline); err != nil {
			return fmt.Errorf("%w: rsvp deadline %q", ErrInvalidValue, cfg.Deadline)
		}
	}
	questions := make([]models.CustomQuestion, len(cfg.CustomQuestions))
	for i, q := range cfg.CustomQuestions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		questions[i] = q
	}
	cfg.CustomQuestions = questions
	s.mutate(FieldRSVPConfig, func(d *models.Draft) { d.RSVPConfig = cfg })
	return nil
}

// SetStyling replaces the styling
func (s *Store) SetStyling(styling models.Styling) {
	s.mutate(FieldStyling, func(d *models.Draft) { d.Styling = styling })
}
