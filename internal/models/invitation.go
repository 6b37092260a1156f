package models

import (
	"sort"
	"time"
)

// InvitationStatus is the lifecycle state of a stored invitation
type InvitationStatus string

const (
	StatusDraft     InvitationStatus = "draft"
	StatusPublished InvitationStatus = "published"
)

// InvitationInput is the field set accepted on create and update
type InvitationInput struct {
	Plan            Plan             `json:"plan"`
	TemplateID      string           `json:"templateId"`
	Partner1Name    string           `json:"partner1Name"`
	Partner2Name    string           `json:"partner2Name"`
	WeddingDate     string           `json:"weddingDate"`
	WeddingTime     string           `json:"weddingTime"`
	Headline        string           `json:"headline"`
	Locations       []Location       `json:"locations"`
	Timeline        []TimelineItem   `json:"timeline"`
	FAQItems        []FAQItem        `json:"faqItems"`
	Dresscode       string           `json:"dresscode,omitempty"`
	DresscodeColors []DresscodeColor `json:"dresscodeColors"`
	GiftConfig      GiftConfig       `json:"giftConfig"`
	RSVPConfig      RSVPConfig       `json:"rsvpConfig"`
	Styling         Styling          `json:"styling"`
}

// Invitation is the server-side record
type Invitation struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"ownerId"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
	InvitationInput
}

// Published reports whether the invitation can no longer be edited
func (i *Invitation) Published() bool {
	return i.Status == StatusPublished
}

// Normalize sorts collections by their stored order and re-densifies it
func (in *InvitationInput) Normalize() {
	sort.SliceStable(in.Locations, func(a, b int) bool { return in.Locations[a].Order < in.Locations[b].Order })
	sort.SliceStable(in.Timeline, func(a, b int) bool { return in.Timeline[a].Order < in.Timeline[b].Order })
	sort.SliceStable(in.FAQItems, func(a, b int) bool { return in.FAQItems[a].Order < in.FAQItems[b].Order })
	in.Locations = OrderLocations(in.Locations)
	in.Timeline = OrderTimeline(in.Timeline)
	in.FAQItems = OrderFAQItems(in.FAQItems)
}

// Draft converts the record into builder form. Sync bookkeeping is left
// for the caller.
func (i *Invitation) Draft() Draft {
	in := i.InvitationInput
	in.Locations = append([]Location(nil), in.Locations...)
	in.Timeline = append([]TimelineItem(nil), in.Timeline...)
	in.FAQItems = append([]FAQItem(nil), in.FAQItems...)
	in.RSVPConfig.CustomQuestions = append([]CustomQuestion(nil), in.RSVPConfig.CustomQuestions...)
	in.Normalize()
	return Draft{
		InvitationID:    i.ID,
		TemplateID:      in.TemplateID,
		SelectedPlan:    in.Plan,
		Partner1Name:    in.Partner1Name,
		Partner2Name:    in.Partner2Name,
		WeddingDate:     in.WeddingDate,
		WeddingTime:     in.WeddingTime,
		Headline:        in.Headline,
		Locations:       in.Locations,
		Timeline:        in.Timeline,
		FAQItems:        in.FAQItems,
		Dresscode:       in.Dresscode,
		DresscodeColors: append([]DresscodeColor(nil), in.DresscodeColors...),
		GiftConfig:      in.GiftConfig,
		RSVPConfig:      in.RSVPConfig,
		Styling:         in.Styling,
	}
}

// Public returns a copy safe to show guests: RSVP toggles reduced to what the
// plan offers and owner details removed.
func (i *Invitation) Public() Invitation {
	p := *i
	p.OwnerID = ""
	p.RSVPConfig.Fields = EffectiveFields(p.Plan, p.RSVPConfig)
	p.RSVPConfig.CustomQuestions = EffectiveQuestions(p.Plan, p.RSVPConfig)
	return p
}
