package models

import "time"

// Location is a venue shown on the invitation (ceremony, reception, ...)
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Notes   string `json:"notes,omitempty"`
	MapsURL string `json:"mapsUrl,omitempty"`
	Order   int    `json:"order"`
}

// TimelineItem is one entry of the day's programme
type TimelineItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Time        string `json:"time"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Order       int    `json:"order"`
}

// FAQItem is a question and answer pair
type FAQItem struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}

// DresscodeColor is a suggested colour for the dress code
type DresscodeColor struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

// GiftConfig describes the gift section
type GiftConfig struct {
	Enabled       bool   `json:"enabled"`
	Message       string `json:"message"`
	PreferMoney   bool   `json:"preferMoney"`
	RegistryURL   string `json:"registryUrl,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	AccountHolder string `json:"accountHolder,omitempty"`
}

// RSVPFields are the optional inputs a guest can fill in when replying
type RSVPFields struct {
	PlusOne bool `json:"plusOne"`
	Dietary bool `json:"dietary"`
	Message bool `json:"message"`
	Song    bool `json:"song"`
}

// CustomQuestion is an extra free-form RSVP question
type CustomQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Required bool   `json:"required"`
}

// RSVPConfig configures reply collection
type RSVPConfig struct {
	Enabled         bool             `json:"enabled"`
	Deadline        string           `json:"deadline,omitempty"`
	Fields          RSVPFields       `json:"fields"`
	CustomQuestions []CustomQuestion `json:"customQuestions,omitempty"`
}

// DeadlinePassed reports whether replies are closed at now. An empty or
// unparseable deadline never closes.
func (c RSVPConfig) DeadlinePassed(now time.Time) bool {
	if c.Deadline == "" {
		return false
	}
	d, err := time.Parse(DateLayout, c.Deadline)
	if err != nil {
		return false
	}
	// the deadline day itself is still open
	return !now.Before(d.AddDate(0, 0, 1))
}

// Styling is the visual configuration of the invitation
type Styling struct {
	SealColor   string `json:"sealColor"`
	SealFont    string `json:"sealFont"`
	SealStyle   string `json:"sealStyle"`
	SealFloral  string `json:"sealFloral"`
	Monogram    string `json:"monogram"`
	AccentColor string `json:"accentColor"`
	FontPairing string `json:"fontPairing"`
	Background  string `json:"background"`
}

// DateLayout is the wire format of dates (wedding date, RSVP deadline)
const DateLayout = "2006-01-02"

// Draft is the in-progress invitation held by the builder
type Draft struct {
	InvitationID string `json:"invitationId,omitempty"`
	TemplateID   string `json:"templateId,omitempty"`
	SelectedPlan Plan   `json:"selectedPlan,omitempty"`

	Partner1Name string `json:"partner1Name"`
	Partner2Name string `json:"partner2Name"`
	WeddingDate  string `json:"weddingDate"`
	WeddingTime  string `json:"weddingTime"`
	Headline     string `json:"headline"`

	Locations []Location     `json:"locations"`
	Timeline  []TimelineItem `json:"timeline"`
	FAQItems  []FAQItem      `json:"faqItems"`

	Dresscode       string           `json:"dresscode,omitempty"`
	DresscodeColors []DresscodeColor `json:"dresscodeColors"`
	GiftConfig      GiftConfig       `json:"giftConfig"`
	RSVPConfig      RSVPConfig       `json:"rsvpConfig"`
	Styling         Styling          `json:"styling"`

	IsDirty   bool       `json:"isDirty"`
	IsSaving  bool       `json:"-"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
}

// MeetsMinimum reports whether the draft has enough to be stored server side
func (d *Draft) MeetsMinimum() bool {
	return d.TemplateID != "" && d.Partner1Name != "" && d.Partner2Name != "" && d.WeddingDate != ""
}

// EffectiveFields is the RSVP projection for the draft's plan
func (d *Draft) EffectiveFields() RSVPFields {
	return EffectiveFields(d.SelectedPlan, d.RSVPConfig)
}

// Clone returns a deep copy
func (d *Draft) Clone() Draft {
	c := *d
	c.Locations = append([]Location(nil), d.Locations...)
	c.Timeline = append([]TimelineItem(nil), d.Timeline...)
	c.FAQItems = append([]FAQItem(nil), d.FAQItems...)
	c.DresscodeColors = append([]DresscodeColor(nil), d.DresscodeColors...)
	c.RSVPConfig.CustomQuestions = append([]CustomQuestion(nil), d.RSVPConfig.CustomQuestions...)
	if d.LastSaved != nil {
		t := *d.LastSaved
		c.LastSaved = &t
	}
	return c
}

// Input builds the write payload. Order values follow slice order.
func (d *Draft) Input() InvitationInput {
	c := d.Clone()
	return InvitationInput{
		Plan:            c.SelectedPlan,
		TemplateID:      c.TemplateID,
		Partner1Name:    c.Partner1Name,
		Partner2Name:    c.Partner2Name,
		WeddingDate:     c.WeddingDate,
		WeddingTime:     c.WeddingTime,
		Headline:        c.Headline,
		Locations:       OrderLocations(c.Locations),
		Timeline:        OrderTimeline(c.Timeline),
		FAQItems:        OrderFAQItems(c.FAQItems),
		Dresscode:       c.Dresscode,
		DresscodeColors: c.DresscodeColors,
		GiftConfig:      c.GiftConfig,
		RSVPConfig:      c.RSVPConfig,
		Styling:         c.Styling,
	}
}

// OrderLocations rewrites Order to the dense zero-based slice position
func OrderLocations(items []Location) []Location {
	for i := range items {
		items[i].Order = i
	}
	return items
}

// OrderTimeline rewrites Order to the dense zero-based slice position
func OrderTimeline(items []TimelineItem) []TimelineItem {
	for i := range items {
		items[i].Order = i
	}
	return items
}

// OrderFAQItems rewrites Order to the dense zero-based slice position
func OrderFAQItems(items []FAQItem) []FAQItem {
	for i := range items {
		items[i].Order = i
	}
	return items
}
