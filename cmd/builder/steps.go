package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"wedding-builder/internal/builder"
	"wedding-builder/internal/guard"
	"wedding-builder/internal/models"
)

var templates = []string{"classic-elegance", "garden-romance", "modern-minimal", "rustic-charm", "boho-dream"}

func (a *app) edit(ctx context.Context) {
	var err error
	switch a.step {
	case guard.StepPlan:
		err = a.editPlan()
	case guard.StepTemplate:
		a.editTemplate()
	case guard.StepDetails:
		err = a.editDetails()
	case guard.StepLocations:
		err = a.editLocations()
	case guard.StepTimeline:
		err = a.editTimeline()
	case guard.StepDresscode:
		err = a.editDresscode()
	case guard.StepGifts:
		a.editGifts()
	case guard.StepFAQ:
		err = a.editFAQ()
	case guard.StepRSVP:
		err = a.editRSVP()
	case guard.StepStyling:
		a.editStyling()
	case guard.StepPreview:
		a.preview()
	case guard.StepCheckout:
		a.checkout(ctx)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
	}
}

func (a *app) editPlan() error {
	for i, p := range models.Plans {
		fmt.Printf("%d. %s\n", i+1, p)
	}
	d := a.store.Snapshot()
	choice := a.prompt("Choose a plan", string(d.SelectedPlan))
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(models.Plans) {
		choice = string(models.Plans[n-1])
	}
	return a.store.SetField(builder.FieldPlan, choice)
}

func (a *app) editTemplate() {
	for i, t := range templates {
		fmt.Printf("%d. %s\n", i+1, t)
	}
	d := a.store.Snapshot()
	choice := a.prompt("Choose a template", d.TemplateID)
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(templates) {
		choice = templates[n-1]
	}
	a.store.SetTemplate(choice)
}

func (a *app) editDetails() error {
	d := a.store.Snapshot()
	a.store.SetPartnerNames(a.prompt("Partner 1", d.Partner1Name), a.prompt("Partner 2", d.Partner2Name))
	if err := a.store.SetWeddingDate(a.prompt("Wedding date (YYYY-MM-DD)", d.WeddingDate)); err != nil {
		return err
	}
	if err := a.store.SetWeddingTime(a.prompt("Wedding time (HH:MM)", d.WeddingTime)); err != nil {
		return err
	}
	a.store.SetHeadline(a.prompt("Headline", d.Headline))
	return nil
}

// collectionAction reads "a", "r <n>" or "m <n> <to>" and returns the
// 0-based positions. n and to are 1-based on input.
func (a *app) collectionAction(size int) (action string, n, to int, err error) {
	fmt.Print("a = add, r <n> = remove, m <n> <to> = move, enter = done: ")
	line, _ := a.read()
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", 0, 0, nil
	}
	action = fields[0]
	nums := make([]int, 0, 2)
	for _, f := range fields[1:] {
		v, convErr := strconv.Atoi(f)
		if convErr != nil || v < 1 || v > size {
			return "", 0, 0, fmt.Errorf("invalid position %q", f)
		}
		nums = append(nums, v-1)
	}
	switch {
	case action == "a":
	case action == "r" && len(nums) == 1:
		n = nums[0]
	case action == "m" && len(nums) == 2:
		n, to = nums[0], nums[1]
	default:
		return "", 0, 0, fmt.Errorf("invalid command %q", line)
	}
	return action, n, to, nil
}

func (a *app) editLocations() error {
	for {
		items := a.store.Snapshot().Locations
		for i, l := range items {
			fmt.Printf("%d. %s (%s) %s, %s\n", i+1, l.Name, l.Type, l.Time, l.Address)
		}
		action, n, to, err := a.collectionAction(len(items))
		if err != nil {
			return err
		}
		switch action {
		case "":
			return nil
		case "a":
			a.store.AddLocation(models.Location{
				Name:    a.prompt("Name", ""),
				Type:    a.prompt("Type (ceremony, reception, party)", "ceremony"),
				Address: a.prompt("Address", ""),
				Time:    a.prompt("Time", ""),
				MapsURL: a.prompt("Maps link", ""),
			})
		case "r":
			a.store.RemoveLocation(items[n].ID)
		case "m":
			if err := a.store.MoveLocation(items[n].ID, to); err != nil {
				return err
			}
		}
	}
}

func (a *app) editTimeline() error {
	for {
		items := a.store.Snapshot().Timeline
		for i, t := range items {
			fmt.Printf("%d. %s %s\n", i+1, t.Time, t.Title)
		}
		action, n, to, err := a.collectionAction(len(items))
		if err != nil {
			return err
		}
		switch action {
		case "":
			return nil
		case "a":
			a.store.AddTimelineItem(models.TimelineItem{
				Time:        a.prompt("Time", ""),
				Title:       a.prompt("Title", ""),
				Description: a.prompt("Description", ""),
			})
		case "r":
			a.store.RemoveTimelineItem(items[n].ID)
		case "m":
			if err := a.store.MoveTimelineItem(items[n].ID, to); err != nil {
				return err
			}
		}
	}
}

func (a *app) editFAQ() error {
	for {
		items := a.store.Snapshot().FAQItems
		for i, f := range items {
			fmt.Printf("%d. %s\n   %s\n", i+1, f.Question, f.Answer)
		}
		action, n, to, err := a.collectionAction(len(items))
		if err != nil {
			return err
		}
		switch action {
		case "":
			return nil
		case "a":
			a.store.AddFAQItem(models.FAQItem{
				Question: a.prompt("Question", ""),
				Answer:   a.prompt("Answer", ""),
			})
		case "r":
			a.store.RemoveFAQItem(items[n].ID)
		case "m":
			if err := a.store.MoveFAQItem(items[n].ID, to); err != nil {
				return err
			}
		}
	}
}

func (a *app) editDresscode() error {
	d := a.store.Snapshot()
	a.store.SetDresscode(a.prompt("Dress code", d.Dresscode))

	fmt.Println("Colours as \"#hex name\", one per line, empty line to finish (keeps current if none given):")
	var colors []models.DresscodeColor
	for {
		line, ok := a.read()
		if !ok || line == "" {
			break
		}
		hex, name, _ := strings.Cut(line, " ")
		colors = append(colors, models.DresscodeColor{Hex: hex, Name: strings.TrimSpace(name)})
	}
	if len(colors) == 0 {
		return nil
	}
	return a.store.SetDresscodeColors(colors)
}

func (a *app) editGifts() {
	cfg := a.store.Snapshot().GiftConfig
	cfg.Enabled = a.confirm("Show a gift section?", cfg.Enabled)
	if cfg.Enabled {
		cfg.Message = a.prompt("Message", cfg.Message)
		cfg.PreferMoney = a.confirm("Prefer money gifts?", cfg.PreferMoney)
		if cfg.PreferMoney {
			cfg.IBAN = a.prompt("IBAN", cfg.IBAN)
			cfg.AccountHolder = a.prompt("Account holder", cfg.AccountHolder)
		} else {
			cfg.RegistryURL = a.prompt("Registry link", cfg.RegistryURL)
		}
	}
	a.store.SetGiftConfig(cfg)
}

func (a *app) editRSVP() error {
	d := a.store.Snapshot()
	cfg := d.RSVPConfig
	cfg.Enabled = a.confirm("Collect replies?", cfg.Enabled)
	if cfg.Enabled {
		cfg.Deadline = a.prompt("Reply deadline (YYYY-MM-DD, optional)", cfg.Deadline)
		cfg.Fields.PlusOne = a.confirm("Ask for a plus one?", cfg.Fields.PlusOne)
		if d.SelectedPlan.AtLeast(models.PlanPremium) {
			cfg.Fields.Dietary = a.confirm("Ask for dietary needs?", cfg.Fields.Dietary)
			cfg.Fields.Song = a.confirm("Ask for a song wish?", cfg.Fields.Song)
			if a.confirm("Add a custom question?", false) {
				cfg.CustomQuestions = append(cfg.CustomQuestions, models.CustomQuestion{
					Question: a.prompt("Question", ""),
					Required: a.confirm("Required?", false),
				})
			}
		} else {
			fmt.Println("Dietary needs, song wishes and custom questions need the premium plan.")
		}
		if d.SelectedPlan.AtLeast(models.PlanDeluxe) {
			cfg.Fields.Message = a.confirm("Allow a message to the couple?", cfg.Fields.Message)
		}
	}
	return a.store.SetRSVPConfig(cfg)
}

func (a *app) editStyling() {
	s := a.store.Snapshot().Styling
	s.AccentColor = a.prompt("Accent colour", s.AccentColor)
	s.FontPairing = a.prompt("Font pairing", s.FontPairing)
	s.Background = a.prompt("Background", s.Background)
	s.Monogram = a.prompt("Monogram", s.Monogram)
	s.SealColor = a.prompt("Seal colour", s.SealColor)
	s.SealStyle = a.prompt("Seal style", s.SealStyle)
	a.store.SetStyling(s)
}

func (a *app) preview() {
	d := a.store.Snapshot()
	fmt.Printf("\n%s & %s\n%s %s\n", d.Partner1Name, d.Partner2Name, d.WeddingDate, d.WeddingTime)
	if d.Headline != "" {
		fmt.Println(d.Headline)
	}

	effective := d.EffectiveFields()
	fields, _ := json.MarshalIndent(effective, "", "  ")
	fmt.Printf("\nRSVP form (%s plan):\n%s\n", d.SelectedPlan, fields)

	for _, l := range d.Locations {
		fmt.Printf("📍 %s: %s, %s\n", l.Type, l.Name, l.Address)
	}
	for _, t := range d.Timeline {
		fmt.Printf("🕒 %s %s\n", t.Time, t.Title)
	}
}
