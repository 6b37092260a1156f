package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"wedding-builder/internal/config"
	"wedding-builder/internal/handler"
	"wedding-builder/internal/models"
	"wedding-builder/internal/repository"
	"wedding-builder/internal/whatsapp"
)

func main() {
	fmt.Println("🎉 Wedding WhatsApp RSVP Bot")
	fmt.Println("============================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.WhatsApp.InvitationID == "" {
		fmt.Println("WHATSAPP_INVITATION_ID is required")
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger("whatsapp-bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(cfg.Database.Path)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	inv, err := repo.GetInvitation(ctx, cfg.WhatsApp.InvitationID)
	if err != nil {
		fmt.Printf("Error loading invitation %s: %v\n", cfg.WhatsApp.InvitationID, err)
		os.Exit(1)
	}

	whatsappService, err := whatsapp.NewService(ctx, &whatsapp.Config{DataDir: cfg.WhatsApp.DataDir}, logger)
	if err != nil {
		fmt.Printf("Error initializing WhatsApp service: %v\n", err)
		os.Exit(1)
	}

	rsvpHandler := handler.NewRSVPHandler(whatsappService, repo, cfg.WhatsApp.PublicURL, whatsapp.NormalizePhoneNumber, logger)
	whatsappService.SetMessageHandler(rsvpHandler.HandleMessage)

	fmt.Println("Connecting to WhatsApp...")
	if err := whatsappService.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to WhatsApp: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Connected to WhatsApp!")
	fmt.Printf("Listening for replies to the invitation of %s & %s.\n", inv.Partner1Name, inv.Partner2Name)

	c := &console{
		scanner:      bufio.NewScanner(os.Stdin),
		wa:           whatsappService,
		rsvp:         rsvpHandler,
		repo:         repo,
		invitationID: inv.ID,
	}
	go c.run(ctx, stop)

	<-ctx.Done()

	fmt.Println("\n\nShutting down...")
	whatsappService.Disconnect()
	fmt.Println("Goodbye! 👋")
}

type console struct {
	scanner      *bufio.Scanner
	wa           *whatsapp.Service
	rsvp         *handler.RSVPHandler
	repo         *repository.Repository
	invitationID string
}

func (c *console) run(ctx context.Context, stop context.CancelFunc) {
	defer stop()

	for {
		fmt.Println("\n[i] invite a guest   [l] list guests   [f] filter by answer   [h] headcount   [q] quit")
		answer, ok := c.ask("> ")
		if !ok {
			return
		}

		switch strings.ToLower(answer) {
		case "i":
			c.invite(ctx)
		case "l":
			c.listGuests(ctx, "")
		case "f":
			if status, ok := c.chooseStatus(); ok {
				c.listGuests(ctx, status)
			}
		case "h":
			c.headcount(ctx)
		case "q":
			return
		case "":
		default:
			fmt.Printf("Unknown command %q\n", answer)
		}
	}
}

func (c *console) ask(label string) (string, bool) {
	fmt.Print(label)
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

func (c *console) invite(ctx context.Context) {
	if !c.wa.IsReady() {
		fmt.Println("❌ WhatsApp is not connected yet.")
		return
	}
	name, ok := c.ask("Guest name: ")
	if !ok || name == "" {
		return
	}
	raw, ok := c.ask("Phone number (0501234567 or 972501234567): ")
	if !ok || raw == "" {
		return
	}
	phoneNumber := whatsapp.NormalizePhoneNumber(raw)

	if err := c.rsvp.SendInvitation(ctx, c.invitationID, phoneNumber, name); err != nil {
		fmt.Printf("❌ Could not invite %s: %v\n", name, err)
		return
	}
	fmt.Printf("✅ Invitation sent to %s (%s)\n", name, phoneNumber)
}

func (c *console) chooseStatus() (models.RSVPStatus, bool) {
	answer, ok := c.ask("Answer [p]ending, [a]ccepted or [d]eclined: ")
	if !ok {
		return "", false
	}
	switch strings.ToLower(answer) {
	case "p", "pending":
		return models.RSVPPending, true
	case "a", "accepted":
		return models.RSVPAccepted, true
	case "d", "declined":
		return models.RSVPDeclined, true
	}
	fmt.Printf("Unknown answer %q\n", answer)
	return "", false
}

func (c *console) listGuests(ctx context.Context, status models.RSVPStatus) {
	guests, err := c.repo.ListGuests(ctx, c.invitationID, status)
	if err != nil {
		fmt.Printf("❌ Error loading guests: %v\n", err)
		return
	}
	if len(guests) == 0 {
		fmt.Println("No guests.")
		return
	}

	fmt.Printf("\n%-24s %-15s %-9s %s\n", "NAME", "PHONE", "ANSWER", "ANSWERED AT")
	for _, g := range guests {
		answered := "-"
		if !g.RSVPDate.IsZero() {
			answered = g.RSVPDate.Local().Format("Jan 2 15:04")
		}
		fmt.Printf("%-24s %-15s %-9s %s\n", g.Name, g.PhoneNumber, g.RSVPStatus, answered)
	}
	fmt.Printf("%d guest(s)\n", len(guests))
}

// headcount combines WhatsApp answers with replies submitted on the web page
func (c *console) headcount(ctx context.Context) {
	guests, err := c.repo.ListGuests(ctx, c.invitationID, "")
	if err != nil {
		fmt.Printf("❌ Error loading guests: %v\n", err)
		return
	}
	replies, err := c.repo.ListRSVPs(ctx, c.invitationID)
	if err != nil {
		fmt.Printf("❌ Error loading replies: %v\n", err)
		return
	}

	byStatus := make(map[models.RSVPStatus]int)
	for _, g := range guests {
		byStatus[g.RSVPStatus]++
	}
	webYes, webNo, webPeople := 0, 0, 0
	for _, r := range replies {
		if r.Attending {
			webYes++
			webPeople += r.GuestCount
		} else {
			webNo++
		}
	}

	fmt.Printf("\nWhatsApp: %d accepted, %d declined, %d pending\n",
		byStatus[models.RSVPAccepted], byStatus[models.RSVPDeclined], byStatus[models.RSVPPending])
	fmt.Printf("Web:      %d attending (%d people), %d declined\n", webYes, webPeople, webNo)
	fmt.Printf("Expected: %d people\n", byStatus[models.RSVPAccepted]+webPeople)
}
