package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-builder/internal/api"
	"wedding-builder/internal/autosave"
	"wedding-builder/internal/builder"
	"wedding-builder/internal/config"
	"wedding-builder/internal/guard"
	"wedding-builder/internal/session"
	"wedding-builder/internal/storage"
)

type app struct {
	store   *builder.Store
	sync    *autosave.Coordinator
	guard   *guard.Guard
	client  *api.Client
	session *session.Session
	lines   <-chan string
	done    <-chan struct{}
	step    guard.Step
	log     zerolog.Logger
}

func main() {
	fmt.Println("💍 Wedding Invitation Builder")
	fmt.Println("============================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateBuilder(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger("builder")

	var opts []builder.Option
	local, err := storage.NewStorage(cfg.Builder.LocalStorePath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Builder.LocalStorePath).Msg("Local storage unreadable, continuing without it")
		fmt.Println("⚠ Local storage could not be read; unsaved changes will not survive a restart.")
	} else {
		opts = append(opts, builder.WithMirror(local))
	}

	sess := session.New(cfg.Builder.Token, uuid.Nil)
	client, err := api.NewClient(cfg.Builder.APIBaseURL, sess, cfg.Builder.RequestTimeout)
	if err != nil {
		fmt.Printf("Error initializing API client: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := builder.NewStore(client, logger, opts...)
	if store.Restore() {
		fmt.Println("Restored your unsaved draft.")
	}

	a := &app{
		store:   store,
		client:  client,
		session: sess,
		lines:   readLines(os.Stdin),
		done:    ctx.Done(),
		step:    guard.StepPlan,
		log:     logger,
	}
	a.sync = autosave.New(store, sess, logger,
		autosave.WithQuietPeriod(cfg.Builder.AutosaveDelay),
		autosave.WithContext(ctx),
	)
	defer a.sync.Close()
	a.guard = guard.New(store, guard.NavigatorFunc(func(step guard.Step) {
		fmt.Printf("\n↩ Please complete the %s step first.\n", step)
		a.step = step
	}))

	if !sess.IsAuthenticated() {
		fmt.Println("Not signed in: your draft is kept locally only (use login <token> or set BUILDER_TOKEN to sync).")
	}

	if len(os.Args) > 1 {
		a.open(ctx, os.Args[1])
	}

	a.run(ctx)
	a.shutdown()
}

// readLines feeds stdin to the UI so a pending prompt can give way to a signal
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (a *app) shutdown() {
	if !a.store.IsDirty() || !a.session.IsAuthenticated() {
		return
	}
	fmt.Println("\nSaving before exit...")
	if err := a.sync.ForceSave(context.Background()); err != nil {
		fmt.Printf("⚠ Not saved: %v (your draft is still stored locally)\n", err)
	}
}

func (a *app) open(ctx context.Context, id string) {
	inv, err := a.client.GetInvitation(ctx, id)
	if err != nil {
		fmt.Printf("❌ Could not open invitation %s: %v\n", id, err)
		return
	}
	if inv.Published() {
		fmt.Println("This invitation is already published and can no longer be edited.")
		return
	}
	a.store.LoadFromDatabase(inv)
	a.step = guard.StepDetails
	fmt.Printf("Opened invitation for %s & %s.\n", inv.Partner1Name, inv.Partner2Name)
}

func (a *app) run(ctx context.Context) {
	for {
		if !a.guard.Enter(a.step) {
			continue
		}
		a.printStatus()

		fmt.Printf("\n== Step: %s ==\n", a.step)
		fmt.Println("Commands: e = edit, n = next, b = back, g <step> = go to, s = save, o <id> = open, login <token>, logout, q = quit")
		fmt.Print("> ")
		line, ok := a.read()
		if !ok {
			return
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "e", "":
			a.edit(ctx)
		case "n":
			if a.step == guard.StepCheckout {
				a.checkout(ctx)
				continue
			}
			a.step = guard.Next(a.step)
		case "b":
			a.step = previous(a.step)
		case "g":
			step, err := guard.ParseStep(strings.TrimSpace(arg))
			if err != nil {
				fmt.Println(err)
				continue
			}
			a.step = step
		case "s":
			a.save(ctx)
		case "o":
			a.open(ctx, strings.TrimSpace(arg))
		case "login":
			if token := strings.TrimSpace(arg); token != "" {
				a.session.SignIn(token, uuid.Nil)
				a.sync.SessionChanged()
				fmt.Println("Signed in: your draft will sync to the server.")
			}
		case "logout":
			a.session.SignOut()
			a.sync.SessionChanged()
			fmt.Println("Signed out: your draft is kept locally only.")
		case "q":
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func (a *app) printStatus() {
	st := a.sync.Status()
	var state string
	switch {
	case !st.IsAuthenticated:
		state = "local only"
	case st.IsSaving:
		state = "saving..."
	case st.IsDirty && st.LastError != nil:
		state = "not saved"
	case st.IsDirty:
		state = "unsaved changes"
	case st.LastSaved != nil:
		state = "saved " + st.LastSaved.Format("15:04:05")
	default:
		state = "empty"
	}
	fmt.Printf("\n[%s]\n", state)
}

func (a *app) save(ctx context.Context) {
	if err := a.sync.ForceSave(ctx); err != nil {
		fmt.Printf("❌ Not saved: %v\n", err)
		return
	}
	fmt.Println("✅ Saved.")
}

func (a *app) checkout(ctx context.Context) {
	if err := a.sync.ForceSave(ctx); err != nil {
		fmt.Printf("❌ Cannot continue to checkout: %v\n", err)
		return
	}
	d := a.store.Snapshot()
	fmt.Printf("Publishing the %s invitation for %s & %s. Confirm payment? (y/n): ", d.SelectedPlan, d.Partner1Name, d.Partner2Name)
	if answer, _ := a.read(); !isYes(answer) {
		return
	}
	inv, err := a.client.PublishInvitation(ctx, d.InvitationID)
	if err != nil {
		fmt.Printf("❌ Checkout failed: %v\n", err)
		return
	}
	a.store.Clear()
	a.step = guard.StepPlan
	fmt.Printf("🎉 Published! Invitation id: %s\n", inv.ID)
}

func (a *app) read() (string, bool) {
	select {
	case <-a.done:
		return "", false
	case line, ok := <-a.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	}
}

// prompt asks for a value, keeping current when the answer is empty
func (a *app) prompt(label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	v, _ := a.read()
	if v == "" {
		return current
	}
	return v
}

func (a *app) confirm(label string, current bool) bool {
	def := "n"
	if current {
		def = "y"
	}
	v := a.prompt(label+" (y/n)", def)
	return isYes(v)
}

func isYes(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "y" || v == "yes"
}

func previous(step guard.Step) guard.Step {
	for i, s := range guard.Steps {
		if s == step && i > 0 {
			return guard.Steps[i-1]
		}
	}
	return step
}
