package whatsapp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// MessageHandler is a callback function for handling messages
type MessageHandler func(*events.Message) error

type Config struct {
	DataDir string
}

type Service struct {
	client *whatsmeow.Client
	cfg    *Config
	log    zerolog.Logger

	mu      sync.RWMutex
	onReply MessageHandler
}

// NewService creates a new WhatsApp service with its device store in cfg.DataDir
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	// nil logger: sqlstore and whatsmeow fall back to no-op loggers
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger.With().Str("component", "WhatsApp").Logger(),
	}

	// Register event handlers
	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber normalizes phone numbers to international format.
// Israeli numbers that start with 0 are converted to the 972 prefix.
func NormalizePhoneNumber(phoneNumber string) string {
	phoneNumber = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phoneNumber)

	// Israeli format: 05XXXXXXXX -> 9725XXXXXXXX
	if strings.HasPrefix(phoneNumber, "0") && len(phoneNumber) == 10 {
		phoneNumber = "972" + phoneNumber[1:]
	}

	// Country code followed by the trunk 0
	if strings.HasPrefix(phoneNumber, "9720") {
		phoneNumber = "972" + phoneNumber[4:]
	}

	return phoneNumber
}

// Connect connects to WhatsApp. An unpaired device blocks until the QR code
// printed to stdout is scanned or ctx is done.
func (s *Service) Connect(ctx context.Context) error {
	var qrChan <-chan whatsmeow.QRChannelItem
	if s.client.Store.ID == nil {
		ch, err := s.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to open pairing channel: %w", err)
		}
		qrChan = ch
	}

	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if qrChan == nil {
		return nil
	}

	for item := range qrChan {
		if item.Event == whatsmeow.QRChannelEventCode {
			printPairingCode(item.Code)
			continue
		}
		s.log.Info().Str("event", item.Event).Msg("Pairing event")
		if item.Error != nil {
			return fmt.Errorf("pairing failed: %w", item.Error)
		}
	}
	return nil
}

func printPairingCode(code string) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Printf("Pairing code: %s\n", code)
		return
	}
	fmt.Println("\n" + q.ToSmallString(false))
	fmt.Println("📱 Link this bot from WhatsApp on your phone: Settings > Linked Devices > Link a Device")
}

// IsReady reports whether the client is connected and paired
func (s *Service) IsReady() bool {
	return s.client.IsConnected() && s.client.IsLoggedIn()
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// resolveJID checks that the number is on WhatsApp and returns its JID
func (s *Service) resolveJID(ctx context.Context, phoneNumber string) (types.JID, error) {
	resp, err := s.client.IsOnWhatsApp(ctx, []string{phoneNumber})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("number %s is not registered on WhatsApp", phoneNumber)
	}
	return resp[0].JID, nil
}

// SendMessage sends a simple text message
func (s *Service) SendMessage(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = NormalizePhoneNumber(phoneNumber)

	jid, err := s.resolveJID(ctx, phoneNumber)
	if err != nil {
		return err
	}

	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Msg("Sending message")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(message),
	})
	if err != nil {
		if strings.Contains(err.Error(), "unknown server") || strings.Contains(err.Error(), "can't send message") {
			return fmt.Errorf("failed to send message to %s (JID: %s), the recipient must be in your contacts: %w", phoneNumber, jid.String(), err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Info().Str("id", string(sent.ID)).Str("phone", phoneNumber).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage forwards text from other accounts to the registered handler
func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}

	s.mu.RLock()
	onReply := s.onReply
	s.mu.RUnlock()

	if onReply == nil {
		s.log.Debug().Str("sender", msg.Info.Sender.User).Msg("Message ignored, no handler registered")
		return
	}
	if err := onReply(msg); err != nil {
		s.log.Error().Err(err).Str("sender", msg.Info.Sender.User).Msg("Error handling message")
	}
}

// SetMessageHandler sets the handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.mu.Lock()
	s.onReply = handler
	s.mu.Unlock()
}
