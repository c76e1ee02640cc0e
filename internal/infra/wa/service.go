package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mdp/qrterminal"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	walog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"
)

var ErrNotReady = errors.New("whatsapp client not connected")

// Inbound is a text message received from a chat.
type Inbound struct {
	Chat     types.JID
	Sender   types.JID
	UserID   string // sender phone number when it can be resolved
	PushName string
	Text     string
}

type MessageHandler func(ctx context.Context, msg Inbound)

type Service struct {
	client         *whatsmeow.Client
	sessionPath    string
	log            walog.Logger
	messageHandler MessageHandler
}

func NewService(sessionPath string, logger walog.Logger) *Service {
	return &Service{
		sessionPath: sessionPath,
		log:         logger,
	}
}

func (s *Service) Initialize(ctx context.Context) error {
	// whatsmeow opens its own connection; WAL and busy_timeout keep it from
	// locking out other readers of the same file.
	dbAddress := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.sessionPath)
	container, err := sqlstore.New(ctx, "sqlite", dbAddress, s.log)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	devices, err := container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}

	var device *store.Device
	if len(devices) > 0 {
		device = devices[0]
	} else {
		device = container.NewDevice()
	}

	s.client = whatsmeow.NewClient(device, s.log)
	s.client.AddEventHandler(s.handleEvent)
	return nil
}

func (s *Service) Connect() error {
	if s.client == nil {
		return fmt.Errorf("client not initialized")
	}
	if s.client.IsConnected() {
		return nil
	}
	return s.client.Connect()
}

func (s *Service) Disconnect() {
	if s.client != nil {
		s.client.Disconnect()
	}
}

func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

func (s *Service) handleEvent(evt interface{}) {
	v, ok := evt.(*events.Message)
	if !ok || s.messageHandler == nil || v.Info.IsFromMe {
		return
	}
	text := messageText(v.Message)
	if text == "" {
		return
	}

	ctx := context.Background()
	msg := Inbound{
		Chat:     v.Info.Chat,
		Sender:   v.Info.Sender,
		UserID:   s.resolveUserID(ctx, v.Info.Sender),
		PushName: v.Info.PushName,
		Text:     text,
	}
	if msg.PushName == "" {
		msg.PushName = "Unknown"
	}
	go s.messageHandler(ctx, msg)
}

// resolveUserID maps a LID sender to its phone number so the same person
// keeps one user id across privacy modes. An unmapped LID keeps its full JID
// so Notify still routes to the lid server instead of a bogus phone number.
func (s *Service) resolveUserID(ctx context.Context, sender types.JID) string {
	if sender.Server != types.HiddenUserServer {
		return sender.User
	}
	if s.client != nil {
		pn, err := s.client.Store.LIDs.GetPNForLID(ctx, sender)
		if err == nil && !pn.IsEmpty() {
			return pn.User
		}
		if err != nil && s.log != nil {
			s.log.Warnf("Failed to resolve phone number for %s: %v", sender, err)
		}
	}
	return sender.ToNonAD().String()
}

func messageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if m.Conversation != nil {
		return *m.Conversation
	}
	if ext := m.ExtendedTextMessage; ext != nil && ext.Text != nil {
		return *ext.Text
	}
	return ""
}

func (s *Service) GetClient() *whatsmeow.Client {
	return s.client
}

func (s *Service) IsLoggedIn() bool {
	return s.client != nil && s.client.Store.ID != nil
}

// SendText posts a plain text message to a chat.
func (s *Service) SendText(ctx context.Context, to types.JID, text string) error {
	if s.client == nil || !s.client.IsConnected() {
		return ErrNotReady
	}
	_, err := s.client.SendMessage(ctx, to, &waE2E.Message{Conversation: &text})
	return err
}

// SetTyping toggles the composing indicator in a chat.
func (s *Service) SetTyping(ctx context.Context, chat types.JID, typing bool) {
	if s.client == nil {
		return
	}
	state := types.ChatPresencePaused
	if typing {
		state = types.ChatPresenceComposing
	}
	_ = s.client.SendChatPresence(ctx, chat, state, types.ChatPresenceMediaText)
}

// Notify delivers a reminder. The user id is the recipient's phone number.
func (s *Service) Notify(ctx context.Context, userID, message string) error {
	to, err := recipientJID(userID)
	if err != nil {
		return err
	}
	return s.SendText(ctx, to, message)
}

// recipientJID accepts a bare phone number in any common notation, or a full JID.
func recipientJID(userID string) (types.JID, error) {
	if strings.Contains(userID, "@") {
		return types.ParseJID(userID)
	}
	var digits strings.Builder
	for _, r := range userID {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return types.JID{}, fmt.Errorf("user id %q is not a phone number", userID)
		}
	}
	if digits.Len() == 0 {
		return types.JID{}, fmt.Errorf("user id %q is not a phone number", userID)
	}
	return types.NewJID(digits.String(), types.DefaultUserServer), nil
}

func (s *Service) Pair(ctx context.Context, phone string) (string, error) {
	if s.IsLoggedIn() {
		return "", fmt.Errorf("already logged in")
	}
	if !s.client.IsConnected() {
		return "", ErrNotReady
	}

	// PairPhone(phone, showPushNotification, clientType, clientDisplayName)
	return s.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
}

// PrintQR connects and renders each login QR code until pairing finishes.
// The QR channel must be requested before Connect.
func (s *Service) PrintQR(ctx context.Context) error {
	if s.IsLoggedIn() {
		return nil
	}
	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("connect for qr: %w", err)
	}
	for evt := range qrChan {
		if evt.Event == "code" {
			fmt.Println("QR Code:", evt.Code)
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		} else {
			fmt.Println("Login event:", evt.Event)
		}
	}
	return nil
}
