package infrastructure

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// WhatsAppManager owns the per-user whatsmeow clients. Access goes through
// the RWMutex; clients are created lazily on connect.
type WhatsAppManager struct {
	clients map[int]*WhatsAppClient
	mu      sync.RWMutex
	baseDir string
	logger  zerolog.Logger

	// HandlerFactory builds the event handler registered on each new
	// client, closing over the owning user.
	HandlerFactory func(userID int) func(interface{})
}

func NewWhatsAppManager(baseDir string, logger zerolog.Logger) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", baseDir).Msg("could not create device directory")
	}

	return &WhatsAppManager{
		clients: make(map[int]*WhatsAppClient),
		baseDir: baseDir,
		logger:  logger,
	}
}

func (m *WhatsAppManager) GetClient(userID int) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[userID]
}

func (m *WhatsAppManager) GetOrCreateClient(userID int) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[userID]; exists {
		return client, nil
	}

	dbPath := fmt.Sprintf("%s/user_%d.db", m.baseDir, userID)
	client, err := NewWhatsAppClient(dbPath, userID, m.logger)
	if err != nil {
		return nil, fmt.Errorf("create whatsapp client for user %d: %w", userID, err)
	}

	if m.HandlerFactory != nil {
		client.AddHandler(m.HandlerFactory(userID))
	}

	m.clients[userID] = client
	return client, nil
}

func (m *WhatsAppManager) ConnectClient(userID int) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(userID)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect whatsapp for user %d: %w", userID, err)
	}

	return client, nil
}

func (m *WhatsAppManager) DisconnectClient(userID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[userID]; exists {
		client.Disconnect()
		delete(m.clients, userID)
	}
}

// LogoutClient clears the device session. Missing or already-disconnected
// clients are treated as success.
func (m *WhatsAppManager) LogoutClient(userID int) error {
	m.mu.RLock()
	client, exists := m.clients[userID]
	m.mu.RUnlock()

	if !exists || client == nil {
		return nil
	}

	if !client.IsLoggedIn() && !client.Client.IsConnected() {
		m.mu.Lock()
		delete(m.clients, userID)
		m.mu.Unlock()
		return nil
	}

	err := client.Logout()

	m.mu.Lock()
	delete(m.clients, userID)
	m.mu.Unlock()

	return err
}

func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[int]*WhatsAppClient)
}
