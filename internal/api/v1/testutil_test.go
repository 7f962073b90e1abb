package v1_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/relay"
	"github.com/gosuda/botrelay/internal/secrets"
)

func testVault(t *testing.T) *secrets.Vault {
	t.Helper()

	vault, err := secrets.NewVaultFromSecret("api-test-secret-key-material-0001")
	require.NoError(t, err)
	return vault
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	bots     domain.BotRepository
	commands domain.CommandRepository
}

func (m *mockDataStore) Bots() domain.BotRepository         { return m.bots }
func (m *mockDataStore) Commands() domain.CommandRepository { return m.commands }

// ---------------------------------------------------------------------------
// Mock BotRepository
// ---------------------------------------------------------------------------

type mockBotRepo struct {
	createFunc  func(ctx context.Context, b *domain.Bot) error
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.Bot, error)
	listFunc    func(ctx context.Context) ([]*domain.Bot, error)
	updateFunc  func(ctx context.Context, b *domain.Bot) error
	deleteFunc  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBotRepo) Create(ctx context.Context, b *domain.Bot) error {
	return m.createFunc(ctx, b)
}

func (m *mockBotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBotRepo) List(ctx context.Context) ([]*domain.Bot, error) {
	return m.listFunc(ctx)
}

func (m *mockBotRepo) Update(ctx context.Context, b *domain.Bot) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CommandRepository
// ---------------------------------------------------------------------------

type mockCommandRepo struct {
	createFunc        func(ctx context.Context, c *domain.Command) error
	getByIDFunc       func(ctx context.Context, botID, id uuid.UUID) (*domain.Command, error)
	listByBotFunc     func(ctx context.Context, botID uuid.UUID) ([]*domain.Command, error)
	updateFunc        func(ctx context.Context, c *domain.Command) error
	setPlatformIDFunc func(ctx context.Context, id uuid.UUID, platformID string) error
	deleteFunc        func(ctx context.Context, botID, id uuid.UUID) error
}

func (m *mockCommandRepo) Create(ctx context.Context, c *domain.Command) error {
	return m.createFunc(ctx, c)
}

func (m *mockCommandRepo) GetByID(ctx context.Context, botID, id uuid.UUID) (*domain.Command, error) {
	return m.getByIDFunc(ctx, botID, id)
}

func (m *mockCommandRepo) ListByBot(ctx context.Context, botID uuid.UUID) ([]*domain.Command, error) {
	return m.listByBotFunc(ctx, botID)
}

func (m *mockCommandRepo) Update(ctx context.Context, c *domain.Command) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCommandRepo) SetPlatformID(ctx context.Context, id uuid.UUID, platformID string) error {
	return m.setPlatformIDFunc(ctx, id, platformID)
}

func (m *mockCommandRepo) Delete(ctx context.Context, botID, id uuid.UUID) error {
	return m.deleteFunc(ctx, botID, id)
}

// ---------------------------------------------------------------------------
// Mock ConnectionManager
// ---------------------------------------------------------------------------

type mockManager struct {
	initializeAllFunc func(ctx context.Context) error
	isInitializedFunc func() bool
	startFunc         func(ctx context.Context, botID uuid.UUID) error
	stopFunc          func(botID uuid.UUID) bool
	restartFunc       func(ctx context.Context, botID uuid.UUID) error
	stopAllFunc       func()
	statusFunc        func(botID uuid.UUID) relay.BotStatus
	allStatusesFunc   func() []relay.BotStatus
}

func (m *mockManager) InitializeAll(ctx context.Context) error {
	if m.initializeAllFunc != nil {
		return m.initializeAllFunc(ctx)
	}
	return nil
}

func (m *mockManager) IsInitialized() bool {
	if m.isInitializedFunc != nil {
		return m.isInitializedFunc()
	}
	return true
}

func (m *mockManager) Start(ctx context.Context, botID uuid.UUID) error {
	if m.startFunc != nil {
		return m.startFunc(ctx, botID)
	}
	return nil
}

func (m *mockManager) Stop(botID uuid.UUID) bool {
	if m.stopFunc != nil {
		return m.stopFunc(botID)
	}
	return false
}

func (m *mockManager) Restart(ctx context.Context, botID uuid.UUID) error {
	if m.restartFunc != nil {
		return m.restartFunc(ctx, botID)
	}
	return nil
}

func (m *mockManager) StopAll() {
	if m.stopAllFunc != nil {
		m.stopAllFunc()
	}
}

func (m *mockManager) Status(botID uuid.UUID) relay.BotStatus {
	if m.statusFunc != nil {
		return m.statusFunc(botID)
	}
	return relay.BotStatus{BotID: botID.String(), Status: relay.StatusOffline}
}

func (m *mockManager) AllStatuses() []relay.BotStatus {
	if m.allStatusesFunc != nil {
		return m.allStatusesFunc()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock CommandRegistrar
// ---------------------------------------------------------------------------

type mockRegistrar struct {
	registerAllFunc func(ctx context.Context, botID uuid.UUID) (domain.CommandRegistration, error)
	verifyAllFunc   func(ctx context.Context, botID uuid.UUID) (domain.CommandVerification, error)
}

func (m *mockRegistrar) RegisterAll(ctx context.Context, botID uuid.UUID) (domain.CommandRegistration, error) {
	return m.registerAllFunc(ctx, botID)
}

func (m *mockRegistrar) VerifyAll(ctx context.Context, botID uuid.UUID) (domain.CommandVerification, error) {
	if m.verifyAllFunc != nil {
		return m.verifyAllFunc(ctx, botID)
	}
	return domain.CommandVerification{}, nil
}

// ---------------------------------------------------------------------------
// Mock DMTester
// ---------------------------------------------------------------------------

type dmCall struct {
	token   string
	userID  string
	content string
}

type mockTester struct {
	sendFunc func(ctx context.Context, token, userID, content string) error
	calls    []dmCall
}

func (m *mockTester) SendDirectMessage(ctx context.Context, token, userID, content string) error {
	m.calls = append(m.calls, dmCall{token: token, userID: userID, content: content})
	if m.sendFunc != nil {
		return m.sendFunc(ctx, token, userID, content)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock EventLogRepository
// ---------------------------------------------------------------------------

type mockEventLog struct {
	appendFunc func(ctx context.Context, e *domain.EventLogEntry) error
	listFunc   func(ctx context.Context, botID *uuid.UUID, limit int) ([]*domain.EventLogEntry, error)
	clearFunc  func(ctx context.Context, botID *uuid.UUID) error
}

func (m *mockEventLog) Append(ctx context.Context, e *domain.EventLogEntry) error {
	return m.appendFunc(ctx, e)
}

func (m *mockEventLog) List(ctx context.Context, botID *uuid.UUID, limit int) ([]*domain.EventLogEntry, error) {
	return m.listFunc(ctx, botID, limit)
}

func (m *mockEventLog) Clear(ctx context.Context, botID *uuid.UUID) error {
	return m.clearFunc(ctx, botID)
}
