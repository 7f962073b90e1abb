package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/secrets"
)

const (
	defaultDedupSize    = 512
	eventTimeout        = 30 * time.Second
	logAppendTimeout    = 5 * time.Second
	registrationTimeout = 60 * time.Second
)

// Manager owns the authoritative map of bot ID to gateway connection and
// mediates every lifecycle transition and inbound event.
type Manager struct {
	bots      domain.BotRepository
	vault     *secrets.Vault
	dialer    Dialer
	forwarder *Forwarder
	registrar CommandRegistrar // nil disables startup command registration
	logs      domain.EventLogRepository
	dedupSize int

	mu          sync.RWMutex
	conns       map[uuid.UUID]*connection
	startErrors map[uuid.UUID]string // last failed-start reason per bot
	startLocks  map[uuid.UUID]*sync.Mutex
	initialized bool
}

// ManagerOption configures optional Manager parameters.
type ManagerOption func(*Manager)

// WithRegistrar enables best-effort command registration when a connection
// reaches readiness.
func WithRegistrar(r CommandRegistrar) ManagerOption {
	return func(m *Manager) {
		m.registrar = r
	}
}

// WithDedupSize bounds the per-connection duplicate-suppression set.
func WithDedupSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.dedupSize = n
		}
	}
}

// NewManager creates a Manager with the required dependencies.
func NewManager(
	bots domain.BotRepository,
	vault *secrets.Vault,
	dialer Dialer,
	forwarder *Forwarder,
	logs domain.EventLogRepository,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		bots:        bots,
		vault:       vault,
		dialer:      dialer,
		forwarder:   forwarder,
		logs:        logs,
		dedupSize:   defaultDedupSize,
		conns:       make(map[uuid.UUID]*connection),
		startErrors: make(map[uuid.UUID]string),
		startLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitializeAll loads every credential record and starts a connection for
// each, continuing past individual failures. Idempotent: subsequent calls
// are no-ops until StopAll clears the initialized flag.
func (m *Manager) InitializeAll(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	bots, err := m.bots.List(ctx)
	if err != nil {
		// A failed load is not initialization: release the latch so the
		// next call retries the store.
		m.mu.Lock()
		m.initialized = false
		m.mu.Unlock()
		return fmt.Errorf("relay.Manager.InitializeAll: list bots: %w", err)
	}

	for _, bot := range bots {
		if startErr := m.Start(ctx, bot.ID); startErr != nil {
			log.Error().Err(startErr).
				Str("bot_id", bot.ID.String()).
				Str("bot_name", bot.Name).
				Msg("failed to start bot")
		}
	}

	return nil
}

// IsInitialized reports whether InitializeAll has run since the last StopAll.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Start opens a gateway connection for the bot. Any existing connection for
// the same bot is torn down first, so no window exists with two live
// sessions; concurrent Start calls for the same bot are serialized by a
// per-bot lock so a replacement can never leave a displaced session
// connected. The returned error covers only the synchronous portion of the
// attempt; asynchronous outcomes update the connection status in place.
func (m *Manager) Start(ctx context.Context, botID uuid.UUID) error {
	lock := m.startLock(botID)
	lock.Lock()
	defer lock.Unlock()

	bot, err := m.bots.GetByID(ctx, botID)
	if err != nil {
		return fmt.Errorf("relay.Manager.Start: %w", err)
	}

	token, err := m.vault.Decrypt(bot.EncryptedToken)
	if err != nil {
		return fmt.Errorf("relay.Manager.Start: decrypt token: %w", err)
	}

	// Replace, not stack.
	m.stopLocked(botID)

	conn := newConnection(m, bot, m.dedupSize)

	session, err := m.dialer.Dial(token, conn)
	if err != nil {
		m.recordStartFailure(botID, err)
		return fmt.Errorf("relay.Manager.Start: dial: %w", err)
	}
	conn.session = session

	m.mu.Lock()
	m.conns[botID] = conn
	delete(m.startErrors, botID)
	m.mu.Unlock()

	if err := session.Connect(ctx); err != nil {
		// Failed before reaching online: the entry leaves the active set
		// and the failure stays observable through Status.
		m.mu.Lock()
		delete(m.conns, botID)
		m.mu.Unlock()
		m.recordStartFailure(botID, err)

		return fmt.Errorf("relay.Manager.Start: connect: %w", err)
	}

	return nil
}

// Stop tears down the bot's connection and removes it from the map. Returns
// false if no connection exists. Transport teardown errors are logged and
// the entry is removed regardless. Stop shares the per-bot lock with Start,
// so it can never interleave with a start attempt and strand a freshly
// connected session.
func (m *Manager) Stop(botID uuid.UUID) bool {
	lock := m.startLock(botID)
	lock.Lock()
	defer lock.Unlock()
	return m.stopLocked(botID)
}

// stopLocked is Stop without acquiring the per-bot lock; the caller holds it.
func (m *Manager) stopLocked(botID uuid.UUID) bool {
	m.mu.Lock()
	conn, ok := m.conns[botID]
	delete(m.conns, botID)
	delete(m.startErrors, botID)
	m.mu.Unlock()

	if !ok {
		return false
	}

	if conn.session != nil {
		if err := conn.session.Disconnect(); err != nil {
			log.Error().Err(err).Str("bot_id", botID.String()).Msg("error disconnecting session")
		}
	}
	conn.setStatus(StatusOffline, "")

	return true
}

// Restart stops then starts the connection. The gap between the two is an
// observable offline window; no atomicity is guaranteed against concurrent
// status reads.
func (m *Manager) Restart(ctx context.Context, botID uuid.UUID) error {
	m.Stop(botID)
	return m.Start(ctx, botID)
}

// StopAll stops every tracked connection concurrently and clears the
// initialized flag so a later InitializeAll reloads from the store.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.initialized = false
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Stop(id)
		}()
	}
	wg.Wait()
}

// Status returns the current state of the bot's connection. Never blocks,
// never touches the transport. A bot with no tracked connection reports
// offline, or error when its last start attempt failed.
func (m *Manager) Status(botID uuid.UUID) BotStatus {
	m.mu.RLock()
	conn, ok := m.conns[botID]
	lastErr, failed := m.startErrors[botID]
	m.mu.RUnlock()

	if ok {
		return conn.snapshot()
	}
	if failed {
		return BotStatus{BotID: botID.String(), Status: StatusError, Error: lastErr}
	}
	return BotStatus{BotID: botID.String(), Status: StatusOffline}
}

// AllStatuses returns a snapshot of every tracked connection.
func (m *Manager) AllStatuses() []BotStatus {
	m.mu.RLock()
	conns := make([]*connection, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	statuses := make([]BotStatus, 0, len(conns))
	for _, conn := range conns {
		statuses = append(statuses, conn.snapshot())
	}
	return statuses
}

// startLock returns the bot's start mutex, creating it on first use. Locks
// are never removed; the map is bounded by the number of bots ever started.
func (m *Manager) startLock(botID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.startLocks[botID]
	if !ok {
		lock = &sync.Mutex{}
		m.startLocks[botID] = lock
	}
	return lock
}

func (m *Manager) recordStartFailure(botID uuid.UUID, err error) {
	m.mu.Lock()
	m.startErrors[botID] = err.Error()
	m.mu.Unlock()
}
