package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/secrets"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type stubBotRepo struct {
	bot *domain.Bot
}

func (r *stubBotRepo) Create(context.Context, *domain.Bot) error { return nil }

func (r *stubBotRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Bot, error) {
	if r.bot == nil || r.bot.ID != id {
		return nil, fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
	}
	return r.bot, nil
}

func (r *stubBotRepo) List(context.Context) ([]*domain.Bot, error) { return nil, nil }
func (r *stubBotRepo) Update(context.Context, *domain.Bot) error   { return nil }
func (r *stubBotRepo) Delete(context.Context, uuid.UUID) error     { return nil }

type stubCommandRepo struct {
	mu          sync.Mutex
	commands    []*domain.Command
	platformIDs map[uuid.UUID]string
}

func (r *stubCommandRepo) Create(context.Context, *domain.Command) error { return nil }

func (r *stubCommandRepo) GetByID(context.Context, uuid.UUID, uuid.UUID) (*domain.Command, error) {
	return nil, domain.ErrNotFound
}

func (r *stubCommandRepo) ListByBot(context.Context, uuid.UUID) ([]*domain.Command, error) {
	return r.commands, nil
}

func (r *stubCommandRepo) Update(context.Context, *domain.Command) error { return nil }

func (r *stubCommandRepo) SetPlatformID(_ context.Context, id uuid.UUID, platformID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.platformIDs == nil {
		r.platformIDs = make(map[uuid.UUID]string)
	}
	r.platformIDs[id] = platformID
	return nil
}

func (r *stubCommandRepo) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type createCall struct {
	guildID string
	name    string
}

type stubREST struct {
	appID      string
	appIDErr   error
	globalErr  error
	guildErr   error
	calls      []createCall
	nextCmdSeq int
	listed     []*discordgo.ApplicationCommand
	listErr    error
	listScopes []string // guild IDs passed to ListCommands
}

func (s *stubREST) ApplicationID(string) (string, error) {
	if s.appIDErr != nil {
		return "", s.appIDErr
	}
	return s.appID, nil
}

func (s *stubREST) CreateCommand(_, _, guildID string, cmd *discordgo.ApplicationCommand) (string, error) {
	s.calls = append(s.calls, createCall{guildID: guildID, name: cmd.Name})
	if guildID == "" && s.globalErr != nil {
		return "", s.globalErr
	}
	if guildID != "" && s.guildErr != nil {
		return "", s.guildErr
	}
	s.nextCmdSeq++
	scope := "global"
	if guildID != "" {
		scope = "guild"
	}
	return fmt.Sprintf("%s-%d", scope, s.nextCmdSeq), nil
}

func (s *stubREST) ListCommands(_, _, guildID string) ([]*discordgo.ApplicationCommand, error) {
	s.listScopes = append(s.listScopes, guildID)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listed, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

func newTestRegistrar(t *testing.T, bot *domain.Bot, cmds []*domain.Command, rest *stubREST) (*Registrar, *stubCommandRepo) {
	t.Helper()

	vault, err := secrets.NewVaultFromSecret("registrar-test-secret-material-01")
	require.NoError(t, err)

	encrypted, err := vault.Encrypt("bot-token")
	require.NoError(t, err)
	bot.EncryptedToken = encrypted

	cmdRepo := &stubCommandRepo{commands: cmds}
	return NewRegistrar(&stubBotRepo{bot: bot}, cmdRepo, vault, rest), cmdRepo
}

func commandFixture(name string) *domain.Command {
	return &domain.Command{
		ID:          uuid.New(),
		BotID:       uuid.New(),
		Name:        name,
		Description: "a test command",
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegisterAllBothScopesSucceed(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg", GuildID: "guild-9"}
	rest := &stubREST{appID: "app-1"}
	registrar, cmdRepo := newTestRegistrar(t, bot, []*domain.Command{commandFixture("Ping")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Registered)
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, result.Errors)

	// One global plus one guild attempt, lowercased name on both.
	require.Len(t, rest.calls, 2)
	assert.Equal(t, "", rest.calls[0].guildID)
	assert.Equal(t, "guild-9", rest.calls[1].guildID)
	assert.Equal(t, "ping", rest.calls[0].name)

	// The globally assigned ID wins when both scopes succeed.
	require.Len(t, cmdRepo.platformIDs, 1)
	for _, id := range cmdRepo.platformIDs {
		assert.Contains(t, id, "global")
	}
}

func TestRegisterAllGuildOnlySuccess(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg", GuildID: "guild-9"}
	rest := &stubREST{appID: "app-1", globalErr: errors.New("rate limited")}
	registrar, cmdRepo := newTestRegistrar(t, bot, []*domain.Command{commandFixture("status")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Registered)
	assert.Empty(t, result.Errors)
	for _, id := range cmdRepo.platformIDs {
		assert.Contains(t, id, "guild")
	}
}

func TestRegisterAllBothScopesFail(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg", GuildID: "guild-9"}
	rest := &stubREST{
		appID:     "app-1",
		globalErr: errors.New("global down"),
		guildErr:  errors.New("guild down"),
	}
	registrar, cmdRepo := newTestRegistrar(t, bot, []*domain.Command{commandFixture("broken")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Registered)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "global down")
	assert.Contains(t, result.Errors[1], "guild down")
	assert.Empty(t, cmdRepo.platformIDs)
}

func TestRegisterAllNoGuildRegistersGlobalOnly(t *testing.T) {
	t.Parallel()

	// Without a configured guild there must be exactly one registration
	// call, in the global scope; a second call with an empty guild ID
	// would register globally twice.
	bot := &domain.Bot{ID: uuid.New(), Name: "reg"}
	rest := &stubREST{appID: "app-1"}
	registrar, cmdRepo := newTestRegistrar(t, bot, []*domain.Command{commandFixture("solo")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Registered)
	assert.Empty(t, result.Errors)
	require.Len(t, rest.calls, 1)
	assert.Equal(t, "", rest.calls[0].guildID)
	for _, id := range cmdRepo.platformIDs {
		assert.Contains(t, id, "global")
	}
}

func TestRegisterAllNoGuildGlobalFailure(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg"}
	rest := &stubREST{appID: "app-1", globalErr: errors.New("global down")}
	registrar, cmdRepo := newTestRegistrar(t, bot, []*domain.Command{commandFixture("solo")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Registered)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "global down")
	assert.Empty(t, cmdRepo.platformIDs)
}

func TestRegisterAllApplicationIDMismatchSurfaced(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg", GuildID: "guild-9", ApplicationID: "configured-app"}
	rest := &stubREST{appID: "token-app"}
	registrar, _ := newTestRegistrar(t, bot, []*domain.Command{commandFixture("ok")}, rest)

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	// The mismatch is a warning: registration proceeds with the token's app.
	assert.Equal(t, 1, result.Registered)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "configured-app")
	assert.Contains(t, result.Errors[0], "token-app")
}

func TestRegisterAllUnknownBot(t *testing.T) {
	t.Parallel()

	registrar, _ := newTestRegistrar(t, &domain.Bot{ID: uuid.New()}, nil, &stubREST{appID: "a"})

	_, err := registrar.RegisterAll(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterAllApplicationResolutionFails(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "reg"}
	rest := &stubREST{appIDErr: errors.New("401 unauthorized")}
	registrar, _ := newTestRegistrar(t, bot, nil, rest)

	_, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve application")
}

func TestRegisterAllInvalidOptionSchema(t *testing.T) {
	t.Parallel()

	cmd := commandFixture("opts")
	cmd.Options = []byte(`{not json`)

	bot := &domain.Bot{ID: uuid.New(), Name: "reg"}
	registrar, _ := newTestRegistrar(t, bot, []*domain.Command{cmd}, &stubREST{appID: "app-1"})

	result, err := registrar.RegisterAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Registered)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "invalid options")
}

func TestVerifyAllReportsMissing(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "verify", GuildID: "guild-9"}
	rest := &stubREST{
		appID: "app-1",
		listed: []*discordgo.ApplicationCommand{
			{ID: "p-1", Name: "ping", Description: "pong"},
		},
	}
	stored := []*domain.Command{commandFixture("Ping"), commandFixture("deploy")}
	registrar, _ := newTestRegistrar(t, bot, stored, rest)

	result, err := registrar.VerifyAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, "p-1", result.Commands[0].ID)
	assert.Equal(t, "ping", result.Commands[0].Name)

	// Stored names are compared lowercased, the way they are registered.
	assert.Equal(t, []string{"deploy"}, result.Missing)

	require.Equal(t, []string{"guild-9"}, rest.listScopes)
}

func TestVerifyAllGlobalScopeWithoutGuild(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "verify"}
	rest := &stubREST{appID: "app-1"}
	registrar, _ := newTestRegistrar(t, bot, nil, rest)

	result, err := registrar.VerifyAll(context.Background(), bot.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Missing)
	require.Equal(t, []string{""}, rest.listScopes)
}

func TestVerifyAllListFailure(t *testing.T) {
	t.Parallel()

	bot := &domain.Bot{ID: uuid.New(), Name: "verify", GuildID: "guild-9"}
	rest := &stubREST{appID: "app-1", listErr: errors.New("403 forbidden")}
	registrar, _ := newTestRegistrar(t, bot, nil, rest)

	_, err := registrar.VerifyAll(context.Background(), bot.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list registered commands")
}

func TestVerifyAllUnknownBot(t *testing.T) {
	t.Parallel()

	registrar, _ := newTestRegistrar(t, &domain.Bot{ID: uuid.New()}, nil, &stubREST{appID: "a"})

	_, err := registrar.VerifyAll(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDescribeGuildError(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	assert.Equal(t, "plain failure", describeGuildError(plain))

	restErr := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 50001}}
	assert.Contains(t, describeGuildError(restErr), "invite it first")

	restErr = &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 20012}}
	assert.Contains(t, describeGuildError(restErr), "not authorized")
}
