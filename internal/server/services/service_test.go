package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threelizards/safe-variables/internal/common"
	"github.com/threelizards/safe-variables/internal/cryptox"
	"github.com/threelizards/safe-variables/internal/logging"
	"github.com/threelizards/safe-variables/internal/server/audit"
	"github.com/threelizards/safe-variables/internal/server/auth"
	"github.com/threelizards/safe-variables/internal/server/ratelimit"
	"github.com/threelizards/safe-variables/internal/server/repositories/repomanager"
)

const testPassword = "Str0ng&Passw0rd!"

type testEnv struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	auth   *AuthService
	vault  *VaultService
	logBuf *bytes.Buffer
}

func newTestEnv(t *testing.T) (*testEnv, context.Context) {
	t.Helper()
	ctx := context.Background()

	db, repos, err := repomanager.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repos.RunMigrations(ctx, db))

	buf := &bytes.Buffer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(buf, nil)))
	recorder := audit.NewRecorder(logger)

	cipher, err := cryptox.NewCipher(bytes.Repeat([]byte{0x2a}, cryptox.KeySize))
	require.NoError(t, err)

	codec := auth.NewTokenCodec([]byte("test-signing-secret"), time.Hour)
	limiter := ratelimit.New()

	env := &testEnv{
		db:     db,
		repos:  repos,
		auth:   NewAuthService(db, repos, codec, limiter, recorder, logger),
		vault:  NewVaultService(db, repos, cipher, recorder, logger),
		logBuf: buf,
	}
	return env, ctx
}

func (e *testEnv) register(t *testing.T, email string) *Session {
	t.Helper()
	sess, err := e.auth.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: testPassword,
		Name:     "Test User",
	}, ClientInfo{IP: "10.0.0." + fmt.Sprint(len(email)%250)})
	require.NoError(t, err)
	return sess
}

func TestRegisterIssuesResolvableSession(t *testing.T) {
	env, ctx := newTestEnv(t)

	sess := env.register(t, "alice@example.com")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEqual(t, testPassword, sess.User.PasswordHash)

	user, err := env.auth.ResolveSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)

	assert.Contains(t, env.logBuf.String(), audit.ActionRegisterSuccess)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	env, ctx := newTestEnv(t)

	sess, err := env.auth.Register(ctx, RegisterRequest{
		Email:    "  Bob@Example.COM ",
		Password: testPassword,
	}, ClientInfo{IP: "10.1.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", sess.User.Email)

	login, err := env.auth.Login(ctx, "BOB@example.com", testPassword, ClientInfo{IP: "10.1.0.2"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	env, ctx := newTestEnv(t)

	_, err := env.auth.Register(ctx, RegisterRequest{
		Email: "not-an-email", Password: testPassword,
	}, ClientInfo{IP: "10.2.0.1"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = env.auth.Register(ctx, RegisterRequest{
		Email: "carol@example.com", Password: "weak",
	}, ClientInfo{IP: "10.2.0.2"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env, ctx := newTestEnv(t)

	env.register(t, "dave@example.com")

	_, err := env.auth.Register(ctx, RegisterRequest{
		Email: "dave@example.com", Password: testPassword,
	}, ClientInfo{IP: "10.3.0.1"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Contains(t, env.logBuf.String(), audit.ActionRegisterFailed)
}

func TestRegisterRateLimited(t *testing.T) {
	env, ctx := newTestEnv(t)
	client := ClientInfo{IP: "10.4.0.1"}

	// invalid-email attempts still consume the budget
	for i := 0; i < 5; i++ {
		_, err := env.auth.Register(ctx, RegisterRequest{Email: "bad"}, client)
		assert.ErrorIs(t, err, common.ErrorValidation)
	}

	_, err := env.auth.Register(ctx, RegisterRequest{Email: "bad"}, client)
	assert.ErrorIs(t, err, common.ErrorRateLimited)

	var rle *common.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
}

func TestLoginWrongAndUnknownLookTheSame(t *testing.T) {
	env, ctx := newTestEnv(t)

	env.register(t, "erin@example.com")

	_, errWrong := env.auth.Login(ctx, "erin@example.com", "Wrong&Passw0rd!!", ClientInfo{IP: "10.5.0.1"})
	_, errUnknown := env.auth.Login(ctx, "ghost@example.com", testPassword, ClientInfo{IP: "10.5.0.2"})

	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.Contains(t, env.logBuf.String(), audit.ActionLoginFailed)
}

func TestLoginRateLimited(t *testing.T) {
	env, ctx := newTestEnv(t)
	client := ClientInfo{IP: "10.6.0.1"}

	for i := 0; i < 10; i++ {
		_, err := env.auth.Login(ctx, "ghost@example.com", "whatever", client)
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	}

	_, err := env.auth.Login(ctx, "ghost@example.com", "whatever", client)
	assert.ErrorIs(t, err, common.ErrorRateLimited)
	assert.Contains(t, env.logBuf.String(), audit.ActionLoginRateLimited)

	// a different client is unaffected
	_, err = env.auth.Login(ctx, "ghost@example.com", "whatever", ClientInfo{IP: "10.6.0.2"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestResolveSessionRejectsGarbage(t *testing.T) {
	env, ctx := newTestEnv(t)

	_, err := env.auth.ResolveSession(ctx, "not-a-token")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	env, ctx := newTestEnv(t)
	sess := env.register(t, "frank@example.com")

	updated, err := env.auth.UpdateProfile(ctx, sess.User.ID, ProfileUpdate{
		Name:     "Frank",
		Company:  "Initech",
		Timezone: "Europe/Riga",
	}, ClientInfo{IP: "10.7.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "Frank", updated.Name)
	assert.Equal(t, "Initech", updated.Company)

	fetched, err := env.repos.Users(env.db).GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Riga", fetched.Timezone)
	assert.Contains(t, env.logBuf.String(), audit.ActionProfileUpdated)
}

func TestProjectLifecycle(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "grace@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{
		Name: "  infra  ", Description: "shared infra",
	})
	require.NoError(t, err)
	assert.Equal(t, "infra", project.Name)

	list, err := env.vault.ListProjects(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := env.vault.UpdateProject(ctx, project.ID, owner.ID, ProjectInput{Name: "infra-v2"})
	require.NoError(t, err)
	assert.Equal(t, "infra-v2", updated.Name)

	require.NoError(t, env.vault.DeleteProject(ctx, project.ID, owner.ID, ClientInfo{IP: "10.8.0.1"}))
	assert.Contains(t, env.logBuf.String(), audit.ActionProjectDeleted)

	_, _, err = env.vault.GetProject(ctx, project.ID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestProjectNameValidation(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "heidi@example.com").User

	for _, name := range []string{"", "   ", "<script>alert(1)</script>", string(bytes.Repeat([]byte("a"), 101))} {
		_, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: name})
		assert.ErrorIs(t, err, common.ErrorValidation, "name %q", name)
	}
}

func TestProjectOwnershipReadsAsNotFound(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "ivan@example.com").User
	other := env.register(t, "judy@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "private"})
	require.NoError(t, err)

	_, _, err = env.vault.GetProject(ctx, project.ID, other.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = env.vault.UpdateProject(ctx, project.ID, other.ID, ProjectInput{Name: "stolen"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = env.vault.DeleteProject(ctx, project.ID, other.ID, ClientInfo{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSecretVariableStoredEncrypted(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "kate@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "api"})
	require.NoError(t, err)

	secret, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{
		Key: "API_TOKEN", Value: "tok-123456", IsSecret: true,
	})
	require.NoError(t, err)
	assert.True(t, secret.IsSecret)
	assert.NotEqual(t, "tok-123456", secret.Value)
	assert.NotContains(t, secret.Value, "tok-123456")

	plain, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{
		Key: "REGION", Value: "eu-west-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", plain.Value)

	// stored rows match what the service returned
	rows, err := env.repos.Variables(env.db).ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotEqual(t, "tok-123456", row.Value)
	}

	revealed, err := env.vault.RevealVariable(ctx, secret.ID, owner.ID, ClientInfo{IP: "10.9.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-123456", revealed)
	assert.Contains(t, env.logBuf.String(), audit.ActionSecretRevealed)

	// revealing a plain variable just returns the value, no audit record
	before := env.logBuf.Len()
	revealed, err = env.vault.RevealVariable(ctx, plain.ID, owner.ID, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", revealed)
	assert.NotContains(t, env.logBuf.String()[before:], audit.ActionSecretRevealed)
}

func TestDuplicateVariableKey(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "leo@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "svc"})
	require.NoError(t, err)

	_, err = env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{Key: "PORT", Value: "8080"})
	require.NoError(t, err)

	_, err = env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{Key: "PORT", Value: "9090"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	// same key in another project is fine
	other, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "svc-2"})
	require.NoError(t, err)
	_, err = env.vault.CreateVariable(ctx, other.ID, owner.ID, VariableInput{Key: "PORT", Value: "8081"})
	assert.NoError(t, err)
}

func TestUpdateVariable(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "mallory@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "db"})
	require.NoError(t, err)

	secret, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{
		Key: "DB_PASSWORD", Value: "hunter2", IsSecret: true,
	})
	require.NoError(t, err)

	// empty value keeps the stored ciphertext
	kept, err := env.vault.UpdateVariable(ctx, secret.ID, owner.ID, VariableInput{
		Key: "DB_PASSWORD", Description: "primary",
	})
	require.NoError(t, err)
	assert.Equal(t, secret.Value, kept.Value)
	assert.Equal(t, "primary", kept.Description)

	// a new value is re-encrypted under a fresh nonce
	reenc, err := env.vault.UpdateVariable(ctx, secret.ID, owner.ID, VariableInput{
		Key: "DB_PASSWORD", Value: "hunter3",
	})
	require.NoError(t, err)
	assert.NotEqual(t, secret.Value, reenc.Value)
	assert.True(t, reenc.IsSecret)

	revealed, err := env.vault.RevealVariable(ctx, secret.ID, owner.ID, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "hunter3", revealed)

	// IsSecret cannot be flipped on update
	still, err := env.vault.UpdateVariable(ctx, secret.ID, owner.ID, VariableInput{
		Key: "DB_PASSWORD", Value: "hunter4", IsSecret: false,
	})
	require.NoError(t, err)
	assert.True(t, still.IsSecret)
}

func TestUpdateVariableDuplicateKey(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "nick@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "app"})
	require.NoError(t, err)

	_, err = env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{Key: "A", Value: "1"})
	require.NoError(t, err)
	b, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{Key: "B", Value: "2"})
	require.NoError(t, err)

	_, err = env.vault.UpdateVariable(ctx, b.ID, owner.ID, VariableInput{Key: "A", Value: "2"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	// keeping its own key is not a conflict
	_, err = env.vault.UpdateVariable(ctx, b.ID, owner.ID, VariableInput{Key: "B", Value: "3"})
	assert.NoError(t, err)
}

func TestDeleteVariable(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "olivia@example.com").User
	other := env.register(t, "peggy@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "tmp"})
	require.NoError(t, err)
	variable, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{Key: "K", Value: "v"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.vault.DeleteVariable(ctx, variable.ID, other.ID, ClientInfo{}), common.ErrorNotFound)

	require.NoError(t, env.vault.DeleteVariable(ctx, variable.ID, owner.ID, ClientInfo{IP: "10.10.0.1"}))
	assert.Contains(t, env.logBuf.String(), audit.ActionVariableDeleted)

	rows, err := env.repos.Variables(env.db).ListByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteProjectRemovesVariables(t *testing.T) {
	env, ctx := newTestEnv(t)
	owner := env.register(t, "quinn@example.com").User

	project, err := env.vault.CreateProject(ctx, owner.ID, ProjectInput{Name: "doomed"})
	require.NoError(t, err)
	variable, err := env.vault.CreateVariable(ctx, project.ID, owner.ID, VariableInput{
		Key: "S", Value: "v", IsSecret: true,
	})
	require.NoError(t, err)

	require.NoError(t, env.vault.DeleteProject(ctx, project.ID, owner.ID, ClientInfo{}))

	_, err = env.repos.Variables(env.db).GetForOwner(ctx, variable.ID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
