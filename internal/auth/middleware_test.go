package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	apperrors "github.com/jionu102/codeit-image-post-auth/pkg/util/errorutil"
)

type stubResolver struct {
	rec domain.SessionRecord
	err error
}

func (s stubResolver) Resolve(context.Context, string) (domain.SessionRecord, error) {
	return s.rec, s.err
}

func newMiddlewareApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error {
		id, ok := IdentityFromCtx(c)
		fromCtx, _ := IdentityFrom(c.UserContext())
		return c.JSON(fiber.Map{"ok": ok, "subject": id.Subject, "role": id.Role, "ctxSubject": fromCtx.Subject})
	})
	app.Get("/", handlers...)
	return app
}

func call(t *testing.T, app *fiber.App, header, value string) (int, map[string]any, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body, resp.Header.Get(fiber.HeaderSetCookie)
}

func TestBearer_PopulatesIdentity(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Now()})
	a := NewAuthenticator(codec, zap.NewNop(), false)
	app := newMiddlewareApp(a.Bearer())

	token, err := codec.Issue("alice", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	status, body, _ := call(t, app, fiber.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "alice", body["subject"])
	assert.Equal(t, "alice", body["ctxSubject"])
	assert.Equal(t, "ADMIN", body["role"])
}

func TestBearer_FailuresStayAnonymous(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)
	a := NewAuthenticator(codec, zap.NewNop(), false)
	app := newMiddlewareApp(a.Bearer())

	expired, err := codec.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer garbage", "Bearer " + expired} {
		status, body, _ := call(t, app, fiber.HeaderAuthorization, header)
		assert.Equal(t, fiber.StatusOK, status, header)
		assert.Equal(t, false, body["ok"], header)
	}
}

func TestSession_Outcomes(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Now()})
	a := NewAuthenticator(codec, zap.NewNop(), false)

	live := domain.SessionRecord{ID: "s1", PrincipalID: "p1", Username: "bob", Role: domain.RoleUser, State: domain.SessionStateActive}

	tests := []struct {
		name    string
		cookie  string
		res     stubResolver
		status  int
		code    string
		cleared bool
	}{
		{name: "no cookie", status: fiber.StatusOK},
		{name: "live", cookie: "s1", res: stubResolver{rec: live}, status: fiber.StatusOK},
		{name: "expired", cookie: "s1", res: stubResolver{err: domain.ErrSessionExpired}, status: fiber.StatusUnauthorized, code: apperrors.CodeSessionExpired, cleared: true},
		{name: "evicted", cookie: "s1", res: stubResolver{err: domain.ErrDuplicateLogin}, status: fiber.StatusUnauthorized, code: apperrors.CodeDuplicateLogin, cleared: true},
		{name: "store down", cookie: "s1", res: stubResolver{err: errors.New("conn refused")}, status: fiber.StatusInternalServerError, code: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMiddlewareApp(a.Session(tt.res))
			header, value := "", ""
			if tt.cookie != "" {
				header, value = fiber.HeaderCookie, SessionCookie+"="+tt.cookie
			}
			status, body, setCookie := call(t, app, header, value)
			assert.Equal(t, tt.status, status)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
			if tt.cleared {
				assert.Contains(t, setCookie, SessionCookie+"=;")
			}
			if tt.name == "live" {
				assert.Equal(t, "bob", body["subject"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Now()})
	a := NewAuthenticator(codec, zap.NewNop(), false)
	app := newMiddlewareApp(a.Bearer(), RequireRole(domain.RoleAdmin))

	userToken, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := codec.Issue("root", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	status, _, _ := call(t, app, "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _, _ = call(t, app, fiber.HeaderAuthorization, "Bearer "+userToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, _ = call(t, app, fiber.HeaderAuthorization, "Bearer "+adminToken)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCredentialCookie(t *testing.T) {
	c := CredentialCookie(RefreshTokenCookie, "v", 14*24*time.Hour, true)
	assert.Equal(t, 1_209_600, c.MaxAge)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)

	session := CredentialCookie(SessionCookie, "v", 0, false)
	assert.True(t, session.SessionOnly)

	cleared := ClearedCookie(RefreshTokenCookie, false)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, "/", cleared.Path)
	assert.True(t, cleared.Expires.Before(time.Now()))
}
