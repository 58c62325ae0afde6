package voters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

const testTTL = time.Hour

func setupRedis(t *testing.T) (*miniredis.Miniredis, VoterService) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewVoterService(rdb, testTTL)
}

func TestIssueAndValidate(t *testing.T) {
	mr, svc := setupRedis(t)
	ctx := context.Background()

	session, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(sessionKeyPrefix+session.ID))
	assert.Equal(t, testTTL, mr.TTL(sessionKeyPrefix+session.ID))

	got, err := svc.Validate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestValidate_Expired(t *testing.T) {
	mr, svc := setupRedis(t)
	ctx := context.Background()

	session, err := svc.Issue(ctx)
	require.NoError(t, err)
	mr.FastForward(testTTL + time.Second)

	_, err = svc.Validate(ctx, session.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestValidate_MalformedToken(t *testing.T) {
	_, svc := setupRedis(t)
	_, err := svc.Validate(context.Background(), "not-a-uuid")
	assert.True(t, apperror.IsNotFound(err))
}

func serveWithVoter(t *testing.T, svc VoterService, cookie *http.Cookie) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	h := RequireVoter(svc, testTTL)(func(c echo.Context) error {
		seen = GetVoterID(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/change-requests/1/votes", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec, seen
}

func TestRequireVoter_IssuesCookie(t *testing.T) {
	_, svc := setupRedis(t)

	rec, voterID := serveWithVoter(t, svc, nil)
	require.NotEmpty(t, voterID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, voterID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
}

func TestRequireVoter_ReusesValidSession(t *testing.T) {
	_, svc := setupRedis(t)
	session, err := svc.Issue(context.Background())
	require.NoError(t, err)

	rec, voterID := serveWithVoter(t, svc, &http.Cookie{Name: CookieName, Value: session.ID})
	assert.Equal(t, session.ID, voterID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRequireVoter_ReplacesUnknownSession(t *testing.T) {
	_, svc := setupRedis(t)
	stale := "0b8e7c56-9d1f-4f0e-a7b3-5d6c2e1f4a90"

	rec, voterID := serveWithVoter(t, svc, &http.Cookie{Name: CookieName, Value: stale})
	assert.NotEqual(t, stale, voterID)
	assert.Len(t, rec.Result().Cookies(), 1)
}
