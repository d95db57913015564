package services_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/jobs"
	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/auth"
	"github.com/developlogy/sitebuilder/pkg/cache"
)

func authService(t *testing.T, f *fixture) (*services.AuthService, *jobRecorder) {
	t.Helper()
	rec := &jobRecorder{}
	store := cache.NewMemoryStore().WithClock(f.clock)
	return services.NewAuthService(f.users, store, rec, f.bus, "https://app.developlogy.test", f.clock), rec
}

func magicLink(t *testing.T, rec *jobRecorder) *jobs.SendMagicLink {
	t.Helper()
	job, ok := rec.last(t).(*jobs.SendMagicLink)
	require.True(t, ok)
	return job
}

func linkToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestAuth_RequestLinkSendsLinkAndCode(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)

	attempt, err := svc.RequestLink(context.Background(), "  Owner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, services.StateLinkSent, attempt.State)
	assert.Equal(t, "owner@example.com", attempt.Email)
	assert.Empty(t, attempt.CodeHash)

	job := magicLink(t, rec)
	assert.Equal(t, "owner@example.com", job.Email)
	assert.True(t, strings.HasPrefix(job.Link, "https://app.developlogy.test/auth/verify?token="))
	assert.Regexp(t, `^\d{6}$`, job.Code)

	claims, err := auth.ValidateToken(linkToken(t, job.Link), auth.PurposeMagicLink, attempt.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, claims.ID)
}

func TestAuth_RequestLinkRejectsBadEmail(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)

	var ve *models.ValidationError
	_, err := svc.RequestLink(context.Background(), "not an email")
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Empty(t, rec.jobs)
}

func TestAuth_VerifyTokenAuthenticatesOnce(t *testing.T) {
	f := newFixture(t)
	signedIn := f.record(services.EventUserSignedIn)
	svc, rec := authService(t, f)
	ctx := context.Background()

	attempt, err := svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)
	token := linkToken(t, magicLink(t, rec).Link)

	sess, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.User.ID)

	claims, err := auth.ValidateToken(sess.Token, auth.PurposeSession, sess.ExpiresAt.Add(-auth.SessionTTL))
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)

	stored, err := svc.Attempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, services.StateAuthenticated, stored.State)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, services.ErrLoginFailed)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	events := signedIn()
	require.Len(t, events, 1)
	assert.True(t, events[0].(services.SignedIn).New)
}

func TestAuth_SecondSignInReusesUser(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)
	ctx := context.Background()

	_, err := svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)
	first, err := svc.Verify(ctx, linkToken(t, magicLink(t, rec).Link))
	require.NoError(t, err)

	_, err = svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)
	second, err := svc.Verify(ctx, linkToken(t, magicLink(t, rec).Link))
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestAuth_VerifyCode(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)
	ctx := context.Background()

	attempt, err := svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)

	sess, err := svc.VerifyCode(ctx, attempt.ID, magicLink(t, rec).Code)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", sess.User.Email)
}

func TestAuth_WrongCodeFailsAttemptForGood(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)
	ctx := context.Background()

	attempt, err := svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)
	job := magicLink(t, rec)

	wrong := "000000"
	if job.Code == wrong {
		wrong = "111111"
	}
	_, err = svc.VerifyCode(ctx, attempt.ID, wrong)
	assert.ErrorIs(t, err, services.ErrLoginFailed)

	stored, err := svc.Attempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, services.StateFailed, stored.State)
	assert.Equal(t, "wrong code", stored.Reason)

	_, err = svc.VerifyCode(ctx, attempt.ID, job.Code)
	assert.ErrorIs(t, err, services.ErrLoginFailed)
	_, err = svc.Verify(ctx, linkToken(t, job.Link))
	assert.ErrorIs(t, err, services.ErrLoginFailed)
}

func TestAuth_RejectsForgedAndSessionTokens(t *testing.T) {
	f := newFixture(t)
	svc, _ := authService(t, f)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, services.ErrLoginFailed)

	session, _, err := auth.GenerateToken("user-1", "owner@example.com", base)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, session)
	assert.ErrorIs(t, err, services.ErrLoginFailed)
}

func TestAuth_SignOutRevokesSession(t *testing.T) {
	f := newFixture(t)
	svc, rec := authService(t, f)
	ctx := context.Background()

	_, err := svc.RequestLink(ctx, "owner@example.com")
	require.NoError(t, err)
	sess, err := svc.Verify(ctx, linkToken(t, magicLink(t, rec).Link))
	require.NoError(t, err)

	claims, err := auth.ValidateToken(sess.Token, auth.PurposeSession, sess.ExpiresAt.Add(-auth.SessionTTL))
	require.NoError(t, err)

	me, err := svc.CurrentUser(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, me.ID)

	assert.False(t, svc.IsRevoked(ctx, claims.ID))
	require.NoError(t, svc.SignOut(ctx, claims))
	assert.True(t, svc.IsRevoked(ctx, claims.ID))

	_, err = svc.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
