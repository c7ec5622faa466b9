package rest

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/parklistmc/parklist/internal/model"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndSignIn(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "Owner@ParkList.test ")

	s.request().
		Post("/api/auth/sign-up/email").
		JSON(map[string]string{"name": "Again", "email": "owner@parklist.test", "password": "another password"}).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"error":"User already exists."}`).
		End()

	s.request().
		Post("/api/auth/sign-up/email").
		JSON(map[string]string{"name": "Short", "email": "short@parklist.test", "password": "short"}).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	s.request().
		Post("/api/auth/sign-in/email").
		JSON(map[string]string{"email": "owner@parklist.test", "password": "wrong password"}).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"Invalid email or password."}`).
		End()

	s.request().
		Post("/api/auth/sign-in/email").
		JSON(map[string]string{"email": "nobody@parklist.test", "password": "correct horse"}).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"Invalid email or password."}`).
		End()

	var res authResult
	s.request().
		Post("/api/auth/sign-in/email").
		JSON(map[string]string{"email": "OWNER@parklist.test", "password": "correct horse"}).
		Expect(t).
		Status(http.StatusOK).
		CookiePresent(sessionCookieName).
		End().
		JSON(&res)
	assert.Equal(t, "owner@parklist.test", res.User.Email)
	assert.NotEmpty(t, res.Token)
}

func TestSession(t *testing.T) {
	s := newTestServer(t)

	s.request().
		Get("/api/auth/session").
		Expect(t).
		Status(http.StatusOK).
		Body(`null`).
		End()

	token := s.signUp(t, "owner@parklist.test")

	var session model.SessionResponse
	s.request().
		Get("/api/auth/session").
		Cookie(sessionCookieName, token).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&session)
	assert.Equal(t, "owner@parklist.test", session.User.Email)
	assert.Greater(t, session.ExpiresAt, time.Now().Unix())

	s.request().
		Get("/api/auth/session").
		Header("Authorization", bearer("not-a-token")).
		Expect(t).
		Status(http.StatusOK).
		Body(`null`).
		End()
}

func TestSignOut(t *testing.T) {
	s := newTestServer(t)
	s.request().
		Post("/api/auth/sign-out").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"success":true}`).
		Cookies(apitest.NewCookie(sessionCookieName).Value("").MaxAge(-1)).
		End()
}

func TestExpiredSession(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "owner@parklist.test")
	user, err := s.store.UserByEmail(t.Context(), "owner@parklist.test")
	require.NoError(t, err)

	s.api.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := s.api.createToken(user.ID.String())
	require.NoError(t, err)
	s.api.now = time.Now

	s.request().
		Get("/api/me/servers").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"Session expired"}`).
		End()
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "owner@parklist.test")

	const accepted = `{"status":true,"message":"If the account exists, a reset link has been sent."}`

	s.request().
		Post("/api/auth/forget-password").
		JSON(map[string]string{"email": "nobody@parklist.test"}).
		Expect(t).
		Status(http.StatusOK).
		Body(accepted).
		End()
	assert.Empty(t, s.mailer.sent)

	s.request().
		Post("/api/auth/forget-password").
		JSON(map[string]string{"email": "owner@parklist.test", "redirectTo": "/account/reset"}).
		Expect(t).
		Status(http.StatusOK).
		Body(accepted).
		End()

	mail := s.mailer.last(t)
	assert.Equal(t, "owner@parklist.test", mail.recipient)
	assert.Equal(t, resetTemplate, mail.template)
	link, _ := mail.data["url"].(string)
	assert.True(t, strings.HasPrefix(link, "http://parklist.test/account/reset?token="), link)
	token := tokenFromLink(t, link)

	s.request().
		Post("/api/auth/reset-password").
		JSON(map[string]string{"token": token, "newPassword": "a brand new secret"}).
		Expect(t).
		Status(http.StatusOK).
		End()

	s.request().
		Post("/api/auth/reset-password").
		JSON(map[string]string{"token": token, "newPassword": "yet another secret"}).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Invalid or expired token."}`).
		End()

	s.request().
		Post("/api/auth/sign-in/email").
		JSON(map[string]string{"email": "owner@parklist.test", "password": "correct horse"}).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	s.request().
		Post("/api/auth/sign-in/email").
		JSON(map[string]string{"email": "owner@parklist.test", "password": "a brand new secret"}).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestSocialSignIn(t *testing.T) {
	s := newTestServer(t)

	s.request().
		Get("/api/auth/sign-in/github").
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"error":"Unknown sign-in provider."}`).
		End()

	// discord has no credentials in the test config
	s.request().
		Get("/api/auth/sign-in/discord").
		Expect(t).
		Status(http.StatusNotFound).
		End()

	res := s.request().
		Get("/api/auth/sign-in/google").
		Query("callbackUrl", "/dashboard/servers").
		Expect(t).
		Status(http.StatusFound).
		CookiePresent(oauthStateCookieName).
		End()

	location, err := url.Parse(res.Response.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", location.Host)
	assert.Equal(t, "http://parklist.test/api/auth/callback/google", location.Query().Get("redirect_uri"))

	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var cookie *http.Cookie
	for _, c := range res.Response.Cookies() {
		if c.Name == oauthStateCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, state+"|/dashboard/servers", cookie.Value)
}

func TestSocialCallbackRejectsBadState(t *testing.T) {
	s := newTestServer(t)

	s.request().
		Get("/api/auth/callback/google").
		Query("state", "abc").
		Query("code", "xyz").
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Invalid sign-in state."}`).
		End()

	s.request().
		Get("/api/auth/callback/google").
		Query("state", "abc").
		Query("code", "xyz").
		Cookie(oauthStateCookieName, "def|/dashboard").
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Invalid sign-in state."}`).
		End()

	s.request().
		Get("/api/auth/callback/google").
		Query("state", "abc").
		Cookie(oauthStateCookieName, "abc|/dashboard").
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Missing authorization code."}`).
		End()
}

func TestSocialSignInHelperLinksAccounts(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "owner@parklist.test")

	profile := model.SocialProfile{
		Provider:      providerDiscord,
		ID:            "1234",
		Email:         "Owner@parklist.test",
		EmailVerified: true,
		Name:          "Owner",
	}
	first, status, _, err := s.api.SocialSignInHelper(t.Context(), profile)
	require.NoError(t, err)
	assert.Equal(t, "success", status)
	assert.Equal(t, "owner@parklist.test", first.User.Email)

	// the linked account wins even if the provider email changes
	profile.Email = "changed@parklist.test"
	second, _, _, err := s.api.SocialSignInHelper(t.Context(), profile)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	fresh, _, _, err := s.api.SocialSignInHelper(t.Context(), model.SocialProfile{
		Provider: providerGoogle,
		ID:       "g-1",
		Email:    "new@parklist.test",
		Name:     "Newcomer",
		Image:    "https://images.test/me.png",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.User.ID, fresh.User.ID)
	require.NotNil(t, fresh.User.Image)

	_, status, message, err := s.api.SocialSignInHelper(t.Context(), model.SocialProfile{Provider: providerMicrosoft, ID: "m-1"})
	assert.ErrorIs(t, err, errNoProviderEmail)
	assert.Equal(t, "bad-request-body", status)
	assert.Equal(t, "Your account did not share an email address.", message)
}

func TestSocialSignInHelperRefusesUnverifiedEmail(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "victim@parklist.test")
	victim, err := s.store.UserByEmail(t.Context(), "victim@parklist.test")
	require.NoError(t, err)

	tests := []struct {
		name    string
		profile model.SocialProfile
	}{
		{"discord unverified", model.SocialProfile{Provider: providerDiscord, ID: "attacker-1", Email: "Victim@parklist.test", Name: "Attacker"}},
		{"microsoft without verification", model.SocialProfile{Provider: providerMicrosoft, ID: "attacker-2", Email: "victim@parklist.test", Name: "Attacker"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, status, _, err := s.api.SocialSignInHelper(t.Context(), tt.profile)
			assert.ErrorIs(t, err, errAccountNotLinked)
			assert.Equal(t, "conflict", status)
			assert.Empty(t, res.Token)
			assert.NotEqual(t, victim.ID.String(), res.User.ID)

			_, err = s.store.AccountByProvider(t.Context(), tt.profile.Provider, tt.profile.ID)
			assert.ErrorIs(t, err, model.ErrNotFound)
		})
	}

	// the victim can still link the same provider once it verifies the email
	verified := model.SocialProfile{Provider: providerDiscord, ID: "victim-1", Email: "victim@parklist.test", EmailVerified: true}
	res, _, _, err := s.api.SocialSignInHelper(t.Context(), verified)
	require.NoError(t, err)
	assert.Equal(t, victim.ID.String(), res.User.ID)
}
