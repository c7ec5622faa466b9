package rest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/values"
)

const (
	resetTokenBytes   = 32
	resetTokenTTL     = time.Hour
	resetPasswordPath = "/reset-password"
	resetTemplate     = "resetPassword.tmpl"
)

var errInvalidCredentials = errors.New("invalid credentials")

type TokenClaims struct {
	UserID string `json:"sub"`
	Type   string `json:"typ"`
	Exp    int64  `json:"exp"`
}

type authResult struct {
	Token string            `json:"token"`
	User  model.SessionUser `json:"user"`

	expiresAt time.Time
}

func sessionUser(u model.User) model.SessionUser {
	return model.SessionUser{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
	}
}

func (api *API) createToken(id string) (string, time.Time, error) {
	now := api.now()
	expiresAt := now.Add(api.Config.SessionExpires)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"typ": sessionTokenType,
	})

	tokenString, err := token.SignedString([]byte(api.Config.AuthSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (api *API) newSession(u model.User) (authResult, error) {
	token, expiresAt, err := api.createToken(u.ID.String())
	if err != nil {
		return authResult{}, err
	}
	return authResult{Token: token, User: sessionUser(u), expiresAt: expiresAt}, nil
}

func (api *API) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   api.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (api *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (api *API) SignUpHelper(ctx context.Context, req model.SignUpRequest) (authResult, string, string, error) {
	req.Email = normaliseEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := util.ValidateStruct(req); err != nil {
		return authResult{}, values.InvalidPayload, util.ValidationMessage(err), err
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		return authResult{}, values.Error, "Unable to create account.", err
	}

	now := api.now().UTC()
	user, err := api.Deps.Store.CreateUser(ctx, model.User{
		ID:           util.GenerateUUID(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return authResult{}, values.Conflict, "User already exists.", err
		}
		return authResult{}, values.Error, "Unable to create account.", err
	}

	session, err := api.newSession(user)
	if err != nil {
		return authResult{}, values.Error, "Unable to create session.", err
	}
	api.Logger.Info("user signed up", "user_id", user.ID)
	return session, values.Created, "account created", nil
}

func (api *API) SignInHelper(ctx context.Context, req model.SignInRequest) (authResult, string, string, error) {
	req.Email = normaliseEmail(req.Email)
	if err := util.ValidateStruct(req); err != nil {
		return authResult{}, values.InvalidPayload, util.ValidationMessage(err), err
	}

	user, err := api.Deps.Store.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return authResult{}, values.NotAuthorised, "Invalid email or password.", errInvalidCredentials
		}
		return authResult{}, values.Error, "Unable to sign in.", err
	}
	if user.PasswordHash == nil {
		return authResult{}, values.NotAuthorised, "Invalid email or password.", errInvalidCredentials
	}
	ok, err := util.VerifyPassword(*user.PasswordHash, req.Password)
	if err != nil {
		return authResult{}, values.Error, "Unable to sign in.", err
	}
	if !ok {
		return authResult{}, values.NotAuthorised, "Invalid email or password.", errInvalidCredentials
	}

	session, err := api.newSession(user)
	if err != nil {
		return authResult{}, values.Error, "Unable to create session.", err
	}
	return session, values.Success, "signed in", nil
}

// resetLink points at redirectTo when it is a local path, else at the
// default reset page.
func (api *API) resetLink(redirectTo, token string) string {
	path := resetPasswordPath
	if redirectTo != "" && util.SafeCallbackURL(redirectTo) == redirectTo {
		path = redirectTo
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return strings.TrimRight(api.Config.BaseURL(), "/") + path + sep + url.Values{"token": {token}}.Encode()
}

// ForgetPasswordHelper never reveals whether the address is registered.
func (api *API) ForgetPasswordHelper(ctx context.Context, req model.ForgetPasswordRequest) (string, string, error) {
	req.Email = normaliseEmail(req.Email)
	if err := util.ValidateStruct(req); err != nil {
		return values.InvalidPayload, util.ValidationMessage(err), err
	}
	const message = "If the account exists, a reset link has been sent."

	user, err := api.Deps.Store.UserByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrNotFound) {
		return values.Success, message, nil
	}
	if err != nil {
		return values.Error, "Unable to process request.", err
	}

	token, err := util.RandomToken(resetTokenBytes)
	if err != nil {
		return values.Error, "Unable to process request.", err
	}
	err = api.Deps.Store.CreatePasswordReset(ctx, model.PasswordReset{
		TokenHash: util.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: api.now().Add(resetTokenTTL).UTC(),
	})
	if err != nil {
		return values.Error, "Unable to process request.", err
	}

	data := map[string]interface{}{
		"name":        user.Name,
		"url":         api.resetLink(req.RedirectTo, token),
		"requestedAt": api.now().UTC(),
	}
	if err := api.Deps.Mailer.Send(user.Email, data, resetTemplate); err != nil {
		api.Logger.Error("failed to send reset email", "user_id", user.ID, "error", err)
	}
	return values.Success, message, nil
}

func (api *API) ResetPasswordHelper(ctx context.Context, req model.ResetPasswordRequest) (string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return values.InvalidPayload, util.ValidationMessage(err), err
	}

	userID, err := api.Deps.Store.ConsumePasswordReset(ctx, util.HashToken(req.Token), api.now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrResetInvalid) {
			return values.BadRequestBody, "Invalid or expired token.", err
		}
		return values.Error, "Unable to reset password.", err
	}

	hash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return values.Error, "Unable to reset password.", err
	}
	if err := api.Deps.Store.UpdatePassword(ctx, userID, hash); err != nil {
		return values.Error, "Unable to reset password.", err
	}
	api.Logger.Info("password reset", "user_id", userID)
	return values.Success, "password updated", nil
}

func (api *API) SessionHelper(ctx context.Context, userID uuid.UUID) (model.SessionResponse, string, string, error) {
	user, err := api.Deps.Store.UserByID(ctx, userID)
	if err != nil {
		return model.SessionResponse{}, values.NotAuthorised, "Unauthorized", err
	}
	return model.SessionResponse{User: sessionUser(user)}, values.Success, "session loaded", nil
}

// SocialSignInHelper finds the user linked to profile. An unknown provider
// account is linked to the user with the same email only when the provider
// verified that email; otherwise a new user is created for unseen emails.
func (api *API) SocialSignInHelper(ctx context.Context, profile model.SocialProfile) (authResult, string, string, error) {
	store := api.Deps.Store

	account, err := store.AccountByProvider(ctx, profile.Provider, profile.ID)
	switch {
	case err == nil:
		user, err := store.UserByID(ctx, account.UserID)
		if err != nil {
			return authResult{}, values.Error, "Unable to sign in.", err
		}
		return api.socialSession(user)
	case !errors.Is(err, model.ErrNotFound):
		return authResult{}, values.Error, "Unable to sign in.", err
	}

	email := normaliseEmail(profile.Email)
	if email == "" {
		return authResult{}, values.BadRequestBody, "Your account did not share an email address.", errNoProviderEmail
	}

	user, err := store.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrNotFound):
		now := api.now().UTC()
		var image *string
		if profile.Image != "" {
			image = &profile.Image
		}
		user, err = store.CreateUser(ctx, model.User{
			ID:            util.GenerateUUID(),
			Email:         email,
			Name:          profile.Name,
			EmailVerified: profile.EmailVerified,
			Image:         image,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return authResult{}, values.Error, "Unable to sign in.", err
		}
	case err != nil:
		return authResult{}, values.Error, "Unable to sign in.", err
	case !profile.EmailVerified:
		// only a provider-verified email may claim an existing user
		api.Logger.Warn("refused to link unverified social account", "provider", profile.Provider, "user_id", user.ID)
		return authResult{}, values.Conflict, "An account with this email already exists. Sign in with your password first.", errAccountNotLinked
	}

	err = store.CreateAccount(ctx, model.Account{
		ID:                util.NewID(),
		UserID:            user.ID,
		Provider:          profile.Provider,
		ProviderAccountID: profile.ID,
		CreatedAt:         api.now().UTC(),
	})
	if err != nil && !errors.Is(err, model.ErrAccountLinked) {
		return authResult{}, values.Error, "Unable to sign in.", err
	}
	api.Logger.Info("social account linked", "provider", profile.Provider, "user_id", user.ID)
	return api.socialSession(user)
}

func (api *API) socialSession(user model.User) (authResult, string, string, error) {
	session, err := api.newSession(user)
	if err != nil {
		return authResult{}, values.Error, "Unable to create session.", err
	}
	return session, values.Success, "signed in", nil
}
