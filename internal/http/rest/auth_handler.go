package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/tracing"
	"github.com/parklistmc/parklist/util/values"
)

const (
	oauthStateCookieName = "parklist.oauth_state"
	oauthStateTTL        = 10 * time.Minute
)

var errOAuthState = errors.New("oauth state mismatch")

func (api *API) AuthRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/sign-up/email", Handler(api.SignUp))
	mux.Method(http.MethodPost, "/sign-in/email", Handler(api.SignIn))
	mux.Method(http.MethodPost, "/sign-out", Handler(api.SignOut))
	mux.Method(http.MethodGet, "/session", Handler(api.Session))
	mux.Method(http.MethodPost, "/forget-password", Handler(api.ForgetPassword))
	mux.Method(http.MethodPost, "/reset-password", Handler(api.ResetPassword))
	mux.Method(http.MethodGet, "/sign-in/{provider}", Handler(api.SocialSignIn))
	mux.Method(http.MethodGet, "/callback/{provider}", Handler(api.SocialCallback))
	return mux
}

func (api *API) SignUp(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.SignUpRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	session, status, message, err := api.SignUpHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	api.setSessionCookie(w, session.Token, session.expiresAt)

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       session,
	}
}

func (api *API) SignIn(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.SignInRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	session, status, message, err := api.SignInHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	api.setSessionCookie(w, session.Token, session.expiresAt)

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       session,
	}
}

func (api *API) SignOut(w http.ResponseWriter, _ *http.Request) *ServerResponse {
	api.clearSessionCookie(w)
	return &ServerResponse{
		Message:    "signed out",
		Status:     values.Success,
		StatusCode: http.StatusOK,
		Data:       map[string]bool{"success": true},
	}
}

// Session returns the signed-in user, or null when there is no valid session.
func (api *API) Session(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	claims, err := api.sessionClaims(r)
	if err != nil {
		return &ServerResponse{
			Message:    "no session",
			Status:     values.Success,
			StatusCode: http.StatusOK,
			Data:       json.RawMessage("null"),
		}
	}

	userID, _ := uuid.Parse(claims.UserID)
	session, status, message, err := api.SessionHelper(r.Context(), userID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	session.ExpiresAt = claims.Exp

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       session,
	}
}

func (api *API) ForgetPassword(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.ForgetPasswordRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	status, message, err := api.ForgetPasswordHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       map[string]interface{}{"status": true, "message": message},
	}
}

func (api *API) ResetPassword(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.ResetPasswordRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	status, message, err := api.ResetPasswordHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       map[string]bool{"status": true},
	}
}

// SocialSignIn redirects to the provider's consent page. The state and the
// post-login destination travel in a short-lived cookie.
func (api *API) SocialSignIn(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	provider, ok := api.providers[chi.URLParam(r, "provider")]
	if !ok {
		return respondWithError(nil, "Unknown sign-in provider.", values.NotFound, &tc)
	}

	state, err := util.RandomToken(16)
	if err != nil {
		return respondWithError(err, "Unable to start sign-in.", values.Error, &tc)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state + "|" + util.CallbackURLFromQuery(r.URL.Query()),
		Path:     "/api/auth",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   api.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.config.AuthCodeURL(state), http.StatusFound)
	return nil
}

func (api *API) SocialCallback(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	provider, ok := api.providers[chi.URLParam(r, "provider")]
	if !ok {
		return respondWithError(nil, "Unknown sign-in provider.", values.NotFound, &tc)
	}

	cookie, err := r.Cookie(oauthStateCookieName)
	if err != nil {
		return respondWithError(errOAuthState, "Invalid sign-in state.", values.BadRequestBody, &tc)
	}
	state, callbackURL, _ := strings.Cut(cookie.Value, "|")
	if state == "" || r.URL.Query().Get("state") != state {
		return respondWithError(errOAuthState, "Invalid sign-in state.", values.BadRequestBody, &tc)
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookieName, Path: "/api/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		return respondWithError(errOAuthState, "Missing authorization code.", values.BadRequestBody, &tc)
	}

	token, err := provider.config.Exchange(r.Context(), code)
	if err != nil {
		return respondWithError(err, "Unable to sign in.", values.NotAuthorised, &tc)
	}
	profile, err := provider.profile(r.Context(), provider.config, token)
	if err != nil {
		return respondWithError(err, "Unable to sign in.", values.Error, &tc)
	}

	session, status, message, err := api.SocialSignInHelper(r.Context(), profile)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	api.setSessionCookie(w, session.Token, session.expiresAt)

	http.Redirect(w, r, util.SafeCallbackURL(callbackURL), http.StatusFound)
	return nil
}
