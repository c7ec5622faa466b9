package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/tracing"
	"github.com/parklistmc/parklist/util/values"
)

const (
	sessionCookieName = "parklist.session_token"
	sessionTokenType  = "session"
)

var (
	errTokenExpired = errors.New("token expired")
	errNoSession    = errors.New("no session credential")
)

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = values.DefaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequestLogger logs one line per request. Client addresses are left out.
func (api *API) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		tc := tracing.FromContext(r.Context())
		api.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", tc.RequestID,
			"source", tc.RequestSource,
		)
	})
}

// RequireLogin rejects requests without a valid session for an existing user.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := api.sessionUserID(r)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "Session expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(util.WithUserID(r.Context(), userID)))
	})
}

// OptionalSession attaches the user id when a valid session is present and
// lets every request through.
func (api *API) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, err := api.sessionUserID(r); err == nil {
			r = r.WithContext(util.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (api *API) sessionUserID(r *http.Request) (string, error) {
	claims, err := api.sessionClaims(r)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// sessionClaims reads the session from the cookie or a Bearer header and
// confirms the user still exists.
func (api *API) sessionClaims(r *http.Request) (*TokenClaims, error) {
	token := ""
	if c, err := r.Cookie(sessionCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		authorization := strings.Split(r.Header.Get("Authorization"), " ")
		if len(authorization) == 2 && authorization[0] == "Bearer" {
			token = authorization[1]
		}
	}
	if token == "" {
		return nil, errNoSession
	}

	claims, err := api.verifyToken(token)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	dbCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := api.Deps.Store.UserByID(dbCtx, id); err != nil {
		return nil, err
	}
	return claims, nil
}

func (api *API) verifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(api.Config.AuthSecret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errTokenExpired
		}
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	if tokenType, _ := claims["typ"].(string); tokenType != sessionTokenType {
		return nil, fmt.Errorf("invalid token type")
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid user id")
	}
	exp, _ := claims["exp"].(float64)

	return &TokenClaims{
		UserID: userID,
		Type:   sessionTokenType,
		Exp:    int64(exp),
	}, nil
}
