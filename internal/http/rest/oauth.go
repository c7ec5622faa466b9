package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/parklistmc/parklist/config"
	"github.com/parklistmc/parklist/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	providerGoogle    = "google"
	providerDiscord   = "discord"
	providerMicrosoft = "microsoft"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

type profileFetcher func(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (model.SocialProfile, error)

type oauthProvider struct {
	name    string
	config  *oauth2.Config
	profile profileFetcher
}

// newOAuthProviders returns only the providers whose client id and secret
// are both configured.
func newOAuthProviders(cfg *config.Config) map[string]*oauthProvider {
	providers := map[string]*oauthProvider{}
	base := strings.TrimRight(cfg.BaseURL(), "/")

	add := func(name, id, secret string, endpoint oauth2.Endpoint, scopes []string, fetch profileFetcher) {
		if id == "" || secret == "" {
			return
		}
		providers[name] = &oauthProvider{
			name: name,
			config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: secret,
				RedirectURL:  base + "/api/auth/callback/" + name,
				Scopes:       scopes,
				Endpoint:     endpoint,
			},
			profile: fetch,
		}
	}

	add(providerGoogle, cfg.GoogleClientID, cfg.GoogleClientSecret, google.Endpoint,
		[]string{"openid", googleoauth.UserinfoEmailScope, googleoauth.UserinfoProfileScope}, googleProfile)
	add(providerDiscord, cfg.DiscordClientID, cfg.DiscordClientSecret, discordEndpoint,
		[]string{"identify", "email"}, discordProfile)
	add(providerMicrosoft, cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, microsoft.AzureADEndpoint(cfg.MicrosoftTenantID),
		[]string{"openid", "email", "profile", "User.Read"}, microsoftProfile)

	return providers
}

func googleProfile(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (model.SocialProfile, error) {
	svc, err := googleoauth.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
	if err != nil {
		return model.SocialProfile{}, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return model.SocialProfile{}, fmt.Errorf("failed to get user info: %w", err)
	}
	verified := info.VerifiedEmail != nil && *info.VerifiedEmail
	return model.SocialProfile{
		Provider:      providerGoogle,
		ID:            info.Id,
		Email:         info.Email,
		EmailVerified: verified,
		Name:          info.Name,
		Image:         info.Picture,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func discordProfile(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (model.SocialProfile, error) {
	var user struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
		Verified   bool   `json:"verified"`
		Avatar     string `json:"avatar"`
	}
	if err := getJSON(ctx, conf.Client(ctx, tok), "https://discord.com/api/users/@me", &user); err != nil {
		return model.SocialProfile{}, err
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	image := ""
	if user.Avatar != "" {
		image = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", user.ID, user.Avatar)
	}
	return model.SocialProfile{
		Provider:      providerDiscord,
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.Verified,
		Name:          name,
		Image:         image,
	}, nil
}

func microsoftProfile(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (model.SocialProfile, error) {
	var me struct {
		ID                string `json:"id"`
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := getJSON(ctx, conf.Client(ctx, tok), "https://graph.microsoft.com/v1.0/me", &me); err != nil {
		return model.SocialProfile{}, err
	}

	email := me.Mail
	if email == "" && strings.Contains(me.UserPrincipalName, "@") {
		email = me.UserPrincipalName
	}
	return model.SocialProfile{
		Provider: providerMicrosoft,
		ID:       me.ID,
		Email:    email,
		Name:     me.DisplayName,
	}, nil
}

var (
	errNoProviderEmail  = errors.New("provider did not share an email address")
	errAccountNotLinked = errors.New("provider email is not verified for an existing user")
)
