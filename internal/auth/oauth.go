package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/sakif/code-reviewer/internal/model"
)

// Profile is the externally-verified identity a provider hands back after a
// successful OAuth exchange. It is the only thing the rest of the app ever
// sees of the provider — the access token never leaves this package.
type Profile struct {
	Email     string // Primary email — required, it's our natural key
	Name      string // Display name (login name when the provider has no display name)
	AvatarURL string // Profile picture URL
	Provider  string // model.ProviderGitHub or model.ProviderGoogle
}

// Provider wraps golang.org/x/oauth2 for one identity provider's
// Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. We redirect the user to the provider's authorization endpoint.
// 2. The user approves the request there.
// 3. The provider redirects back to our callback URL with a short-lived code.
// 4. We exchange the code for an access token (server-to-server, using the
//    client secret — the token never touches the browser).
// 5. We call the provider's user-info API for the profile.
type Provider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

// NewGitHubProvider creates a Provider for GitHub.
//
// Register an OAuth App at github.com/settings/developers; callbackURL must
// match the configured "Authorization callback URL" exactly.
//
// Scopes: "read:user" for the public profile, "user:email" for the address.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: model.ProviderGitHub,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
	}
}

// NewGoogleProvider creates a Provider for Google sign-in.
// Credentials come from a Google Cloud OAuth 2.0 client.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: model.ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// Name returns the provider's name as stored on user records.
func (p *Provider) Name() string { return p.name }

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random string we store in a cookie before redirecting; the
// callback verifies it matches. This prevents CSRF attacks where an attacker
// tricks a browser into completing an OAuth flow for the attacker's account.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// providerUser covers the union of the GitHub /user and Google userinfo
// response fields we care about. Each provider fills its own subset.
type providerUser struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Login     string `json:"login"`      // GitHub username
	AvatarURL string `json:"avatar_url"` // GitHub
	Picture   string `json:"picture"`    // Google
}

// Exchange completes the OAuth flow: trades the authorization code for a
// verified Profile. This is the core of the callback handler.
//
// Fails closed: a response with no email is rejected, because email is the
// key every later lookup and write depends on. (GitHub users can hide their
// email; they need to expose a public one to sign in here.)
func (p *Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code with %s: %w", p.name, err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling %s user API: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s user API returned status %d", p.name, resp.StatusCode)
	}

	var pu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&pu); err != nil {
		return nil, fmt.Errorf("auth: decoding %s user response: %w", p.name, err)
	}

	if pu.Email == "" {
		return nil, fmt.Errorf("auth: %s did not supply an email address", p.name)
	}

	name := pu.Name
	if name == "" {
		name = pu.Login
	}
	avatar := pu.AvatarURL
	if avatar == "" {
		avatar = pu.Picture
	}

	return &Profile{
		Email:     pu.Email,
		Name:      name,
		AvatarURL: avatar,
		Provider:  p.name,
	}, nil
}
