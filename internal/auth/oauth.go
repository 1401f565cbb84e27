package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Identity is what the identity provider asserts about the signed-in user.
// Subject becomes the user id.
type Identity struct {
	Subject         string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// userInfo accepts both the OpenID Connect standard claim names and the
// snake_case names some providers use.
type userInfo struct {
	Sub             string `json:"sub"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	GivenName       string `json:"given_name"`
	LastName        string `json:"last_name"`
	FamilyName      string `json:"family_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Picture         string `json:"picture"`
}

// ProviderConfig describes an OAuth2 / OpenID Connect identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	CallbackURL  string
	Scopes       []string
}

// Provider runs the authorization code flow against one identity provider.
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewProvider creates a Provider from cfg.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthURL returns the URL to send the browser to. state must be echoed
// back on the callback and checked against the state cookie.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token and fetches
// the user's claims from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}

	if info.Sub == "" {
		return nil, errors.New("auth: userinfo response has no subject")
	}

	return &Identity{
		Subject:         info.Sub,
		Email:           info.Email,
		FirstName:       firstNonEmpty(info.FirstName, info.GivenName),
		LastName:        firstNonEmpty(info.LastName, info.FamilyName),
		ProfileImageURL: firstNonEmpty(info.ProfileImageURL, info.Picture),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
