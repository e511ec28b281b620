package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Google OAuth endpoints
const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// DefaultScopes grants read access to Drive content and the user profile
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token
var ErrNoRefreshToken = errors.New("no refresh token available")

// GoogleConfig contains the OAuth client settings
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// Endpoint overrides, used in tests
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Timeout     time.Duration
}

// UserInfo represents the signed-in Google user
type UserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture"`
}

// GoogleAuth handles Google OAuth authentication
type GoogleAuth struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// NewGoogleAuth creates a new GoogleAuth instance
func NewGoogleAuth(config GoogleConfig, logger *log.Logger) *GoogleAuth {
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes
	}
	if config.AuthURL == "" {
		config.AuthURL = GoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = GoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = GoogleUserInfoURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &GoogleAuth{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: config.UserInfoURL,
		httpClient:  &http.Client{Timeout: config.Timeout},
		logger:      logger,
	}
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google issue a refresh token on every login.
func (a *GoogleAuth) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for tokens
func (a *GoogleAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.oauth.Exchange(a.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	a.logger.Printf("Token exchange successful. Expires: %s, refresh token: %v",
		token.Expiry.Format(time.RFC3339), token.RefreshToken != "")
	return token, nil
}

// Refresh obtains a new access token from a refresh token
func (a *GoogleAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	source := a.oauth.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	a.logger.Printf("Access token refreshed")
	return token, nil
}

// UserInfo retrieves the profile of the token owner
func (a *GoogleAuth) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	client := oauth2.NewClient(a.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute user info request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d, body: %s", resp.StatusCode, string(body))
	}

	var userInfo UserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &userInfo, nil
}

// clientContext hands our HTTP client to the oauth2 package
func (a *GoogleAuth) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}
