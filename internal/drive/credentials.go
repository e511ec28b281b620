package drive

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Authorization errors
var (
	// ErrUnauthorized is returned for a 401 from the remote store
	ErrUnauthorized = errors.New("remote store rejected the access token")
	// ErrReauthenticate means the token could not be refreshed and the user must sign in again
	ErrReauthenticate = errors.New("authentication expired, sign in again")
)

// RefreshFunc obtains a new access token
type RefreshFunc func(ctx context.Context) (string, error)

// Credentials carries the access token of one request together with the way
// to refresh it. The token is refreshed at most once per Credentials.
type Credentials struct {
	mu          sync.Mutex
	accessToken string
	refresh     RefreshFunc
	refreshed   bool
}

// NewCredentials creates credentials. refresh may be nil when the token
// cannot be refreshed.
func NewCredentials(accessToken string, refresh RefreshFunc) *Credentials {
	return &Credentials{
		accessToken: accessToken,
		refresh:     refresh,
	}
}

// Token returns the current access token
func (c *Credentials) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// Do runs fn with the current token. If fn reports ErrUnauthorized the token
// is refreshed once and fn retried once; a second rejection, or a failed
// refresh, yields ErrReauthenticate.
func (c *Credentials) Do(ctx context.Context, fn func(token string) error) error {
	err := fn(c.Token())
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	token, rerr := c.refreshOnce(ctx)
	if rerr != nil {
		return rerr
	}

	err = fn(token)
	if errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrReauthenticate, err)
	}
	return err
}

func (c *Credentials) refreshOnce(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refresh == nil || c.refreshed {
		return "", ErrReauthenticate
	}
	c.refreshed = true

	token, err := c.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: token refresh failed: %v", ErrReauthenticate, err)
	}
	c.accessToken = token
	return token, nil
}
