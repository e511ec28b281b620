package session

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// Session cookie name constant to ensure consistency
const SessionCookieName = "drive_search_session"

// Session value keys
const (
	keyState        = "state"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiry       = "expiry"
	keyEmail        = "email"
	keyName         = "name"
)

// Errors
var (
	ErrNoStateFound = errors.New("no state found in session")
	ErrInvalidState = errors.New("invalid state parameter")
	ErrNoTokenFound = errors.New("no token found in session")
)

// Tokens are the Google credentials kept in the session
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// User is the signed-in user kept in the session
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionManager handles session operations
type SessionManager struct {
	logger *log.Logger
	store  *sessions.CookieStore
	maxAge int
}

// NewSessionManager creates a new session manager
func NewSessionManager(logger *log.Logger, store *sessions.CookieStore, maxAge int) *SessionManager {
	if maxAge <= 0 {
		maxAge = 3600
	}
	return &SessionManager{
		logger: logger,
		store:  store,
		maxAge: maxAge,
	}
}

// NewCookieStore creates the cookie store backing sessions. Secure cookies
// are required outside development.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// GenerateState generates a new state and stores it in the session
func (sm *SessionManager) GenerateState(c *gin.Context) (string, error) {
	session := sm.session(c)

	state := uuid.New().String()
	session.Values[keyState] = state

	if err := sm.save(c, session); err != nil {
		return "", err
	}
	return state, nil
}

// ValidateState checks the callback state against the session and clears it
func (sm *SessionManager) ValidateState(c *gin.Context, state string) error {
	session := sm.session(c)

	stored, ok := session.Values[keyState].(string)
	if !ok || stored == "" {
		sm.logger.Printf("No state found in session")
		return ErrNoStateFound
	}

	delete(session.Values, keyState)
	if err := sm.save(c, session); err != nil {
		sm.logger.Printf("Failed to save session after state cleanup: %v", err)
	}

	if state != stored {
		sm.logger.Printf("State mismatch")
		return ErrInvalidState
	}
	return nil
}

// StoreTokens stores the Google tokens and user in the session
func (sm *SessionManager) StoreTokens(c *gin.Context, tokens Tokens, user User) error {
	session := sm.session(c)

	session.Values[keyAccessToken] = tokens.AccessToken
	if tokens.RefreshToken != "" {
		session.Values[keyRefreshToken] = tokens.RefreshToken
	}
	session.Values[keyExpiry] = tokens.Expiry.Unix()
	session.Values[keyEmail] = user.Email
	session.Values[keyName] = user.Name

	return sm.save(c, session)
}

// UpdateAccessToken replaces the access token after a refresh
func (sm *SessionManager) UpdateAccessToken(c *gin.Context, accessToken string, expiry time.Time) error {
	session := sm.session(c)
	session.Values[keyAccessToken] = accessToken
	session.Values[keyExpiry] = expiry.Unix()
	return sm.save(c, session)
}

// Tokens retrieves the Google tokens from the session
func (sm *SessionManager) Tokens(c *gin.Context) (Tokens, error) {
	session := sm.session(c)

	access, _ := session.Values[keyAccessToken].(string)
	if access == "" {
		return Tokens{}, ErrNoTokenFound
	}

	tokens := Tokens{AccessToken: access}
	tokens.RefreshToken, _ = session.Values[keyRefreshToken].(string)
	if expiry, ok := session.Values[keyExpiry].(int64); ok && expiry > 0 {
		tokens.Expiry = time.Unix(expiry, 0)
	}
	return tokens, nil
}

// User retrieves the signed-in user from the session
func (sm *SessionManager) User(c *gin.Context) (User, error) {
	session := sm.session(c)

	if access, _ := session.Values[keyAccessToken].(string); access == "" {
		return User{}, ErrNoTokenFound
	}

	var user User
	user.Email, _ = session.Values[keyEmail].(string)
	user.Name, _ = session.Values[keyName].(string)
	return user, nil
}

// Clear removes the session cookie
func (sm *SessionManager) Clear(c *gin.Context) error {
	session := sm.session(c)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return sm.store.Save(c.Request, c.Writer, session)
}

// session returns the request session. An undecodable cookie yields a fresh one.
func (sm *SessionManager) session(c *gin.Context) *sessions.Session {
	session, err := sm.store.Get(c.Request, SessionCookieName)
	if err != nil {
		sm.logger.Printf("Error getting session, creating new one: %v", err)
		session = sessions.NewSession(sm.store, SessionCookieName)
		opts := *sm.store.Options
		session.Options = &opts
		session.IsNew = true
	}
	return session
}

func (sm *SessionManager) save(c *gin.Context, session *sessions.Session) error {
	session.Options.MaxAge = sm.maxAge
	if err := sm.store.Save(c.Request, c.Writer, session); err != nil {
		sm.logger.Printf("Failed to save session: %v", err)
		return err
	}
	return nil
}
