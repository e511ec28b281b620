package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ticket errors
var (
	ErrInvalidTicket = errors.New("invalid download ticket")
	ErrExpiredTicket = errors.New("download ticket has expired")
)

// DefaultTicketDuration is how long a download ticket stays valid
const DefaultTicketDuration = 15 * time.Minute

// TicketClaims binds a download ticket to one stored artifact
type TicketClaims struct {
	ArtifactID string `json:"artifact_id"`
	// FileName is the name offered to the browser
	FileName string `json:"file_name,omitempty"`
	jwt.RegisteredClaims
}

// TicketManager issues and checks signed download tickets
type TicketManager struct {
	secretKey      []byte
	ticketDuration time.Duration
	now            func() time.Time
}

// NewTicketManager creates a new ticket manager
func NewTicketManager(secretKey string, ticketDuration time.Duration) *TicketManager {
	if ticketDuration <= 0 {
		ticketDuration = DefaultTicketDuration
	}
	return &TicketManager{
		secretKey:      []byte(secretKey),
		ticketDuration: ticketDuration,
		now:            time.Now,
	}
}

// Issue signs a ticket for the artifact stored as artifactID
func (m *TicketManager) Issue(artifactID, fileName string) (string, error) {
	now := m.now()
	claims := TicketClaims{
		ArtifactID: artifactID,
		FileName:   fileName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   artifactID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ticketDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}
	return signed, nil
}

// Validate checks a ticket and that it was issued for artifactID
func (m *TicketManager) Validate(ticket, artifactID string) (*TicketClaims, error) {
	token, err := jwt.ParseWithClaims(
		ticket,
		&TicketClaims{},
		func(token *jwt.Token) (interface{}, error) {
			_, ok := token.Method.(*jwt.SigningMethodHMAC)
			if !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredTicket
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTicket
	}

	if claims.ArtifactID != artifactID {
		return nil, fmt.Errorf("%w: issued for another file", ErrInvalidTicket)
	}

	return claims, nil
}
