package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var ErrInvalidInvite = errors.New("invalid room invite")

// InviteService issues signed invites to private rooms.
type InviteService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewInviteService returns an HS256 invite signer. A non-positive ttl uses DefaultInviteTTL.
func NewInviteService(secret, issuer string, ttl time.Duration) *InviteService {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	return &InviteService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs an invite for roomID.
func (s *InviteService) Issue(roomID string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", fmt.Errorf("invite service is not configured")
	}
	if roomID == "" {
		return "", fmt.Errorf("room id is required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"room": roomID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify accepts token only when it is a live invite for roomID.
func (s *InviteService) Verify(tokenString, roomID string) error {
	if s == nil || len(s.secret) == 0 {
		return fmt.Errorf("invite service is not configured")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInvite, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidInvite
	}
	if room, _ := claims["room"].(string); room != roomID {
		return fmt.Errorf("%w: issued for another room", ErrInvalidInvite)
	}
	return nil
}
