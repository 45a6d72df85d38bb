package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RescheduleTokens issues and verifies the signed tokens embedded in a
// patient's reschedule link. The token only proves which booking the link
// belongs to; the single-use rule is enforced by the slot metadata, since a
// stateless token cannot be burned.
type RescheduleTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewRescheduleTokens(secret string, ttl time.Duration) *RescheduleTokens {
	return &RescheduleTokens{secret: []byte(secret), ttl: ttl}
}

type rescheduleClaims struct {
	EventID string `json:"event_id"`
	jwt.RegisteredClaims
}

func (t *RescheduleTokens) Issue(eventID string) (string, error) {
	claims := rescheduleClaims{
		EventID: eventID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify returns the event id the token was issued for.
func (t *RescheduleTokens) Verify(tokenString string) (string, error) {
	var claims rescheduleClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.EventID == "" {
		return "", errors.New("invalid reschedule token")
	}
	return claims.EventID, nil
}
