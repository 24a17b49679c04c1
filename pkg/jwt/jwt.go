package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// FormClaims: claims токена формы. LoadedAtMs фиксирует момент, когда форма
// стала интерактивной (iat в JWT хранится с точностью до секунды).
type FormClaims struct {
	SessionID  string `json:"sid"`
	LoadedAtMs int64  `json:"lat"`
	gojwt.RegisteredClaims
}

func (c *FormClaims) LoadedAt() time.Time {
	return time.UnixMilli(c.LoadedAtMs)
}

// Sign подписывает токен сессии формы (HS256)
func Sign(secret, issuer, sessionID string, loadedAt time.Time, ttl time.Duration) (string, error) {
	claims := FormClaims{
		SessionID:  sessionID,
		LoadedAtMs: loadedAt.UnixMilli(),
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionID,
			IssuedAt:  gojwt.NewNumericDate(loadedAt),
			ExpiresAt: gojwt.NewNumericDate(loadedAt.Add(ttl)),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия. now передается явно, чтобы
// проверку можно было выполнять с подменяемыми часами.
func Parse(secret, issuer, tokenString string, now time.Time) (*FormClaims, error) {
	claims := &FormClaims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		gojwt.WithIssuer(issuer),
		gojwt.WithTimeFunc(func() time.Time { return now }),
		gojwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.SessionID == "" || claims.LoadedAtMs == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
