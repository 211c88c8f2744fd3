package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "bingo"

// ErrInvalidCookie подпись cookie не проверяется ни одним секретом или срок истек
var ErrInvalidCookie = errors.New("invalid session cookie")

// cookieClaims содержимое подписанной cookie сессии
type cookieClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieCodec подписывает идентификатор сессии (HS256).
// Подписывает первым секретом, при проверке принимает любой из списка
type CookieCodec struct {
	now     func() time.Time
	secrets [][]byte
}

// NewCookieCodec создает codec; пустой список секретов недопустим
func NewCookieCodec(secrets []string) (*CookieCodec, error) {
	if len(secrets) == 0 {
		return nil, errors.New("at least one session secret is required")
	}

	keys := make([][]byte, 0, len(secrets))
	for i, s := range secrets {
		if s == "" {
			return nil, fmt.Errorf("session secret #%d is empty", i)
		}
		keys = append(keys, []byte(s))
	}

	return &CookieCodec{secrets: keys, now: time.Now}, nil
}

// Encode возвращает значение cookie для sid
func (c *CookieCodec) Encode(sid string, expire time.Time) (string, error) {
	now := c.now()
	claims := cookieClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expire),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	value, err := token.SignedString(c.secrets[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}

	return value, nil
}

// Decode проверяет подпись и возвращает sid
func (c *CookieCodec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidCookie
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	for _, secret := range c.secrets {
		claims := &cookieClaims{}
		_, err := parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err == nil && claims.SID != "" {
			return claims.SID, nil
		}
		// другой секрет поможет только при неверной подписи
		if err != nil && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
		}
	}

	return "", ErrInvalidCookie
}
