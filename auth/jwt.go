package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

// development secret for -mem runs and tests, replaced from config at startup
var (
	secretMu   sync.RWMutex
	hmacSecret = []byte("WjdwZUh2dWJGdFB1UWRybg==")
)

type ExpireTime int

const (
	AWeek   ExpireTime = 604800
	ADay    ExpireTime = 86400
	AnHour  ExpireTime = 3600
	AMinute ExpireTime = 60
)

const (
	CmdSession    = "Session"
	CmdOAuthState = "OAuthState"
)

var ErrInvalidToken = errors.New("invalid token")

func SetSecret(secret string) {
	if secret == "" {
		return
	}
	secretMu.Lock()
	hmacSecret = []byte(secret)
	secretMu.Unlock()
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return hmacSecret
}

// member must started with capital and contains ID
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Cmd   string `json:"cmd"`
	jwt.StandardClaims
}

func (c *Claims) GetUID() string {
	return c.ID
}

func (c *Claims) GetName() string {
	return c.Name
}

func (c *Claims) GetCmd() string {
	return c.Cmd
}

func (c *Claims) IsExpired() bool {
	return !c.VerifyExpiresAt(time.Now().Unix(), true)
}

// CreateJWTToken issues a session token for the signed-in identity.
func CreateJWTToken(id, name, email string, expired ExpireTime) (string, error) {
	return CreateJWTWithExpire(id, name, email, CmdSession, expired)
}

func CreateJWTWithExpire(id, name, email, cmd string, expired ExpireTime) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    id,
		Name:  name,
		Email: email,
		Cmd:   cmd,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Unix() + int64(expired),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
