package httpinterface

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
)

const bearerPrefix = "Bearer "

// NewWatcherToken returns a HS256 token signed with the watcher secret,
// valid for the given duration, or forever if ttl is zero.
func NewWatcherToken(secret, subject string, ttl time.Duration) (string, error) {
	if len(secret) <= 0 {
		return "", fmt.Errorf("missing watcher secret")
	}
	now := time.Now()
	claims := jwt.StandardClaims{
		IssuedAt: now.Unix(),
		Subject:  subject,
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// watcherAuth rejects the requests without a valid watcher token.
func watcherAuth(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := verifyWatcherToken(secret, r.Header.Get("Authorization"))
		if err != nil {
			log.WithError(err).Debugf("http: rejected %s %s", r.Method, r.URL.Path)
			writeError(w, errUnauthorized)
			return
		}
		log.Debugf("http: %s %s authorized for %s", r.Method, r.URL.Path, subject)
		next(w, r)
	}
}

func verifyWatcherToken(secret []byte, header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", fmt.Errorf("missing bearer token")
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(
		tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
