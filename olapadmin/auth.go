// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package olapadmin

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Named actions checked against the caller's permission set. The admin gate
// requires all three of the repository/security actions at once.
const (
	ActionRepositoryRead     = "repository.read"
	ActionRepositoryCreate   = "repository.create"
	ActionAdministerSecurity = "security.administer"
)

// Caller is the authenticated principal behind one request.
type Caller struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
}

// IsAllowed reports whether the caller holds the named permission.
func (c *Caller) IsAllowed(action string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == action {
			return true
		}
	}
	return false
}

// CanAdminister reports whether the caller may perform mutating or download
// operations. All three actions must hold; absence of any one denies.
func (c *Caller) CanAdminister() bool {
	return c.IsAllowed(ActionRepositoryRead) &&
		c.IsAllowed(ActionRepositoryCreate) &&
		c.IsAllowed(ActionAdministerSecurity)
}

// Authenticator validates bearer tokens into Callers.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator around an HS256 signing secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// CallerFromRequest extracts and validates the bearer token on a request.
// Requests without an Authorization header resolve to an anonymous caller
// with no permissions; read-only endpoints accept that, gated ones do not.
func (a *Authenticator) CallerFromRequest(r *http.Request) (*Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return &Caller{ID: "anonymous"}, nil
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return nil, fmt.Errorf("malformed authorization header")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	caller := &Caller{
		ID:          getClaimString(claims, "sub"),
		Name:        getClaimString(claims, "name"),
		Permissions: getClaimStringArray(claims, "permissions"),
	}
	if caller.ID == "" {
		caller.ID = "unknown"
	}
	return caller, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getClaimStringArray(claims jwt.MapClaims, key string) []string {
	if val, ok := claims[key].(string); ok {
		if val == "" {
			return []string{}
		}
		return strings.Split(val, ",")
	}
	return []string{}
}
