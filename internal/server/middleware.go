package server

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BasicAuthFunc reports whether a username and password pair is authentic.
type BasicAuthFunc func(username, password string) bool

// FixedBasicAuthFunc authenticates a single fixed credential pair using
// constant-time comparison.
func FixedBasicAuthFunc(username, password string) BasicAuthFunc {
	return func(user, pass string) bool {
		return subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1 &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
	}
}

// WithBasicAuth authenticates every call upfront, before any sub-request
// executes. A failed authentication short-circuits the entire batch.
func WithBasicAuth(f BasicAuthFunc, realm string) fiber.Handler {
	safeRealm := strings.NewReplacer("\r", "", "\n", "", "\"", "").Replace(strings.TrimSpace(realm))

	return func(c *fiber.Ctx) error {
		if f == nil {
			return unauthorizedResponse(c, safeRealm)
		}

		auth := c.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return unauthorizedResponse(c, safeRealm)
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Basic" {
			return unauthorizedResponse(c, safeRealm)
		}

		cred, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return unauthorizedResponse(c, safeRealm)
		}

		pair := strings.SplitN(string(cred), ":", 2)
		if len(pair) != 2 {
			return unauthorizedResponse(c, safeRealm)
		}

		if f(pair[0], pair[1]) {
			return c.Next()
		}

		return unauthorizedResponse(c, safeRealm)
	}
}

func unauthorizedResponse(c *fiber.Ctx, realm string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+realm+`"`)

	return Unauthorized(c, "invalid_credentials",
		"The provided credentials are invalid. Please provide valid credentials and try again.")
}
