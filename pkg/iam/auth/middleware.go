package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/robypag/scentsmith/pkg/errx"
	"github.com/robypag/scentsmith/pkg/iam"
)

const userLocal = "user"

// Middleware authenticates requests and resolves the caller to an
// internal user record.
type Middleware struct {
	tokens *TokenService
	users  iam.UserStore
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(tokens *TokenService, users iam.UserStore) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Authenticate validates the bearer token and stores the resolved user
// in the request locals. The token is read from the Authorization
// header, or from the "token" query parameter for EventSource clients
// that cannot set headers.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return respondError(c, iam.Errors().New(iam.ErrUnauthorized))
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			return respondError(c, err)
		}

		user, err := m.users.ByEmail(c.UserContext(), claims.Email)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// UserFrom returns the authenticated user stored by Authenticate.
func UserFrom(c *fiber.Ctx) (*iam.User, bool) {
	user, ok := c.Locals(userLocal).(*iam.User)
	return user, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1]
		}
	}
	return c.Query("token")
}

func respondError(c *fiber.Ctx, err error) error {
	var appErr *errx.Error
	if errx.As(err, &appErr) {
		return c.Status(appErr.HTTPStatus).JSON(appErr)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
