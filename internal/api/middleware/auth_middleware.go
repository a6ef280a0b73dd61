package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/pkg/utils"
)

type AuthMiddleware struct {
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// AuthMiddleware guards the run trigger. With neither JOB_TOKEN nor
// JOB_SIGNING_KEY configured every request passes.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.cfg.JobToken == "" && m.cfg.JobSigningKey == "" {
			return c.Next()
		}

		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c)
		}

		if m.cfg.JobToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.cfg.JobToken)) == 1 {
			return c.Next()
		}

		if m.cfg.JobSigningKey != "" {
			claims, err := utils.ValidateToken(m.cfg.JobSigningKey, token)
			if err == nil {
				c.Locals("job_subject", claims.Subject)
				return c.Next()
			}
			log.Printf("Token validation failed: %v", err)
		}

		return unauthorized(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *fiber.Ctx) error {
	log.Printf("%v: %s %s", internaltypes.ErrUnauthorized, c.Method(), c.Path())
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}
