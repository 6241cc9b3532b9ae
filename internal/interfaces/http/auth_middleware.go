package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventory-engine/internal/application/dto"
	"github.com/jhoicas/inventory-engine/pkg/jwt"
)

// LocalUserID key de Fiber Locals para el usuario autenticado.
const LocalUserID = "user_id"

// AuthMiddleware exige un Bearer Token JWT válido y guarda el UserID en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		return authenticate(c, jwtSecret)
	}
}

// OptionalAuth valida el token solo si viene. Sin header la petición sigue como anónima;
// un token presente pero inválido se rechaza igual que en AuthMiddleware.
func OptionalAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" || jwtSecret == "" {
			return c.Next()
		}
		return authenticate(c, jwtSecret)
	}
}

func authenticate(c *fiber.Ctx, jwtSecret string) error {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
	}
	userID, err := jwt.Parse(jwtSecret, tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
	}
	c.Locals(LocalUserID, userID)
	return c.Next()
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth), o "" si es anónimo.
func GetUserID(c *fiber.Ctx) string {
	v := c.Locals(LocalUserID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
