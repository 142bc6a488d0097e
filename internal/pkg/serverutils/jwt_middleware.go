package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingToken = errors.New("missing token")

// TokenFromRequest reads the bearer token from the "token" query parameter
// (browsers can't set headers on websocket upgrades) or the Authorization
// header.
func TokenFromRequest(ctx *fiber.Ctx) string {
	if token := ctx.Query("token"); token != "" {
		return token
	}
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

// ParseSubject validates an HMAC-signed token and returns its user id, taken
// from the "user_id" claim or, failing that, "sub".
func ParseSubject(tokenStr, secret string) (string, error) {
	if tokenStr == "" {
		return "", ErrMissingToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token missing user_id")
	}
	return sub, nil
}

// JwtMiddleware rejects requests without a valid token and stores the user id
// in Locals("user_id"). An empty secret disables the check.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}
		userID, err := ParseSubject(TokenFromRequest(ctx), secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		ctx.Locals("user_id", userID)
		return ctx.Next()
	}
}
