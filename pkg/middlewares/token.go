package middlewares

import (
	"context"

	errprocess "recruit_chat_service/pkg/err"
	t_token "recruit_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// SessionValidator check the token still belongs to a live session
type SessionValidator interface {
	ValidateSession(ctx context.Context, memberID, token string) error
}

// JWTMiddleware validates the bearer credential and resolves it to a member id
func JWTMiddleware(sessions SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ExtractToken(c)
		if tokenStr == "" {
			return unauthorized(c, "missing token")
		}

		claims, err := t_token.ParseJWTWrapper(tokenStr)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		if sessions != nil {
			if err := sessions.ValidateSession(c.UserContext(), claims.MemberID, tokenStr); err != nil {
				return unauthorized(c, "session expired")
			}
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}

// ExtractToken read the credential from header, query or cookie in that order
func ExtractToken(c *fiber.Ctx) string {
	if tokenStr := t_token.BearerToken(c.Get(fiber.HeaderAuthorization)); tokenStr != "" {
		return tokenStr
	}
	if tokenStr := c.Query(QueryToken); tokenStr != "" {
		return tokenStr
	}
	return c.Cookies(CookieToken)
}

// MemberID member id resolved by JWTMiddleware
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    errprocess.CodeUnauthorized,
			"message": msg,
		},
	})
}
