package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const bearerPrefix = "Bearer "

var errAdminToken = errors.New("invalid admin token")

// adminGuard 校验 /-/ 接口的 Bearer JWT；secret 为空时不做鉴权。
func adminGuard(secret string, logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		if secret == "" || !isAdminPath(c.Path()) {
			return c.Next()
		}
		if err := verifyAdminToken(c.Get(fiber.HeaderAuthorization), []byte(secret)); err != nil {
			logger.WithFields(logrus.Fields{
				"action":     "admin_auth",
				"path":       c.Path(),
				"request_id": RequestID(c),
			}).WithError(err).Warn("admin_auth_rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

func verifyAdminToken(header string, secret []byte) error {
	if !strings.HasPrefix(header, bearerPrefix) {
		return errAdminToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return errAdminToken
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errAdminToken
	}
	return nil
}

// SignAdminToken 生成管理端令牌，供 CLI 与测试使用。
func SignAdminToken(secret, subject string) (string, error) {
	claims := jwt.RegisteredClaims{Subject: subject}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
