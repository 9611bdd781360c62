package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pansearch/model"
)

// ErrEmptySecret 未配置签名密钥
var ErrEmptySecret = errors.New("jwt secret is empty")

// Claims 访问令牌声明
type Claims struct {
	jwt.RegisteredClaims
}

// TokenAuth 签发和校验 HS256 访问令牌
type TokenAuth struct {
	secret []byte
}

// NewTokenAuth 创建令牌工具
func NewTokenAuth(secret string) (*TokenAuth, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenAuth{secret: []byte(secret)}, nil
}

// GenerateToken 为 subject 签发有效期为 ttl 的令牌
func (a *TokenAuth) GenerateToken(subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseToken 校验令牌签名与有效期
func (a *TokenAuth) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("无效的令牌")
}

// AuthMiddleware 认证中间件，要求 Authorization: Bearer <token>
func AuthMiddleware(auth *TokenAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(401, "缺少认证令牌"))
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(401, "无效的认证格式"))
			return
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(401, "无效的认证令牌: "+err.Error()))
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
