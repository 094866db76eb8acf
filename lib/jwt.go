package lib

import (
	"errors"
	"fmt"
	"net/http"
	"perfumery_server/structs"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignToken signs claims as an HS256 JWT
func SignToken(claims *structs.AuthClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   claims.Sub.String(),
		"email": claims.Email,
		"role":  claims.Role,
		"iat":   claims.Iat.Unix(),
		"exp":   claims.Exp.Unix(),
		"jti":   claims.Jti.String(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken parses and validates a JWT token string and returns the claims
func ParseToken(tokenStr string, secret string) (*structs.AuthClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		// Safely extract and validate claims
		subStr, ok := claims["sub"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: invalid sub claim", ErrInvalidToken)
		}

		sub, err := uuid.Parse(subStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid UUID in sub claim", ErrInvalidToken)
		}

		email, ok := claims["email"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: invalid email claim", ErrInvalidToken)
		}

		role, ok := claims["role"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: invalid role claim", ErrInvalidToken)
		}

		iat, ok := claims["iat"].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: invalid iat claim", ErrInvalidToken)
		}

		exp, ok := claims["exp"].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: invalid exp claim", ErrInvalidToken)
		}

		jtiStr, ok := claims["jti"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: invalid jti claim", ErrInvalidToken)
		}

		jti, err := uuid.Parse(jtiStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid UUID in jti claim", ErrInvalidToken)
		}

		return &structs.AuthClaims{
			Sub:   sub,
			Email: email,
			Role:  role,
			Iat:   time.Unix(int64(iat), 0),
			Exp:   time.Unix(int64(exp), 0),
			Jti:   jti,
		}, nil
	}
	return nil, ErrInvalidToken
}

// BearerToken returns the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrUnauthorized
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
