package jwttoken

import (
	"citation/internal/platform/middleware"
	"citation/pkg/domain"
)

// JWTServiceAdapter bridges JWTService to the middleware.TokenValidator
// interface without the middleware package importing jwt types.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		ActorID: claims.ActorID,
		Role:    domain.Role(claims.Role),
	}, nil
}
