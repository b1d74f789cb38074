package auth

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when no authenticated identity is attached
// to the request context.
var ErrNoIdentity = errors.New("no authenticated user in context")

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(c echo.Context) (*Claims, error) {
	claims, ok := c.Get("user").(*Claims)
	if !ok {
		return nil, ErrNoIdentity
	}
	return claims, nil
}

// UserIDFromContext resolves the requester identifier from the validated
// token. Core operations receive this explicitly, never via globals.
func UserIDFromContext(c echo.Context) (uuid.UUID, error) {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrNoIdentity
	}
	return id, nil
}
