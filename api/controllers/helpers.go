package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/premiumcity-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return actor.UserID, nil
}

func isAdmin(r *http.Request) bool {
	actor, ok := middleware.ActorFromContext(r.Context())
	return ok && actor.IsAdmin()
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
