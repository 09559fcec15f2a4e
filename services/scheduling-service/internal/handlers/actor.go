package handlers

import (
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/vetclinic/libs/auth"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

var errUnauthenticated = errors.New("missing or invalid credentials")

// Gateway headers carrying the caller when the service sits behind the API gateway.
const (
	HeaderUserID         = "X-User-Id"
	HeaderRole           = "X-Role"
	HeaderPractitionerID = "X-Practitioner-Id"
)

// Authenticator turns a request into an Actor. With a Verifier set, the bearer token is
// required; otherwise the gateway headers are trusted.
type Authenticator struct {
	Verifier *auth.Verifier
}

func (a Authenticator) Actor(r *http.Request) (model.Actor, error) {
	if a.Verifier != nil {
		token, ok := auth.FromRequest(r)
		if !ok {
			return model.Actor{}, errUnauthenticated
		}
		claims, err := a.Verifier.Verify(r.Context(), token)
		if err != nil {
			return model.Actor{}, errUnauthenticated
		}
		actor, ok := model.NewActor(claims.Subject, claims.Role, claims.PractitionerID)
		if !ok {
			return model.Actor{}, errUnauthenticated
		}
		return actor, nil
	}

	actor, ok := model.NewActor(r.Header.Get(HeaderUserID), r.Header.Get(HeaderRole), r.Header.Get(HeaderPractitionerID))
	if !ok {
		return model.Actor{}, errUnauthenticated
	}
	return actor, nil
}
