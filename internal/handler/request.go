package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chronolookup-api/internal/middleware"
	"chronolookup-api/internal/model"
	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/apierror"
	"chronolookup-api/pkg/uid"
)

// maxBodyBytes bounds JSON request bodies. Cache imports use their own limit.
const maxBodyBytes = 1 << 20

func kindParam(r *http.Request) (model.Kind, *apierror.Error) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", apierror.NotFound("unknown collection")
	}
	return kind, nil
}

// sessionOf returns the request's session. Requests routed around the
// session middleware get a throwaway session.
func sessionOf(r *http.Request) *service.Session {
	if sess := middleware.SessionFrom(r.Context()); sess != nil {
		return sess
	}
	return service.NewSession(uid.New(), 0)
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst interface{}) *apierror.Error {
	defer r.Body.Close()

	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierror.BadRequest("invalid JSON")
}
