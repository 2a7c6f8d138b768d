package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"chronolookup-api/internal/model"
	"chronolookup-api/internal/retry"
	"chronolookup-api/internal/service"
	"chronolookup-api/internal/upstream"
	"chronolookup-api/pkg/apierror"
	"chronolookup-api/pkg/response"
)

// LookupHandler serves search, selection and detail requests for every kind.
type LookupHandler struct {
	search map[model.Kind]*service.SearchPipeline
	detail map[model.Kind]*service.DetailPipeline
}

// NewLookupHandler creates a lookup handler over the given pipelines.
func NewLookupHandler(search []*service.SearchPipeline, detail []*service.DetailPipeline) *LookupHandler {
	h := &LookupHandler{
		search: make(map[model.Kind]*service.SearchPipeline, len(search)),
		detail: make(map[model.Kind]*service.DetailPipeline, len(detail)),
	}
	for _, p := range search {
		h.search[p.Kind()] = p
	}
	for _, p := range detail {
		h.detail[p.Kind()] = p
	}
	return h
}

// Search handles GET /api/v1/{kind}/search?q=
func (h *LookupHandler) Search(w http.ResponseWriter, r *http.Request) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	p, ok := h.search[kind]
	if !ok {
		response.Error(w, apierror.NotFound("unknown collection"))
		return
	}

	sess := sessionOf(r)
	out, err := p.Search(r.Context(), sess, r.URL.Query().Get("q"))
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			response.Error(w, apierror.SearchFailed(""))
			return
		}
		response.Error(w, apierror.InternalError(""))
		return
	}

	response.JSONWithSession(w, http.StatusOK, out, sess.ID())
}

type selectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Select handles POST /api/v1/{kind}/select
func (h *LookupHandler) Select(w http.ResponseWriter, r *http.Request) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req selectRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	sess := sessionOf(r)
	id := strings.TrimSpace(req.ID)
	switch {
	case id != "":
		sess.Select(kind, id)
	case strings.TrimSpace(req.Name) != "":
		var ok bool
		id, ok = sess.SelectByName(kind, strings.TrimSpace(req.Name))
		if !ok {
			response.Error(w, apierror.NotFound("no suggestion with that name"))
			return
		}
	default:
		response.Error(w, apierror.ValidationError("id or name is required",
			apierror.FieldError{Field: "id", Message: "required without name"}))
		return
	}

	response.JSONWithSession(w, http.StatusOK, map[string]interface{}{
		"kind": kind,
		"id":   id,
	}, sess.ID())
}

type detailsRequest struct {
	ID string `json:"id"`
}

// Details handles POST /api/v1/{kind}/details. Without an id in the body the
// session's selection is fetched and cleared.
func (h *LookupHandler) Details(w http.ResponseWriter, r *http.Request) {
	p, apiErr := h.detailPipeline(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req detailsRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	sess := sessionOf(r)
	var (
		view *model.DetailView
		err  error
	)
	if strings.TrimSpace(req.ID) != "" {
		view, err = p.Fetch(r.Context(), sess, req.ID)
	} else {
		view, err = p.FetchSelected(r.Context(), sess)
	}
	if err != nil {
		response.Error(w, detailError(err))
		return
	}

	response.JSONWithSession(w, http.StatusOK, view, sess.ID())
}

// Get handles GET /api/v1/{kind}/{id}
func (h *LookupHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, apiErr := h.detailPipeline(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	sess := sessionOf(r)
	view, err := p.Fetch(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, detailError(err))
		return
	}

	response.JSONWithSession(w, http.StatusOK, view, sess.ID())
}

func (h *LookupHandler) detailPipeline(r *http.Request) (*service.DetailPipeline, *apierror.Error) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		return nil, apiErr
	}
	p, ok := h.detail[kind]
	if !ok {
		return nil, apierror.NotFound("unknown collection")
	}
	return p, nil
}

func detailError(err error) *apierror.Error {
	switch {
	case errors.Is(err, service.ErrNoSelection):
		return apierror.NoSelection("")
	case errors.Is(err, service.ErrInvalidID):
		return apierror.BadRequest("id is required")
	case upstream.IsNotFound(err):
		return apierror.NotFound("no entry with that id")
	default:
		return apierror.UpstreamError("")
	}
}
