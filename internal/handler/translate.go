package handler

import (
	"net/http"
	"strings"

	"chronolookup-api/internal/model"
	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/apierror"
	"chronolookup-api/pkg/response"
)

// TranslateHandler serves the name translation tool.
type TranslateHandler struct {
	translator *service.Translator
}

// NewTranslateHandler creates a translate handler.
func NewTranslateHandler(translator *service.Translator) *TranslateHandler {
	return &TranslateHandler{translator: translator}
}

func modeOf(raw string) (model.TranslateMode, *apierror.Error) {
	mode, err := model.ParseTranslateMode(raw)
	if err != nil {
		return "", apierror.ValidationError("invalid mode",
			apierror.FieldError{Field: "mode", Message: "must be ch-to-en or en-to-ch"})
	}
	return mode, nil
}

// Suggest handles GET /api/v1/translate/{kind}/suggest?mode=&q=
func (h *TranslateHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	mode, apiErr := modeOf(r.URL.Query().Get("mode"))
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	sess := sessionOf(r)
	rows, err := h.translator.Suggest(r.Context(), sess, kind, mode, r.URL.Query().Get("q"))
	if err != nil {
		response.Error(w, apierror.UpstreamError("name search failed"))
		return
	}

	response.JSONWithSession(w, http.StatusOK, rows, sess.ID())
}

type selectTranslationRequest struct {
	ID string `json:"id"`
}

// Select handles POST /api/v1/translate/{kind}/select
func (h *TranslateHandler) Select(w http.ResponseWriter, r *http.Request) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req selectTranslationRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		response.Error(w, apierror.ValidationError("id is required",
			apierror.FieldError{Field: "id", Message: "required"}))
		return
	}

	sess := sessionOf(r)
	sess.SelectTranslation(kind, id)
	response.JSONWithSession(w, http.StatusOK, map[string]interface{}{
		"kind": kind,
		"id":   id,
	}, sess.ID())
}

type translateRequest struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
	ID   string `json:"id"`
}

// Translate handles POST /api/v1/translate/{kind}
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	kind, apiErr := kindParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req translateRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	mode, apiErr := modeOf(req.Mode)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.Error(w, apierror.ValidationError("text is required",
			apierror.FieldError{Field: "text", Message: "required"}))
		return
	}

	sess := sessionOf(r)
	result := h.translator.Translate(r.Context(), sess, kind, mode, req.Text, strings.TrimSpace(req.ID))
	response.JSONWithSession(w, http.StatusOK, result, sess.ID())
}
