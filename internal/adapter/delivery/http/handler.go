package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlinks/internal/entity"
	"github.com/vadimbarashkov/shortlinks/internal/metrics"
	"github.com/vadimbarashkov/shortlinks/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlMappingUseCase interface {
	ListMappings(ctx context.Context) ([]*entity.URLMapping, error)
	GetMapping(ctx context.Context, slug string) (*entity.URLMapping, error)
	CreateMapping(ctx context.Context, slug, targetURL string) (*entity.URLMapping, error)
	UpdateMapping(ctx context.Context, slug string, upd entity.URLMappingUpdate) (*entity.URLMapping, error)
	DeleteMapping(ctx context.Context, slug string) error
	ResolveSlug(ctx context.Context, slug string) (*entity.URLMapping, error)
}

type redirectObserver interface {
	ObserveRedirect(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveRedirect(string) {}

type urlMappingHandler struct {
	useCase   urlMappingUseCase
	validate  *validator.Validate
	redirects redirectObserver
}

func newURLMappingHandler(useCase urlMappingUseCase, validate *validator.Validate, redirects redirectObserver) *urlMappingHandler {
	return &urlMappingHandler{
		useCase:   useCase,
		validate:  validate,
		redirects: redirects,
	}
}

func (h *urlMappingHandler) listMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.useCase.ListMappings(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLMappingResponses(mappings))
}

func (h *urlMappingHandler) getMapping(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	mapping, err := h.useCase.GetMapping(r.Context(), slug)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLMappingResponse(mapping))
}

func (h *urlMappingHandler) createMapping(w http.ResponseWriter, r *http.Request) {
	var req createMappingRequest

	if err := decodeJSONStrict(r.Body, &req); err != nil {
		renderDecodeError(w, r, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return
	}

	mapping, err := h.useCase.CreateMapping(r.Context(), req.Slug, req.TargetURL)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toURLMappingResponse(mapping))
}

func (h *urlMappingHandler) updateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest

	if err := decodeJSONStrict(r.Body, &req); err != nil {
		renderDecodeError(w, r, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return
	}

	slug := chi.URLParam(r, "slug")

	mapping, err := h.useCase.UpdateMapping(r.Context(), slug, req.toEntity())
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLMappingResponse(mapping))
}

func (h *urlMappingHandler) deleteMapping(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.useCase.DeleteMapping(r.Context(), slug); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// redirect answers 302 to the mapping's target. Unknown and disabled slugs
// get a plain 404 so the two are indistinguishable to visitors.
func (h *urlMappingHandler) redirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	mapping, err := h.useCase.ResolveSlug(r.Context(), slug)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrMappingDisabled):
			h.redirects.ObserveRedirect(metrics.OutcomeDisabled)
			http.NotFound(w, r)
		case errors.Is(err, entity.ErrMappingNotFound):
			h.redirects.ObserveRedirect(metrics.OutcomeNotFound)
			http.NotFound(w, r)
		default:
			h.redirects.ObserveRedirect(metrics.OutcomeError)
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
		}
		return
	}

	h.redirects.ObserveRedirect(metrics.OutcomeRedirected)
	http.Redirect(w, r, mapping.TargetURL, http.StatusFound)
}

// decodeJSONStrict decodes a single JSON value and rejects fields the target does not declare.
func decodeJSONStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}

func renderDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)

	if errors.Is(err, io.EOF) {
		render.JSON(w, r, response.EmptyRequestBodyResponse)
		return
	}

	if field, ok := unknownField(err); ok {
		render.JSON(w, r, response.FieldErrorResponse(field, "this field cannot be set"))
		return
	}

	render.JSON(w, r, response.InvalidRequestBodyResponse)
}

// unknownField extracts the field name from encoding/json's DisallowUnknownFields error.
func unknownField(err error) (string, bool) {
	name, ok := strings.CutPrefix(err.Error(), "json: unknown field ")
	if !ok {
		return "", false
	}

	field, err := strconv.Unquote(name)
	if err != nil {
		return name, true
	}

	return field, true
}

// renderError maps use case errors to responses. Not found is an empty 404.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrMappingNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, entity.ErrInvalidSlug):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.FieldErrorResponse("slug", "invalid slug"))
	case errors.Is(err, entity.ErrInvalidTargetURL):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.FieldErrorResponse("targetURL", "invalid target url"))
	case errors.Is(err, entity.ErrSlugExists):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.FieldErrorResponse("slug", "slug already exists"))
	case errors.Is(err, entity.ErrSlugReserved):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.FieldErrorResponse("slug", "slug is reserved"))
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}
