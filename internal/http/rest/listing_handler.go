package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/tracing"
	"github.com/parklistmc/parklist/util/values"
)

func (api *API) ListingRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListListings))
	mux.With(api.RequireLogin).Method(http.MethodPost, "/", Handler(api.CreateListing))
	mux.With(api.OptionalSession).Method(http.MethodGet, "/{slug}", Handler(api.GetListing))
	mux.With(api.RequireLogin).Method(http.MethodPut, "/{slug}", Handler(api.UpdateListing))
	mux.With(api.RequireLogin).Method(http.MethodPost, "/{slug}/banner", Handler(api.UploadBanner))
	mux.With(api.OptionalSession).Method(http.MethodPost, "/{slug}/vote", Handler(api.Vote))
	return mux
}

func (api *API) ListListings(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	listings, status, message, err := api.ListPublishedHelper(r.Context())
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listings,
	}
}

func (api *API) CreateListing(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Unauthorized", values.NotAuthorised, &tc)
	}

	var req model.CreateListingRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	listing, status, message, err := api.CreateListingHelper(r.Context(), userID, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listing,
	}
}

func (api *API) GetListing(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	// anonymous viewers get uuid.Nil
	viewer, _ := util.GetUserIDFromContext(r.Context())

	listing, status, message, err := api.GetListingHelper(r.Context(), chi.URLParam(r, "slug"), viewer)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listing,
	}
}

func (api *API) UpdateListing(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Unauthorized", values.NotAuthorised, &tc)
	}

	var req model.UpdateListingRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	listing, status, message, err := api.UpdateListingHelper(r.Context(), chi.URLParam(r, "slug"), userID, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listing,
	}
}

func (api *API) UploadBanner(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil {
		return respondWithError(err, "Unauthorized", values.NotAuthorised, &tc)
	}

	var req model.BannerUploadRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "Invalid JSON body.", values.BadRequestBody, &tc)
	}

	listing, status, message, err := api.UploadBannerHelper(r.Context(), chi.URLParam(r, "slug"), userID, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listing,
	}
}

func (api *API) MyListings(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	userID, err := util.GetUserIDFromContext(r.Context())
	if err != nil || userID == uuid.Nil {
		return respondWithError(err, "Unauthorized", values.NotAuthorised, &tc)
	}

	listings, status, message, err := api.MyListingsHelper(r.Context(), userID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       listings,
	}
}
