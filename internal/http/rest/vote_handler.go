package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/internal/vote"
	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/tracing"
	"github.com/parklistmc/parklist/util/values"
)

var rejectionResponses = map[vote.RejectionKind]struct{ status, message string }{
	vote.RejectIdentityUnresolved: {values.BadRequestBody, "Unable to identify the voter."},
	vote.RejectListingNotFound:    {values.NotFound, msgListingNotFound},
	vote.RejectCooldownActive:     {values.TooManyRequests, "You can vote once every 12 hours."},
}

// Vote admits one web vote for the listing named by slug. The body is
// optional; a username is forwarded to the server's Votifier listener.
func (api *API) Vote(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.VoteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := util.DecodeJSONBody(&tc, r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			return respondWithError(err, "Invalid request body.", values.InvalidPayload, &tc)
		}
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.InvalidPayload, &tc)
	}

	accountID := ""
	if id, err := util.GetUserIDFromContext(r.Context()); err == nil {
		accountID = id.String()
	}
	voter, err := api.Deps.Resolver.Resolve(accountID, r.Header)
	if err != nil {
		return api.voteRejected(err, &tc)
	}

	listing, err := api.Deps.Store.ListingBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return api.voteRejected(vote.ErrListingNotFound, &tc)
		}
		return respondWithError(err, "Unable to record vote.", values.Error, &tc)
	}

	accepted, err := api.Deps.Engine.Admit(r.Context(), vote.Request{
		ListingID: listing.ID,
		Voter:     voter,
		UserAgent: r.UserAgent(),
		Source:    model.VoteSourceWeb,
	})
	if err != nil {
		return api.voteRejected(err, &tc)
	}

	api.afterVote(r.Context(), listing, accepted, req.Username)

	return &ServerResponse{
		Message:    "vote recorded",
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       model.VoteResponse{OK: true, VoteID: accepted.ID},
	}
}

func (api *API) voteRejected(err error, tc *tracing.Context) *ServerResponse {
	if rej, ok := vote.AsRejection(err); ok {
		if resp, ok := rejectionResponses[rej.Kind]; ok {
			return respondWithError(err, resp.message, resp.status, tc)
		}
	}
	return respondWithError(err, "Unable to record vote.", values.Error, tc)
}

// afterVote publishes the new total to live viewers and forwards the vote to
// the game server. Neither affects the response.
func (api *API) afterVote(ctx context.Context, listing model.Listing, accepted model.Vote, username string) {
	count, err := api.Deps.Store.CountVotes(ctx, listing.ID)
	if err != nil {
		api.Logger.Warn("unable to count votes", "slug", listing.Slug, "error", err)
	} else {
		api.Deps.WebSocket.BroadcastVoteUpdate(model.VoteUpdate{
			Slug:      listing.Slug,
			VoteCount: count,
			At:        accepted.CreatedAt,
		})
	}

	if username != "" && listing.HasVotifier() {
		api.Deps.Votifier.Go(listing, username, accepted.CreatedAt)
	}
}
