package rest

import (
	"net/http"
	"testing"

	deps "github.com/parklistmc/parklist/internal/debs"
	"github.com/parklistmc/parklist/internal/model"
	"github.com/parklistmc/parklist/util/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearer(token string) string {
	return "Bearer " + token
}

func (s *testServer) createListing(t *testing.T, token string, body map[string]interface{}) model.PublicListing {
	t.Helper()
	var listing model.PublicListing
	s.request().
		Post("/api/servers").
		Header("Authorization", bearer(token)).
		JSON(body).
		Expect(t).
		Status(http.StatusCreated).
		End().
		JSON(&listing)
	return listing
}

func skylineBody() map[string]interface{} {
	return map[string]interface{}{
		"name":        "Skyline Kingdom Park",
		"description": "Coasters, dark rides and a monorail.",
		"ipAddress":   "play.skyline.test",
		"tags":        []string{" coasters ", "", "family"},
	}
}

func TestCreateListingRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	s.request().
		Post("/api/servers").
		JSON(skylineBody()).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"Unauthorized"}`).
		End()
}

func TestCreateListingRequiredFields(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "owner@parklist.test")

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"blank name", "name", "   "},
		{"blank description", "description", ""},
		{"blank address", "ipAddress", " \t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := skylineBody()
			body[tt.field] = tt.value
			s.request().
				Post("/api/servers").
				Header("Authorization", bearer(token)).
				JSON(body).
				Expect(t).
				Status(http.StatusBadRequest).
				Body(`{"error":"Name, description, and IP address are required."}`).
				End()
		})
	}
}

func TestCreateListingRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "owner@parklist.test")
	s.request().
		Post("/api/servers").
		Header("Authorization", bearer(token)).
		Body(`{"name":`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"error":"Invalid JSON body."}`).
		End()
}

func TestCreateListingSlugs(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "owner@parklist.test")

	first := s.createListing(t, token, skylineBody())
	assert.Equal(t, "skyline-kingdom-park", first.Slug)
	assert.Equal(t, model.ListingPublished, first.Status)
	assert.Equal(t, []string{"coasters", "family"}, first.Tags)
	assert.Zero(t, first.VoteCount)

	second := s.createListing(t, token, skylineBody())
	assert.Equal(t, "skyline-kingdom-park-1", second.Slug)

	custom := skylineBody()
	custom["slug"] = "  Élan Park!! "
	third := s.createListing(t, token, custom)
	assert.Equal(t, "lan-park", third.Slug)
}

func TestListListingsHidesDrafts(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "owner@parklist.test")

	s.createListing(t, token, skylineBody())
	draft := skylineBody()
	draft["name"] = "Secret Park"
	draft["status"] = model.ListingDraft
	s.createListing(t, token, draft)

	var listings []model.PublicListing
	s.request().
		Get("/api/servers").
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&listings)
	require.Len(t, listings, 1)
	assert.Equal(t, "skyline-kingdom-park", listings[0].Slug)

	var mine []model.Listing
	s.request().
		Get("/api/me/servers").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&mine)
	assert.Len(t, mine, 2)
}

func TestGetListingDraftVisibility(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner@parklist.test")
	other := s.signUp(t, "visitor@parklist.test")

	draft := skylineBody()
	draft["status"] = model.ListingDraft
	s.createListing(t, owner, draft)

	s.request().
		Get("/api/servers/skyline-kingdom-park").
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"error":"Server not found."}`).
		End()

	s.request().
		Get("/api/servers/skyline-kingdom-park").
		Header("Authorization", bearer(other)).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	var listing model.Listing
	s.request().
		Get("/api/servers/skyline-kingdom-park").
		Header("Authorization", bearer(owner)).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&listing)
	assert.Equal(t, model.ListingDraft, listing.Status)
}

func TestUpdateListing(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner@parklist.test")
	other := s.signUp(t, "visitor@parklist.test")
	s.createListing(t, owner, skylineBody())

	s.request().
		Put("/api/servers/skyline-kingdom-park").
		Header("Authorization", bearer(other)).
		JSON(map[string]string{"name": "Hijacked"}).
		Expect(t).
		Status(http.StatusForbidden).
		Body(`{"error":"You do not own this server."}`).
		End()

	var updated model.Listing
	s.request().
		Put("/api/servers/skyline-kingdom-park").
		Header("Authorization", bearer(owner)).
		JSON(map[string]interface{}{"name": " Skyline Kingdom ", "region": "EU"}).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&updated)
	assert.Equal(t, "Skyline Kingdom", updated.Name)
	assert.Equal(t, "skyline-kingdom-park", updated.Slug)
	require.NotNil(t, updated.Region)
	assert.Equal(t, "EU", *updated.Region)

	s.request().
		Put("/api/servers/no-such-park").
		Header("Authorization", bearer(owner)).
		JSON(map[string]string{"name": "x"}).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestUploadBanner(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner@parklist.test")
	s.createListing(t, owner, skylineBody())

	var listing model.Listing
	s.request().
		Post("/api/servers/skyline-kingdom-park/banner").
		Header("Authorization", bearer(owner)).
		JSON(map[string]string{"source": "https://images.test/banner.png"}).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&listing)
	require.NotNil(t, listing.BannerURL)
	assert.Contains(t, *listing.BannerURL, "skyline-kingdom-park")

	s.request().
		Post("/api/servers/skyline-kingdom-park/banner").
		Header("Authorization", bearer(owner)).
		JSON(map[string]string{"source": "not a url"}).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestUploadBannerWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	s.api.Deps.Cloudinary = nilCloudinary()
	owner := s.signUp(t, "owner@parklist.test")
	s.createListing(t, owner, skylineBody())

	s.request().
		Post("/api/servers/skyline-kingdom-park/banner").
		Header("Authorization", bearer(owner)).
		JSON(map[string]string{"source": "https://images.test/banner.png"}).
		Expect(t).
		Status(http.StatusUnprocessableEntity).
		Body(`{"error":"Image uploads are not configured."}`).
		End()
}

func nilCloudinary() deps.BannerUploader {
	var c *storage.Cloudinary
	return c
}
