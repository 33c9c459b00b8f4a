package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/crowdbounty/backend/internal/imageproxy"
	"github.com/crowdbounty/backend/internal/linkpreview"
	"github.com/crowdbounty/backend/internal/middleware"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBounties struct {
	createIn services.CreateBountyInput
	listUser string
	reviewer string
	err      error
}

func (s *stubBounties) CreateBounty(_ context.Context, in services.CreateBountyInput) (*models.Bounty, error) {
	s.createIn = in
	return &models.Bounty{ID: uuid.New(), CampaignAddress: in.CampaignAddress, Status: models.BountyStatusActive, MaxRecipients: 5}, nil
}

func (s *stubBounties) ListBounties(_ context.Context, _ string, userAddress string) ([]models.BountyWithImage, error) {
	s.listUser = userAddress
	return []models.BountyWithImage{}, nil
}

func (s *stubBounties) GetBounty(_ context.Context, id string) (*models.BountyWithImage, error) {
	return nil, apperr.NotFound("bounty not found")
}

func (s *stubBounties) ParticipateInBounty(_ context.Context, in services.ParticipateInput) (*models.BountyParticipation, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return &models.BountyParticipation{ID: uuid.New(), CreatorAddress: in.CreatorAddress, Status: models.ParticipationStatusPending}, 1, nil
}

func (s *stubBounties) ListParticipations(_ context.Context, _, actor string) ([]models.BountyParticipation, error) {
	s.reviewer = actor
	return nil, nil
}

func (s *stubBounties) ReviewParticipation(_ context.Context, _, actor, _ string) (*models.BountyParticipation, error) {
	s.reviewer = actor
	return nil, apperr.Forbidden("not allowed for role participant")
}

func (s *stubBounties) CompleteBounty(context.Context, string, string) (*models.Bounty, error) {
	return nil, errBoom
}

func (s *stubBounties) PreviewPromotionLinks(context.Context, string, string) ([]linkpreview.Preview, error) {
	return nil, nil
}

func (s *stubBounties) BountyHistory(context.Context, string, string, int) ([]models.AuditLog, error) {
	return nil, nil
}

var errBoom = errors.New("connection reset")

type stubMedia struct {
	err error
}

func (s *stubMedia) ResolveCampaignImage(context.Context, string) (*models.ImageRef, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ImageRef{ImageURL: "https://bucket.s3.amazonaws.com/a.png", SuggestProxy: true}, nil
}

func (s *stubMedia) SetCampaignImage(_ context.Context, _, creator, url string) (*models.ImageRef, error) {
	return &models.ImageRef{ImageURL: url}, nil
}

type stubProxy struct{}

func (stubProxy) Fetch(_ context.Context, rawURL string) (*imageproxy.Image, error) {
	if rawURL == "" {
		return nil, apperr.Validation("url is required")
	}
	if strings.Contains(rawURL, "slow") {
		return nil, apperr.Timeout("image request timed out")
	}
	if strings.Contains(rawURL, "gone") {
		return nil, apperr.Upstream(http.StatusNotFound, nil, "upstream returned 404")
	}
	return &imageproxy.Image{Body: []byte("GIF89a"), ContentType: "image/gif"}, nil
}

func (stubProxy) Probe(context.Context, string) (*imageproxy.ProbeResult, error) {
	return &imageproxy.ProbeResult{OK: true, Status: 200, ContentType: "image/png", ContentLength: 42, IsImage: true}, nil
}

type stubUploader struct {
	got services.UploadInput
}

func (s *stubUploader) Upload(_ context.Context, in services.UploadInput) (*services.UploadResult, error) {
	s.got = in
	return &services.UploadResult{URL: "data:image/png;base64,AA==", ContentType: "image/png", Size: len(in.Data)}, nil
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

func withAddress(address string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.CtxAddress, address)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCreateBountyEnvelope(t *testing.T) {
	stub := &stubBounties{}
	h := NewBountyHandler(stub, zap.NewNop())
	app := newTestApp()
	app.Post("/bounties/create", h.CreateBounty)

	status, body := doJSON(t, app, http.MethodPost, "/bounties/create", map[string]any{
		"campaignAddress": "0xABC",
		"creatorAddress":  "0xCREATOR",
		"depositAmount":   10,
		"platforms":       []string{"twitter"},
		"maxRecipients":   5,
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "bounty")

	require.NotNil(t, stub.createIn.DepositAmount)
	assert.Equal(t, "10", stub.createIn.DepositAmount.String())
	require.NotNil(t, stub.createIn.MaxRecipients)
	assert.Equal(t, 5, *stub.createIn.MaxRecipients)
}

func TestErrorEnvelope(t *testing.T) {
	stub := &stubBounties{err: apperr.Duplicate("already participated in this bounty")}
	h := NewBountyHandler(stub, zap.NewNop())
	app := newTestApp()
	app.Post("/bounties/participate", h.Participate)
	app.Get("/bounties/:id", h.GetBounty)
	app.Post("/bounties/:id/complete", h.CompleteBounty)

	status, body := doJSON(t, app, http.MethodPost, "/bounties/participate", map[string]any{"bountyId": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "already participated in this bounty", body["error"])
	assert.Equal(t, "duplicate", body["code"])
	assert.NotContains(t, body, "success")

	status, body = doJSON(t, app, http.MethodGet, "/bounties/123", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])

	status, body = doJSON(t, app, http.MethodPost, "/bounties/123/complete", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"], "internal details are not leaked")
	assert.Equal(t, "internal", body["code"])
}

func TestInvalidJSONBody(t *testing.T) {
	h := NewBountyHandler(&stubBounties{}, zap.NewNop())
	app := newTestApp()
	app.Post("/bounties/create", h.CreateBounty)

	req := httptest.NewRequest(http.MethodPost, "/bounties/create", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParticipateReturnsCount(t *testing.T) {
	h := NewBountyHandler(&stubBounties{}, zap.NewNop())
	app := newTestApp()
	app.Post("/bounties/participate", h.Participate)

	status, body := doJSON(t, app, http.MethodPost, "/bounties/participate", map[string]any{
		"bountyId":       uuid.NewString(),
		"creatorAddress": "0xP1",
		"platforms":      []string{"twitter"},
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), body["current_recipients"])
}

func TestListBountiesUsesSignedInWallet(t *testing.T) {
	stub := &stubBounties{}
	h := NewBountyHandler(stub, zap.NewNop())
	app := newTestApp()
	app.Get("/bounties/list", withAddress("0xme"), h.ListBounties)

	status, _ := doJSON(t, app, http.MethodGet, "/bounties/list", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0xme", stub.listUser)

	doJSON(t, app, http.MethodGet, "/bounties/list?userAddress=0xother", nil)
	assert.Equal(t, "0xother", stub.listUser)
}

func TestReviewPassesActor(t *testing.T) {
	stub := &stubBounties{}
	h := NewBountyHandler(stub, zap.NewNop())
	app := newTestApp()
	app.Patch("/bounties/participations/:id/status", withAddress("0xreviewer"), h.ReviewParticipation)

	status, body := doJSON(t, app, http.MethodPatch, "/bounties/participations/1/status", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["code"])
	assert.Equal(t, "0xreviewer", stub.reviewer)
}

func TestCampaignImage(t *testing.T) {
	media := &stubMedia{}
	h := NewMediaHandler(media, stubProxy{}, zap.NewNop())
	app := newTestApp()
	app.Get("/campaign-image/:campaignAddress", h.CampaignImage)

	status, body := doJSON(t, app, http.MethodGet, "/campaign-image/0xabc", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://bucket.s3.amazonaws.com/a.png", body["imageUrl"])
	assert.Equal(t, false, body["hasFile"])
	assert.Equal(t, true, body["suggestProxy"])

	media.err = apperr.RateLimited("too many requests for this campaign image")
	status, _ = doJSON(t, app, http.MethodGet, "/campaign-image/0xabc", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)

	media.err = apperr.NotFound("campaign image not found")
	status, _ = doJSON(t, app, http.MethodGet, "/campaign-image/0xNOIMAGE", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestImageProxy(t *testing.T) {
	h := NewMediaHandler(&stubMedia{}, stubProxy{}, zap.NewNop())
	app := newTestApp()
	app.Get("/image-proxy", h.ImageProxy)
	app.Get("/check-image-status", h.CheckImageStatus)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/image-proxy?url=https://img.example.com/a.gif", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
	assert.Equal(t, "GIF89a", string(body))

	tests := []struct {
		url    string
		status int
	}{
		{"", http.StatusBadRequest},
		{"https://slow.example.com/a.png", http.StatusRequestTimeout},
		{"https://gone.example.com/a.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/image-proxy?url="+tt.url, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.url)
	}

	status, out := doJSON(t, app, http.MethodGet, "/check-image-status?url=https://img.example.com/a.png", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["isImage"])
	assert.Equal(t, float64(42), out["contentLength"])
}

func TestUploadImageMultipart(t *testing.T) {
	up := &stubUploader{}
	h := NewUploadHandler(up, 1024, zap.NewNop())
	app := newTestApp()
	app.Post("/bounties/upload-image", h.UploadImage)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("campaignAddress", "0xabc"))
	require.NoError(t, w.WriteField("campaignName", "Solar"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/bounties/upload-image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "logo.png", up.got.Filename)
	assert.Equal(t, "0xabc", up.got.CampaignAddress)
	assert.Equal(t, "Solar", up.got.CampaignName)
	assert.Len(t, up.got.Data, 8)

	status, _ := doJSON(t, app, http.MethodPost, "/bounties/upload-image", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status, "missing file part")
}

func TestMetaPlatforms(t *testing.T) {
	app := newTestApp()
	app.Get("/meta/platforms", NewMetaHandler().GetPlatforms)

	status, body := doJSON(t, app, http.MethodGet, "/meta/platforms", nil)
	assert.Equal(t, http.StatusOK, status)
	platforms, ok := body["platforms"].([]any)
	require.True(t, ok)
	assert.Len(t, platforms, len(models.KnownPlatforms))
}

type recordingConn struct {
	messages [][]byte
}

func (r *recordingConn) WriteMessage(_ int, data []byte) error {
	r.messages = append(r.messages, data)
	return nil
}

func TestWSHubRouting(t *testing.T) {
	hub := NewWSHub(nil, nil, zap.NewNop())
	anon := &recordingConn{}
	alice := &recordingConn{}
	bob := &recordingConn{}
	hub.register("", anon)
	hub.register("0xalice", alice)
	hub.register("0xbob", bob)

	hub.dispatch(events.Event{Type: events.EventBountyCreated, Payload: map[string]any{"bounty_id": "b1"}})
	assert.Len(t, anon.messages, 1)
	assert.Len(t, alice.messages, 1)
	assert.Len(t, bob.messages, 1)

	hub.dispatch(events.Event{Type: events.EventParticipationReviewed, Payload: map[string]any{"creator_address": "0xalice"}})
	assert.Len(t, anon.messages, 1)
	assert.Len(t, alice.messages, 2)
	assert.Len(t, bob.messages, 1)

	var got events.Event
	require.NoError(t, json.Unmarshal(alice.messages[1], &got))
	assert.Equal(t, events.EventParticipationReviewed, got.Type)

	hub.unregister("0xalice", alice)
	hub.dispatch(events.Event{Type: events.EventParticipationReviewed, Payload: map[string]any{"creator_address": "0xalice"}})
	assert.Len(t, alice.messages, 2)
	assert.NotContains(t, hub.connections, "0xalice")
}
