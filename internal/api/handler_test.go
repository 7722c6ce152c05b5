package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/logger"
	"github.com/fathima-sithara/sync-service/internal/service"
)

type stubRepo struct {
	senderID   string
	receiverID string
	content    string
	replyToID  string
	media      *domain.MediaInput
}

func (r *stubRepo) CreateMessage(ctx context.Context, senderID, receiverID, content, replyToID string, media *domain.MediaInput) (string, error) {
	r.senderID, r.receiverID, r.content, r.replyToID, r.media = senderID, receiverID, content, replyToID, media
	return "m1", nil
}

func (r *stubRepo) GetConversation(ctx context.Context, u1, u2 string) ([]*domain.Message, error) {
	return nil, nil
}
func (r *stubRepo) MarkRead(ctx context.Context, senderID, receiverID string) error    { return nil }
func (r *stubRepo) SoftDeleteMessage(ctx context.Context, messageID string) error      { return nil }
func (r *stubRepo) SoftDeleteConversation(ctx context.Context, u1, u2 string) error    { return nil }
func (r *stubRepo) UpsertReaction(ctx context.Context, messageID, userID, emoji string) error {
	return nil
}
func (r *stubRepo) SetTranslation(ctx context.Context, messageID, content, lang string) error {
	return nil
}

type stubSyncer struct{ keys []string }

func (s *stubSyncer) Request(key string) { s.keys = append(s.keys, key) }

// testApp mounts the handlers behind a stand-in for the auth middleware.
func testApp(h *Handlers) *fiber.App {
	app := fiber.New()
	asAlice := func(c *fiber.Ctx) error {
		c.Locals("user_id", "alice")
		return c.Next()
	}
	app.Post("/messages", asAlice, h.sendMessage)
	app.Post("/media/upload-url", asAlice, h.mediaUploadURL)
	app.Post("/media/upload", asAlice, h.uploadMedia)
	return app
}

func TestSendMessage_ThreadsReplyTo(t *testing.T) {
	repo := &stubRepo{}
	syncer := &stubSyncer{}
	svc := service.NewMessageService(repo, syncer, nil, nil, logger.Nop())
	app := testApp(NewHandlers(svc, nil))

	body := `{"receiver_id":"bob","content":"sure","reply_to":"m9"}`
	req := httptest.NewRequest("POST", "/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "m1", out["id"])

	assert.Equal(t, "alice", repo.senderID)
	assert.Equal(t, "bob", repo.receiverID)
	assert.Equal(t, "m9", repo.replyToID)
	assert.Equal(t, []string{domain.ConversationKey("alice", "bob")}, syncer.keys)
}

func TestMediaRoutes_UnavailableWithoutStorage(t *testing.T) {
	svc := service.NewMessageService(&stubRepo{}, &stubSyncer{}, nil, nil, logger.Nop())
	app := testApp(NewHandlers(svc, nil))

	for _, route := range []string{"/media/upload-url", "/media/upload"} {
		req := httptest.NewRequest("POST", route, strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, route)
	}
}
