package api

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fathima-sithara/sync-service/internal/apperr"
	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/service"
	"github.com/fathima-sithara/sync-service/internal/storage"
)

type Handlers struct {
	svc   *service.MessageService
	media *storage.S3Store // optional
}

func NewHandlers(svc *service.MessageService, media *storage.S3Store) *Handlers {
	return &Handlers{svc: svc, media: media}
}

func status(err error) int {
	switch {
	case apperr.IsPermission(err):
		return fiber.StatusForbidden
	case apperr.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrBadRequest):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(status(err)).JSON(fiber.Map{"error": err.Error()})
}

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverID string           `json:"receiver_id"`
		Content    string           `json:"content"`
		MediaURL   string           `json:"media_url"`
		MediaKind  domain.MediaKind `json:"media_kind"`
		ReplyToID  string           `json:"reply_to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	user := c.Locals("user_id").(string)

	var media *domain.MediaInput
	if req.MediaURL != "" {
		media = &domain.MediaInput{FileURL: req.MediaURL, Kind: req.MediaKind}
	}
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	id, err := h.svc.Send(ctx, user, req.ReceiverID, req.Content, req.ReplyToID, media)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "id": id})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	peer := c.Params("peer_id")
	msgs, err := h.svc.List(c.Context(), user, peer)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": msgs})
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	peer := c.Params("peer_id")
	if err := h.svc.MarkRead(c.Context(), user, peer); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) react(c *fiber.Ctx) error {
	var body struct {
		PeerID string `json:"peer_id"`
		Emoji  string `json:"emoji"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	user := c.Locals("user_id").(string)
	if err := h.svc.React(c.Context(), user, body.PeerID, c.Params("msg_id"), body.Emoji); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) unsendMessage(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	peer := c.Query("peer_id")
	if err := h.svc.Unsend(c.Context(), user, peer, c.Params("msg_id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) deleteConversation(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	peer := c.Params("peer_id")
	if err := h.svc.DeleteConversation(c.Context(), user, peer); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) setTranslation(c *fiber.Ctx) error {
	var body struct {
		PeerID  string `json:"peer_id"`
		Content string `json:"content"`
		Lang    string `json:"lang"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	user := c.Locals("user_id").(string)
	if err := h.svc.Translate(c.Context(), user, body.PeerID, c.Params("msg_id"), body.Content, body.Lang); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) mediaUploadURL(c *fiber.Ctx) error {
	if h.media == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "media storage not configured"})
	}
	var body struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := c.BodyParser(&body); err != nil || body.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	user := c.Locals("user_id").(string)
	key := path.Join("media", user, uuid.NewString()+"-"+body.Filename)

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	uploadURL, err := h.media.PresignUpload(ctx, key, body.ContentType, 15*time.Minute)
	if err != nil {
		return fail(c, err)
	}
	fileURL, err := h.media.FileURL(ctx, key, 24*time.Hour)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"upload_url": uploadURL, "file_url": fileURL})
}

// uploadMedia stores the file server-side for clients that cannot use the
// presigned PUT flow.
func (h *Handlers) uploadMedia(c *fiber.Ctx) error {
	if h.media == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "media storage not configured"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file field required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable file"})
	}
	defer f.Close()

	user := c.Locals("user_id").(string)
	key := path.Join("media", user, uuid.NewString()+"-"+fh.Filename)

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()
	fileURL, err := h.media.Upload(ctx, key, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"file_url": fileURL})
}

func (h *Handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
