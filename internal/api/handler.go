package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/RichardoC/vischat/internal/chat"
	"github.com/RichardoC/vischat/internal/llm"
	"github.com/RichardoC/vischat/internal/models"
	"github.com/RichardoC/vischat/internal/session"
	"github.com/RichardoC/vischat/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	SessionCookie = "vischat_session"
	sessionKey    = "session"
)

// formOverhead is the room left in a message request for the text field and
// multipart framing on top of the image itself.
const formOverhead = 1 << 20

var errImageTooLarge = errors.New("uploaded image is too large")

type Handler struct {
	chat          *chat.Service
	sessions      *session.Manager
	logger        *zap.Logger
	title         string
	maxImageBytes int64
}

type Options struct {
	Title         string
	MaxImageBytes int64
}

func NewHandler(chatService *chat.Service, sessions *session.Manager, logger *zap.Logger, opts Options) *Handler {
	return &Handler{
		chat:          chatService,
		sessions:      sessions,
		logger:        logger,
		title:         opts.Title,
		maxImageBytes: opts.MaxImageBytes,
	}
}

type MessageResponse struct {
	Message *models.Message `json:"message,omitempty"`
	Warning string          `json:"warning,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

type ConfigResponse struct {
	Title         string `json:"title"`
	AllowImages   bool   `json:"allow_images"`
	MaxImageBytes int64  `json:"max_image_bytes"`
}

// RegisterRoutes registers the page and API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/config", h.GetConfig)
	api.GET("/messages", h.GetMessages, h.withSession)
	api.POST("/message", h.HandleMessage,
		middleware.BodyLimit(fmt.Sprintf("%dB", h.maxImageBytes+formOverhead)),
		h.withSession)
	api.POST("/clear", h.ClearConversation, h.withSession)
	api.POST("/session/end", h.EndSession)

	e.GET("/health", h.Health)
	e.StaticFS("/", web.FS())
}

// withSession resolves the visitor's session from its cookie, starting a new
// one when the cookie is missing or the session has ended.
func (h *Handler) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var s *session.Session
		if cookie, err := c.Cookie(SessionCookie); err == nil {
			s, _ = h.sessions.Get(c.Request().Context(), cookie.Value)
		}
		if s == nil {
			s = h.sessions.Create(c.Request().Context())
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(sessionKey, s)
		return next(c)
	}
}

func currentSession(c echo.Context) *session.Session {
	return c.Get(sessionKey).(*session.Session)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, ConfigResponse{
		Title:         h.title,
		AllowImages:   h.chat.AllowImages(),
		MaxImageBytes: h.maxImageBytes,
	})
}

func (h *Handler) GetMessages(c echo.Context) error {
	s := currentSession(c)
	s.Lock()
	defer s.Unlock()

	messages, err := s.Conversation.All(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get messages", zap.Error(err), zap.String("sessionID", s.ID))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Internal server error"})
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: messages})
}

// HandleMessage takes a multipart form with a "content" text field and an
// optional "image" file.
func (h *Handler) HandleMessage(c echo.Context) error {
	s := currentSession(c)

	in := llm.Input{Text: c.FormValue("content")}
	image, err := h.readImage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Warning: err.Error()})
	}
	in.Image = image

	s.Lock()
	defer s.Unlock()

	reply, err := h.chat.Send(c.Request().Context(), s.Conversation, in)
	var perr *llm.ProviderError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{Message: &reply})
	case errors.Is(err, llm.ErrEmptyTurn), errors.Is(err, llm.ErrImagesDisabled):
		return c.JSON(http.StatusBadRequest, MessageResponse{Warning: err.Error()})
	case errors.As(err, &perr):
		h.logger.Error("Failed to process message", zap.Error(err), zap.String("sessionID", s.ID))
		return c.JSON(http.StatusBadGateway, MessageResponse{
			Error: fmt.Sprintf("Error communicating with the model: %v", perr.Err),
		})
	default:
		h.logger.Error("Failed to process message", zap.Error(err), zap.String("sessionID", s.ID))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Internal server error"})
	}
}

func (h *Handler) readImage(c echo.Context) (*models.ImagePart, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	if fh.Size > h.maxImageBytes {
		return nil, errImageTooLarge
	}

	data, err := readFile(fh, h.maxImageBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	image, err := models.NewImagePart(data)
	if err != nil {
		return nil, models.ErrUnsupportedImage
	}
	return &image, nil
}

func readFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errImageTooLarge
	}
	return data, nil
}

func (h *Handler) ClearConversation(c echo.Context) error {
	s := currentSession(c)
	s.Lock()
	defer s.Unlock()

	if err := h.chat.Clear(c.Request().Context(), s.Conversation); err != nil {
		h.logger.Error("Failed to clear conversation", zap.Error(err), zap.String("sessionID", s.ID))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Error: "Internal server error"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) EndSession(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		h.sessions.End(c.Request().Context(), cookie.Value)
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

