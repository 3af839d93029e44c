package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// TelegramClient talks to the Telegram Bot API over HTTPS. It implements
// service.Notifier.
type TelegramClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramClient constructs a bot client. baseURL is normally
// https://api.telegram.org and is overridable for tests.
func NewTelegramClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts a plain text message to the chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "sendMessage")
}

// SendDocument uploads a document to the chat with a caption.
func (c *TelegramClient) SendDocument(ctx context.Context, chatID int64, filename string, document io.Reader, caption string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("write caption field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("create document part: %w", err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return fmt.Errorf("copy document content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), body)
	if err != nil {
		return fmt.Errorf("build sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, "sendDocument")
}

func (c *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *TelegramClient) do(req *http.Request, method string) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("%s rejected: %s", method, parsed.Description)
	}
	return nil
}

// NoopNotifier discards every delivery. Used when the bot channel is disabled.
type NoopNotifier struct{}

// SendMessage implements service.Notifier.
func (NoopNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	return nil
}

// SendDocument implements service.Notifier.
func (NoopNotifier) SendDocument(ctx context.Context, chatID int64, filename string, document io.Reader, caption string) error {
	return nil
}
