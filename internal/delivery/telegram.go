package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feed_poster/internal/domain"
)

// ErrSendFailed marks a send that exhausted its rate-limit retry budget or
// hit a non-retryable platform error. The caller logs it and moves on; the
// dedup gate decides whether the entry is ever attempted again.
var ErrSendFailed = errors.New("send failed")

// BotAPI is the slice of the Telegram client the delivery layer uses.
// *tgbotapi.BotAPI satisfies it.
type BotAPI interface {
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config holds delivery client configuration.
type Config struct {
	ChannelID      int64
	MaxAttempts    int
	InitialBackoff time.Duration
	PacingDelay    time.Duration
	// OperatorID receives cycle-level failure notifications; 0 disables them.
	OperatorID int64
}

// Client sends image batches to one fixed channel.
//
// Per attempt: a clean acknowledgment succeeds; a rate-limit signal backs off
// by max(current delay, server-advised delay), doubling on each subsequent
// hit, up to MaxAttempts; a timeout is ambiguous and reported as qualified
// success with no handle, never retried, so the channel cannot end up with
// duplicate posts; anything else fails the send.
type Client struct {
	api    BotAPI
	cfg    Config
	logger *slog.Logger
}

func New(api BotAPI, cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	return &Client{
		api:    api,
		cfg:    cfg,
		logger: logger.With("component", "delivery"),
	}
}

// SendBatch delivers one batch, caption on the first image.
func (c *Client) SendBatch(ctx context.Context, batch *domain.DeliveryBatch, images []domain.ImageFile) (*domain.DeliveryResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images to send", ErrSendFailed)
	}

	media := make([]interface{}, 0, len(images))
	for i, img := range images {
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: img.Name, Bytes: img.Data})
		if i == 0 {
			photo.Caption = Caption(batch)
			photo.ParseMode = tgbotapi.ModeHTML
		}
		media = append(media, photo)
	}

	group := tgbotapi.MediaGroupConfig{
		ChatID: c.cfg.ChannelID,
		Media:  media,
	}

	delay := c.cfg.InitialBackoff
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		messages, err := c.api.SendMediaGroup(group)
		if err == nil {
			result := &domain.DeliveryResult{}
			for _, m := range messages {
				result.MessageIDs = append(result.MessageIDs, m.MessageID)
			}
			if len(messages) > 0 {
				result.GroupID = messages[0].MediaGroupID
			}
			c.pace(ctx)
			return result, nil
		}

		if retryAfter, limited := rateLimit(err); limited {
			if advised := time.Duration(retryAfter) * time.Second; advised > delay {
				delay = advised
			}
			c.logger.Warn("rate limited, backing off",
				"guid", batch.GUID,
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		if isTimeout(err) {
			// The message may have landed server-side; retrying risks a
			// duplicate post, so report qualified success without a handle.
			c.logger.Warn("send timed out, assuming delivered", "guid", batch.GUID, "error", err)
			return &domain.DeliveryResult{Ambiguous: true}, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return nil, fmt.Errorf("%w: rate limited after %d attempts", ErrSendFailed, c.cfg.MaxAttempts)
}

// Delete removes a previously delivered message from the channel.
func (c *Client) Delete(ctx context.Context, messageID int) error {
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(c.cfg.ChannelID, messageID))
	if err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// MessageLink builds the public t.me link for a channel message.
func (c *Client) MessageLink(messageID int) string {
	internal := strings.TrimPrefix(strconv.FormatInt(c.cfg.ChannelID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
}

// Notify sends a plain text message to the operator. No-op without one.
func (c *Client) Notify(ctx context.Context, text string) error {
	if c.cfg.OperatorID == 0 {
		return nil
	}
	_, err := c.api.Send(tgbotapi.NewMessage(c.cfg.OperatorID, text))
	if err != nil {
		return fmt.Errorf("notify operator: %w", err)
	}
	return nil
}

func (c *Client) pace(ctx context.Context) {
	if c.cfg.PacingDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.PacingDelay):
	}
}

func rateLimit(err error) (retryAfter int, limited bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return tgErr.RetryAfter, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
