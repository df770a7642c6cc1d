package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feed_poster/internal/domain"
)

// maxUsersPerCommand caps one /adduser invocation.
const maxUsersPerCommand = 50

// UserStore manages the tracked source accounts.
type UserStore interface {
	Add(ctx context.Context, userID string, kind domain.SourceKind) error
	Remove(ctx context.Context, userIDs []string, kind domain.SourceKind) error
	List(ctx context.Context, kind domain.SourceKind) ([]string, error)
	Exists(ctx context.Context, userID string, kind domain.SourceKind) (bool, error)
}

// DeliveredStore exposes the delivered-post records the admin can delete.
type DeliveredStore interface {
	GetMessageLink(ctx context.Context, guid string) (string, bool, error)
	Remove(ctx context.Context, guid string) error
}

// Deleter removes a previously delivered message from the channel.
type Deleter interface {
	Delete(ctx context.Context, messageID int) error
}

// Handler is the command surface for operators: manage tracked accounts and
// delete delivered posts. Every command is gated by the admin allowlist.
type Handler struct {
	bot       *tgbotapi.BotAPI
	users     UserStore
	delivered DeliveredStore
	deleter   Deleter
	adminIDs  map[int64]struct{}
	logger    *slog.Logger
}

func New(bot *tgbotapi.BotAPI, users UserStore, delivered DeliveredStore, deleter Deleter, adminIDs []int64, logger *slog.Logger) *Handler {
	allow := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		allow[id] = struct{}{}
	}
	return &Handler{
		bot:       bot,
		users:     users,
		delivered: delivered,
		deleter:   deleter,
		adminIDs:  allow,
		logger:    logger.With("component", "admin"),
	}
}

// Run long-polls updates until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			h.handle(ctx, update.Message)
		}
	}
}

func (h *Handler) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if _, ok := h.adminIDs[msg.From.ID]; !ok {
		h.reply(msg.Chat.ID, "You are not authorized to use this command.")
		return
	}

	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "adduser":
		h.addUsers(ctx, msg.Chat.ID, args)
	case "removeuser":
		h.removeUsers(ctx, msg.Chat.ID, args)
	case "listusers":
		h.listUsers(ctx, msg.Chat.ID)
	case "finduser":
		h.findUser(ctx, msg.Chat.ID, args)
	case "delpost":
		h.deletePost(ctx, msg.Chat.ID, args)
	case "start", "help":
		h.reply(msg.Chat.ID, helpText)
	default:
		h.reply(msg.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (h *Handler) addUsers(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		h.reply(chatID, "Usage: /adduser <user_id> [user_id ...]")
		return
	}
	if len(args) > maxUsersPerCommand {
		h.reply(chatID, fmt.Sprintf("Too many user IDs at once (max %d).", maxUsersPerCommand))
		return
	}

	added := 0
	for _, id := range args {
		if err := h.users.Add(ctx, id, domain.KindPixiv); err != nil {
			h.logger.Error("add user failed", "user", id, "error", err)
			continue
		}
		added++
	}
	h.reply(chatID, fmt.Sprintf("Added %d user(s).", added))
}

func (h *Handler) removeUsers(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		h.reply(chatID, "Usage: /removeuser <user_id> [user_id ...]")
		return
	}
	if err := h.users.Remove(ctx, args, domain.KindPixiv); err != nil {
		h.logger.Error("remove users failed", "error", err)
		h.reply(chatID, "Failed to remove users.")
		return
	}
	h.reply(chatID, fmt.Sprintf("Removed %d user(s).", len(args)))
}

func (h *Handler) listUsers(ctx context.Context, chatID int64) {
	ids, err := h.users.List(ctx, domain.KindPixiv)
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		h.reply(chatID, "Failed to list users.")
		return
	}
	if len(ids) == 0 {
		h.reply(chatID, "No users tracked yet.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Tracked users [Total: %d]</b>\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "<code>%s</code>\n", id)
	}
	h.replyHTML(chatID, b.String())
}

func (h *Handler) findUser(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.reply(chatID, "Usage: /finduser <user_id>")
		return
	}
	exists, err := h.users.Exists(ctx, args[0], domain.KindPixiv)
	if err != nil {
		h.logger.Error("find user failed", "user", args[0], "error", err)
		h.reply(chatID, "Lookup failed.")
		return
	}
	if exists {
		h.reply(chatID, fmt.Sprintf("User %s is tracked.", args[0]))
	} else {
		h.reply(chatID, fmt.Sprintf("User %s is not tracked.", args[0]))
	}
}

func (h *Handler) deletePost(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.reply(chatID, "Usage: /delpost <guid>")
		return
	}
	guid := args[0]

	link, ok, err := h.delivered.GetMessageLink(ctx, guid)
	if err != nil {
		h.logger.Error("message link lookup failed", "guid", guid, "error", err)
		h.reply(chatID, "Lookup failed.")
		return
	}
	if !ok {
		h.reply(chatID, fmt.Sprintf("No delivered post recorded for %s.", guid))
		return
	}

	messageID, err := MessageIDFromLink(link)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Recorded link for %s is not parseable.", guid))
		return
	}
	if err := h.deleter.Delete(ctx, messageID); err != nil {
		h.logger.Error("delete post failed", "guid", guid, "error", err)
		h.reply(chatID, "Failed to delete the channel message.")
		return
	}
	if err := h.delivered.Remove(ctx, guid); err != nil {
		h.logger.Error("remove delivered guid failed", "guid", guid, "error", err)
	}
	h.reply(chatID, fmt.Sprintf("Deleted post %s.", guid))
}

// MessageIDFromLink parses the message id out of a t.me/c/<chat>/<id> link.
func MessageIDFromLink(link string) (int, error) {
	trimmed := strings.TrimSuffix(link, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return 0, fmt.Errorf("no message id in link %q", link)
	}
	id, err := strconv.Atoi(trimmed[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parse message id from %q: %w", link, err)
	}
	return id, nil
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Error("reply failed", "error", err)
	}
}

func (h *Handler) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("reply failed", "error", err)
	}
}

const helpText = `Available commands:
/listusers - list tracked user IDs
/finduser <user_id> - check whether a user is tracked
/adduser <user_id> [user_id ...] - track one or more users
/removeuser <user_id> [user_id ...] - stop tracking users
/delpost <guid> - delete a delivered post from the channel
/help - this text`
