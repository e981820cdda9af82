package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"moviekotha/internal/config"
	"moviekotha/internal/domain"
	"moviekotha/internal/intake"
	"moviekotha/internal/search"
	"moviekotha/internal/storage"
)

// maxMessageLength is Telegram's limit for one text message.
const maxMessageLength = 4096

const welcomeText = "👋 *Welcome to MovieKotha!*\n\n" +
	"I'm your personal movie finder bot. Simply type the name of the movie " +
	"you're looking for (at least 3 characters) and I'll send you its poster " +
	"and download links.\n\nFor example: `Inception`\n\n" +
	"Use /help to see all available commands. Let the movie hunt begin! 🎬"

const helpText = "🎬 *How to use MovieKotha* 🎬\n\n" +
	"1️⃣ *Search for a movie:*\n" +
	"   Type the name of the movie you want (e.g. `avatar`).\n" +
	"   The search is case-insensitive and needs at least 3 letters.\n\n" +
	"2️⃣ *Commands:*\n" +
	"   /start — show the welcome message\n" +
	"   /help — display this help message\n\n" +
	"Happy watching! 🍿"

const notAdminText = "⛔️ Sorry, this command is for admins only."

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot      *tgbot.Bot
	cfg      config.Config
	repo     storage.Repository
	pipeline *search.Pipeline
	machine  *intake.Machine
	sessions *intake.Manager
	log      logrus.FieldLogger
}

// NewHandler creates a new bot handler instance and registers every command.
func NewHandler(cfg config.Config, repo storage.Repository, pipeline *search.Pipeline, machine *intake.Machine, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	h := &Handler{
		cfg:      cfg,
		repo:     repo,
		pipeline: pipeline,
		machine:  machine,
		sessions: intake.NewManager(),
		log:      log,
	}

	// Plain text that matches no command goes to the default handler:
	// either an intake reply or a search query.
	b, err := tgbot.New(cfg.TelegramBotToken, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b

	h.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// registerHandlers sets up the command and callback handlers.
func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypePrefix, h.helpHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/add", tgbot.MatchTypePrefix, h.addHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/cancel", tgbot.MatchTypePrefix, h.cancelHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/delete", tgbot.MatchTypePrefix, h.deleteHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/list", tgbot.MatchTypePrefix, h.listHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "intake:", tgbot.MatchTypePrefix, h.intakeCallbackHandler)
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) isAdmin(userID int64) bool {
	return userID == h.cfg.AdminID
}

// commandArgs returns everything after the command token, trimmed.
func commandArgs(text string) string {
	_, args, _ := strings.Cut(text, " ")
	return strings.TrimSpace(args)
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.sendText(ctx, update.Message.Chat.ID, welcomeText, nil)
}

func (h *Handler) helpHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.sendText(ctx, update.Message.Chat.ID, helpText, nil)
}

// addHandler starts the guided intake dialog. A running dialog in the same
// chat is replaced by a fresh one.
func (h *Handler) addHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if update.Message.From == nil || !h.isAdmin(update.Message.From.ID) {
		h.sendText(ctx, chatID, notAdminText, nil)
		return
	}

	_, eff := h.sessions.Start(chatID)
	h.log.WithField("chat_id", chatID).Info("Intake dialog started")
	h.sendText(ctx, chatID, eff.Prompt, nil)
}

func (h *Handler) cancelHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if update.Message.From == nil || !h.isAdmin(update.Message.From.ID) {
		h.sendText(ctx, chatID, notAdminText, nil)
		return
	}

	if h.sessions.Drop(chatID) {
		h.sendText(ctx, chatID, "🚫 Cancelled. Nothing was saved.", nil)
	} else {
		h.sendText(ctx, chatID, "Nothing to cancel.", nil)
	}
}

// deleteHandler removes a movie by exact case-insensitive title, or by TMDB
// id when the argument is numeric.
func (h *Handler) deleteHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if update.Message.From == nil || !h.isAdmin(update.Message.From.ID) {
		h.sendText(ctx, chatID, notAdminText, nil)
		return
	}

	arg := commandArgs(update.Message.Text)
	if arg == "" {
		h.sendText(ctx, chatID, "⚠️ *Invalid format.*\nUsage: `/delete <Movie Name>` or `/delete <TMDB id>`", nil)
		return
	}

	var (
		removed bool
		err     error
	)
	if tmdbID, convErr := strconv.Atoi(arg); convErr == nil {
		removed, err = h.repo.DeleteByID(ctx, tmdbID)
	} else {
		removed, err = h.repo.DeleteByTitle(ctx, arg)
	}
	if err != nil {
		h.log.WithError(err).WithField("arg", arg).Error("Delete failed")
		h.sendText(ctx, chatID, "❌ The database is unreachable right now. Please try again.", nil)
		return
	}

	if removed {
		h.sendText(ctx, chatID, fmt.Sprintf("✅ *Success!*\n'%s' has been deleted from the catalog.", arg), nil)
	} else {
		h.sendText(ctx, chatID, fmt.Sprintf("❌ *Not found!*\nCould not find a movie matching '%s'.", arg), nil)
	}
}

func (h *Handler) listHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if update.Message.From == nil || !h.isAdmin(update.Message.From.ID) {
		h.sendText(ctx, chatID, notAdminText, nil)
		return
	}

	titles, err := h.repo.ListTitles(ctx)
	if err != nil {
		h.log.WithError(err).Error("Listing titles failed")
		h.sendText(ctx, chatID, "❌ The database is unreachable right now. Please try again.", nil)
		return
	}
	if len(titles) == 0 {
		h.sendText(ctx, chatID, "🗂 The catalog is currently empty.", nil)
		return
	}

	h.sendText(ctx, chatID, formatTitleList(titles), nil)
}

// formatTitleList renders the /list reply, truncated to the Telegram limit.
func formatTitleList(titles []string) string {
	var b strings.Builder
	b.WriteString("🎬 *All movies in the catalog*\n\n")
	for _, title := range titles {
		fmt.Fprintf(&b, "• `%s`\n", title)
	}
	msg := b.String()
	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength-4] + "\n..."
	}
	return msg
}

// defaultHandler routes plain text: intake replies from the admin while a
// dialog is running, search queries from everyone else.
func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return // unknown command, stay silent
	}

	chatID := update.Message.Chat.ID
	if update.Message.From != nil && h.isAdmin(update.Message.From.ID) {
		if s := h.sessions.Get(chatID); s != nil {
			h.applyIntakeInput(ctx, s, update.Message.Text)
			return
		}
	}

	h.handleSearch(ctx, update)
}

// intakeCallbackHandler handles the confirm/cancel buttons on the intake
// summary.
func (h *Handler) intakeCallbackHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	_, _ = b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	if !h.isAdmin(cb.From.ID) || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	s := h.sessions.Get(chatID)
	if s == nil {
		h.sendText(ctx, chatID, "This dialog has expired. Use /add to start over.", nil)
		return
	}

	token := strings.TrimPrefix(cb.Data, "intake:")
	h.applyIntakeInput(ctx, s, token)
}

// applyIntakeInput advances the state machine and performs the resulting
// effect: prompt delivery, commit, session teardown.
func (h *Handler) applyIntakeInput(ctx context.Context, s *intake.Session, input string) {
	eff := h.machine.Advance(ctx, s, input)

	if eff.Commit {
		h.commitIntake(ctx, s)
	}
	if eff.Prompt != "" {
		var kb models.ReplyMarkup
		if eff.AskConfirm {
			kb = confirmKeyboard()
		}
		h.sendText(ctx, s.ChatID, eff.Prompt, kb)
	}
	if eff.Done {
		h.sessions.Drop(s.ChatID)
	}
}

func (h *Handler) commitIntake(ctx context.Context, s *intake.Session) {
	log := h.log.WithFields(logrus.Fields{
		"chat_id": s.ChatID,
		"tmdb_id": s.Movie.TMDBID,
		"title":   s.Movie.Title,
	})

	err := h.repo.Insert(ctx, s.Movie)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		h.sendText(ctx, s.ChatID, fmt.Sprintf("🔵 *Already exists!*\n'%s' is already in the catalog.", s.Movie.Title), nil)
	case err != nil:
		log.WithError(err).Error("Failed to commit intake record")
		h.sendText(ctx, s.ChatID, "❌ Saving failed, the database is unreachable. Use /add to try again.", nil)
	default:
		log.Info("Movie committed to the catalog")
		h.sendText(ctx, s.ChatID, fmt.Sprintf("✅ *Success!*\n'%s' has been added to the catalog.", s.Movie.Title), nil)
	}
}

func confirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Confirm", CallbackData: "intake:" + intake.TokenConfirm},
			{Text: "🚫 Cancel", CallbackData: "intake:" + intake.TokenCancel},
		}},
	}
}

// handleSearch runs the pipeline and delivers one reply per match.
func (h *Handler) handleSearch(ctx context.Context, update *models.Update) {
	chatID := update.Message.Chat.ID
	query := strings.TrimSpace(update.Message.Text)
	log := h.log.WithFields(logrus.Fields{"chat_id": chatID, "query": query})

	results, err := h.pipeline.Run(ctx, query)
	if errors.Is(err, search.ErrQueryTooShort) {
		h.sendText(ctx, chatID, "🤔 Please type at least 3 letters to start a search.", nil)
		return
	}
	if err != nil {
		log.WithError(err).Error("Search failed")
		h.sendText(ctx, chatID, "❌ Search is unavailable right now. Please try again in a moment.", nil)
		return
	}
	if len(results) == 0 {
		h.sendText(ctx, chatID, fmt.Sprintf("😕 No movies found matching '*%s*'. Please try a different name.", query), nil)
		return
	}

	log.WithField("results", len(results)).Info("Delivering search results")
	h.sendText(ctx, chatID, fmt.Sprintf("Found %d result(s)! Sending them now...", len(results)), nil)

	for i, res := range results {
		if i > 0 {
			// Pause between per-movie replies to respect the Telegram
			// rate limit.
			select {
			case <-time.After(h.cfg.ReplyDelay):
			case <-ctx.Done():
				return
			}
		}
		h.deliverResult(ctx, chatID, res)
	}
}

// deliverResult sends one movie reply: photo with caption when a poster is
// available, text otherwise. A failed photo send degrades to the same text.
func (h *Handler) deliverResult(ctx context.Context, chatID int64, res domain.SearchResult) {
	caption := search.Caption(res)
	var kb models.ReplyMarkup
	if markup := linkKeyboard(res.Links); markup != nil {
		kb = markup
	}

	if res.Metadata.PosterURL != "" {
		_, err := h.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: res.Metadata.PosterURL},
			Caption:     caption,
			ParseMode:   models.ParseModeMarkdownV1,
			ReplyMarkup: kb,
		})
		if err == nil {
			return
		}
		h.log.WithError(err).WithField("title", res.Metadata.Title).Error("Failed to send poster, falling back to text")
	}

	h.sendText(ctx, chatID, caption, kb)
}

// linkKeyboard builds one download button per resolved link, in the fixed
// quality order.
func linkKeyboard(links []domain.ResolvedLink) *models.InlineKeyboardMarkup {
	if len(links) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(links))
	for _, l := range links {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text: fmt.Sprintf("📥 %s", strings.ToUpper(string(l.Quality))),
			URL:  l.URL,
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (h *Handler) sendText(ctx context.Context, chatID int64, text string, kb models.ReplyMarkup) {
	_, err := h.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: kb,
	})
	if err != nil {
		h.log.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}
