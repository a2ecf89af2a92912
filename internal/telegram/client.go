// Package telegram sends analysis run notifications via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/trogers1052/finfun/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            sender
	chatID         int64
	topN           int
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. topN bounds the number of
// records listed in a run summary.
func NewClient(botToken, chatID string, topN int) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, topN), nil
}

func newClient(bot sender, chatID int64, topN int) *Client {
	if topN <= 0 {
		topN = 5
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		topN:           topN,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// NotifyRun sends a summary of a finished run listing the best records by
// total rank. records must already be ordered.
func (c *Client) NotifyRun(ctx context.Context, run *models.AnalysisRun, records []*models.ScoredRecord) error {
	return c.sendMarkdownV2(ctx, c.formatRun(run, records))
}

// NotifyFailure sends a run failure notice
func (c *Client) NotifyFailure(ctx context.Context, run *models.AnalysisRun, runErr error) error {
	text := fmt.Sprintf("⚠️ *Analysis failed* \\(%s, %s\\)\n`%s`",
		escapeMarkdownV2(run.Trigger), escapeMarkdownV2(run.Scope), escapeMarkdownV2(runErr.Error()))
	return c.sendMarkdownV2(ctx, text)
}

func (c *Client) formatRun(run *models.AnalysisRun, records []*models.ScoredRecord) string {
	var b strings.Builder
	b.WriteString("📊 *Stock analysis complete*\n\n")
	fmt.Fprintf(&b, "📅 %s · %s · %d stocks\n\n",
		escapeMarkdownV2(run.StartedAt.Format("2006-01-02 15:04")),
		escapeMarkdownV2(run.Scope),
		run.StockCount)

	n := c.topN
	if len(records) < n {
		n = len(records)
	}
	for i, r := range records[:n] {
		label := ""
		if r.Recommendation != "" {
			label = " · " + escapeMarkdownV2(r.Recommendation)
		}
		fmt.Fprintf(&b, "%d\\. *%s* %s  score %s%s\n",
			i+1,
			escapeMarkdownV2(r.Symbol),
			escapeMarkdownV2(r.SectorOrUnknown()),
			escapeMarkdownV2(fmt.Sprintf("%.1f", r.TotalScore)),
			label)
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
