package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/finfun/internal/models"
)

type fakeBot struct {
	sent  []tgbotapi.MessageConfig
	fails int
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fails > 0 {
		f.fails--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"BRK-B", "BRK\\-B"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeMarkdownV2(tt.input))
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	_, err := NewClient("token", "not-a-number", 5)
	assert.ErrorContains(t, err, "invalid chat ID")
}

func runFixture() *models.AnalysisRun {
	return &models.AnalysisRun{
		ID:         "run-1",
		Trigger:    models.TriggerScheduled,
		Scope:      models.ScopePortfolio,
		StartedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StockCount: 3,
	}
}

func TestNotifyRun(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, 42, 2)

	records := []*models.ScoredRecord{
		{StockRecord: models.StockRecord{Symbol: "BRK-B", Sector: "Financials"}, TotalScore: 88.25, Recommendation: "Strong Buy"},
		{StockRecord: models.StockRecord{Symbol: "AAPL"}, TotalScore: 61},
		{StockRecord: models.StockRecord{Symbol: "MSFT"}, TotalScore: 12},
	}
	require.NoError(t, c.NotifyRun(context.Background(), runFixture(), records))
	require.Len(t, bot.sent, 1)

	msg := bot.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Contains(t, msg.Text, "1\\. *BRK\\-B* Financials  score 88\\.2 · Strong Buy")
	assert.Contains(t, msg.Text, "2\\. *AAPL* Unknown  score 61\\.0")
	assert.NotContains(t, msg.Text, "MSFT")
}

func TestNotifyFailure_Retries(t *testing.T) {
	bot := &fakeBot{fails: 2}
	c := newClient(bot, 42, 5)
	c.retryDelayBase = time.Millisecond

	require.NoError(t, c.NotifyFailure(context.Background(), runFixture(), errors.New("fetch failed")))
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0].Text, "*Analysis failed*")
	assert.Contains(t, bot.sent[0].Text, "`fetch failed`")
}

func TestNotifyFailure_GivesUp(t *testing.T) {
	bot := &fakeBot{fails: 10}
	c := newClient(bot, 42, 5)
	c.retryDelayBase = time.Millisecond

	err := c.NotifyFailure(context.Background(), runFixture(), errors.New("x"))
	assert.ErrorContains(t, err, "failed after 3 retries")
}
