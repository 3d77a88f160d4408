package notify

import (
	"errors"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramConfig represents the telegram notifier configuration.
type TelegramConfig struct {
	// Token is the bot api token.
	Token string
	// ChatID is the target chat id.
	ChatID int64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *TelegramConfig) Validate() error {
	var errs error

	if cfg.Token == "" {
		errs = errors.Join(errs, fmt.Errorf("telegram token cannot be an empty string"))
	}
	if cfg.ChatID == 0 {
		errs = errors.Join(errs, fmt.Errorf("telegram chat id cannot be zero"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// TelegramNotifier sends notifications via the telegram bot api.
type TelegramNotifier struct {
	cfg *TelegramConfig
	bot *tgbot.BotAPI
}

// Ensure the telegram notifier implements the Notifier interface.
var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier initializes a new telegram notifier.
func NewTelegramNotifier(cfg *TelegramConfig) (*TelegramNotifier, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating telegram config: %w", err)
	}

	bot, err := tgbot.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &TelegramNotifier{
		cfg: cfg,
		bot: bot,
	}, nil
}

// Send delivers the provided message. Delivery failures are logged and
// swallowed.
func (n *TelegramNotifier) Send(message string) {
	_, err := n.bot.Send(tgbot.NewMessage(n.cfg.ChatID, message))
	if err != nil {
		n.cfg.Logger.Error().Msgf("sending telegram message: %v", err)
	}
}
