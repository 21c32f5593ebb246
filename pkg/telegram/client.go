package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client posts run notifications to one chat.
type Client struct {
	Bot    Sender
	ChatID int64
}

func NewClient(token string, chatID int64) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Client{
		Bot:    bot,
		ChatID: chatID,
	}, nil
}

// Notify sends text as a plain message.
func (c *Client) Notify(text string) error {
	if c == nil || c.Bot == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(c.ChatID, text)
	msg.DisableWebPagePreview = true
	if _, err := c.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
