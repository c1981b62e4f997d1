// Package telegram wraps the bot platform HTTP API with the small surface
// the rest of the application needs: channel sends, command replies and
// webhook registration.
package telegram

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is a thin wrapper around the Telegram bot API
type Client struct {
	api *tgbotapi.BotAPI

	delWebhook sync.Once
	delErr     error
}

// New creates a client and verifies the token against get-me
func New(token string) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewWithEndpoint creates a client against a custom API endpoint, used by
// tests and self-hosted bot API servers
func NewWithEndpoint(token, endpoint string) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	lgr.Printf("[INFO] telegram bot connected: %s", api.Self.UserName)
	return &Client{api: api}, nil
}

// RegisterWebhook points the bot platform at the given URL
func (c *Client) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("make webhook config: %w", err)
	}

	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := c.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		lgr.Printf("[WARN] telegram webhook last error: %s", info.LastErrorMessage)
	}

	lgr.Printf("[INFO] webhook registered: %s", url)
	return nil
}

// DeleteWebhook deregisters the webhook. Safe to call multiple times, the
// platform call is made exactly once.
func (c *Client) DeleteWebhook() error {
	c.delWebhook.Do(func() {
		_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
		if err != nil {
			c.delErr = fmt.Errorf("delete webhook: %w", err)
			return
		}
		lgr.Printf("[INFO] webhook deregistered")
	})
	return c.delErr
}

// SendMessage sends a plain text message to the channel
func (c *Client) SendMessage(channel, text string) error {
	msg := tgbotapi.MessageConfig{BaseChat: chatTarget(channel), Text: text}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendPhoto sends a photo by URL with a caption to the channel
func (c *Client) SendPhoto(channel, photoURL, caption string) error {
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: chatTarget(channel),
			File:     tgbotapi.FileURL(photoURL),
		},
		Caption: caption,
	}
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// Reply answers a chat message
func (c *Client) Reply(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// chatTarget handles both numeric chat ids and @channel names
func chatTarget(channel string) tgbotapi.BaseChat {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.BaseChat{ChatID: id}
	}
	return tgbotapi.BaseChat{ChannelUsername: channel}
}
