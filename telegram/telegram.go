// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ovozbot/ovoz/bot"
)

// maxChunk keeps each outbound message safely under Telegram's 4096
// character payload limit.
const maxChunk = 4000

// Client adapts the Telegram Bot API to the bot.Transport,
// engine.Notifier, and engine.MembershipOracle contracts.
type Client struct {
	api *tgbotapi.BotAPI
}

func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return &Client{api: api}, nil
}

// Run long-polls for updates and feeds them to handler until ctx is
// cancelled. Handler panics would kill the loop, so the bot layer is
// expected to contain its own failures.
func (c *Client) Run(ctx context.Context, handler func(context.Context, bot.Event)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.api.GetUpdatesChan(u)
	slog.Info("telegram polling started", "bot", c.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := toEvent(upd); ok {
				handler(ctx, ev)
			}
		}
	}
}

func toEvent(upd tgbotapi.Update) (bot.Event, bool) {
	switch {
	case upd.Message != nil:
		m := upd.Message
		if m.From == nil {
			return bot.Event{}, false
		}
		ev := bot.Event{
			UserID:  m.From.ID,
			ChatID:  m.Chat.ID,
			Text:    m.Text,
			Caption: m.Caption,
		}
		if m.Contact != nil {
			ev.Contact = &bot.Contact{UserID: m.Contact.UserID, Phone: m.Contact.PhoneNumber}
		}
		if len(m.Photo) > 0 {
			ev.MediaID = m.Photo[len(m.Photo)-1].FileID
		}
		return ev, true

	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		ev := bot.Event{
			UserID: cq.From.ID,
			Callback: &bot.Callback{
				ID:       cq.ID,
				Data:     cq.Data,
				InlineID: cq.InlineMessageID,
			},
		}
		if cq.Message != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.Callback.MessageID = cq.Message.MessageID
		}
		return ev, true

	case upd.InlineQuery != nil:
		iq := upd.InlineQuery
		return bot.Event{
			UserID: iq.From.ID,
			Inline: &bot.InlineQuery{ID: iq.ID, Query: iq.Query},
		}, true
	}
	return bot.Event{}, false
}

// SendText sends text, chunked below the payload limit. The keyboard rides
// on the final chunk.
func (c *Client) SendText(_ context.Context, chatID int64, text string, kb *bot.Keyboard) error {
	chunks := splitMessage(text)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 {
			if markup := toMarkup(kb); markup != nil {
				msg.ReplyMarkup = markup
			}
		}
		if _, err := c.api.Send(msg); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}

// EditText edits a regular or inline-mode message. Media messages carry
// their text in the caption, so "no text" failures retry as caption edits.
func (c *Client) EditText(_ context.Context, ref bot.MsgRef, text string, kb *bot.Keyboard) error {
	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit: baseEdit(ref, kb),
		Text:     text,
	}
	// Request, not Send: edits of inline-mode messages return a bare bool,
	// which Send cannot decode into a Message.
	_, err := c.api.Request(edit)
	if err != nil && strings.Contains(err.Error(), "no text in the message") {
		captionEdit := tgbotapi.EditMessageCaptionConfig{
			BaseEdit: baseEdit(ref, kb),
			Caption:  text,
		}
		_, err = c.api.Request(captionEdit)
	}
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func baseEdit(ref bot.MsgRef, kb *bot.Keyboard) tgbotapi.BaseEdit {
	be := tgbotapi.BaseEdit{ReplyMarkup: toInlineMarkup(kb)}
	if ref.InlineID != "" {
		be.InlineMessageID = ref.InlineID
	} else {
		be.ChatID = ref.ChatID
		be.MessageID = ref.MessageID
	}
	return be
}

func (c *Client) SendMedia(_ context.Context, chatID int64, mediaID, caption string, kb *bot.Keyboard) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(mediaID))
	photo.Caption = caption
	if markup := toMarkup(kb); markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	return nil
}

func (c *Client) AnswerQuery(_ context.Context, queryID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(queryID, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (c *Client) AnswerInline(_ context.Context, queryID string, cards []bot.InlineCard) error {
	results := make([]interface{}, 0, len(cards))
	for _, card := range cards {
		article := tgbotapi.NewInlineQueryResultArticle(card.ID, card.Title, card.Text)
		article.Description = card.Description
		article.ReplyMarkup = toInlineMarkup(card.Keyboard)
		results = append(results, article)
	}
	cfg := tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		IsPersonal:    true,
		CacheTime:     0,
		Results:       results,
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}
	return nil
}

// Notify implements engine.Notifier: a plain text message to one user.
func (c *Client) Notify(ctx context.Context, userID int64, text string) error {
	return c.SendText(ctx, userID, text, nil)
}

// GetMembership implements engine.MembershipOracle.
func (c *Client) GetMembership(_ context.Context, channel string, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member %s: %w", channel, err)
	}
	return member.Status, nil
}

// splitMessage cuts text into rune-safe chunks of at most maxChunk.
func splitMessage(text string) []string {
	runes := []rune(text)
	if len(runes) <= maxChunk {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := maxChunk
		if n > len(runes) {
			n = len(runes)
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}

func toMarkup(kb *bot.Keyboard) interface{} {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return tgbotapi.NewRemoveKeyboard(true)
	case kb.Reply:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, tgbotapi.KeyboardButton{
					Text:           btn.Text,
					RequestContact: btn.RequestContact,
				})
			}
			rows = append(rows, buttons)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.OneTimeKeyboard = kb.OneTime
		markup.ResizeKeyboard = kb.Resize
		return markup
	default:
		if m := toInlineMarkup(kb); m != nil {
			return *m
		}
		return nil
	}
}

func toInlineMarkup(kb *bot.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || kb.Reply || kb.Remove {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			switch {
			case btn.URL != "":
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			case btn.SwitchInline != "":
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonSwitch(btn.Text, btn.SwitchInline))
			default:
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
