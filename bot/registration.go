// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ovozbot/ovoz/models"
	"github.com/ovozbot/ovoz/session"
)

// codeTTL is the verification code's lifetime, measured from the moment the
// email is accepted.
const codeTTL = 5 * time.Minute

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// generateCode returns a 6-digit code uniform over [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// handleRegistration advances the user one step through
// firstName -> lastName -> phone -> email -> verifyEmail. Invalid input
// re-prompts the same step; only an expired code or a fatal store error
// discards the draft.
func (b *Bot) handleRegistration(ctx context.Context, ev Event, reg *session.Registration) {
	switch reg.Step {
	case session.StepFirstName:
		name := strings.TrimSpace(ev.Text)
		if len(name) < 2 {
			b.send(ctx, ev.ChatID, "❌ Please enter a first name of at least 2 characters:", nil)
			return
		}
		reg.FirstName = name
		reg.Step = session.StepLastName
		b.sessions.SetRegistration(ev.UserID, reg)
		b.send(ctx, ev.ChatID, "📝 Enter your last name:", nil)

	case session.StepLastName:
		name := strings.TrimSpace(ev.Text)
		if len(name) < 2 {
			b.send(ctx, ev.ChatID, "❌ Please enter a last name of at least 2 characters:", nil)
			return
		}
		reg.LastName = name
		reg.Step = session.StepPhone
		b.sessions.SetRegistration(ev.UserID, reg)
		b.send(ctx, ev.ChatID, "📞 Tap the button to share your phone number:", contactKeyboard())

	case session.StepPhone:
		switch {
		case ev.Contact == nil:
			b.send(ctx, ev.ChatID, "❌ Please use the share-number button.", nil)
		case ev.Contact.UserID != ev.UserID:
			b.send(ctx, ev.ChatID, "❌ Please share your own phone number.", nil)
		default:
			reg.Phone = ev.Contact.Phone
			reg.Step = session.StepEmail
			b.sessions.SetRegistration(ev.UserID, reg)
			b.send(ctx, ev.ChatID, "📧 Enter your email address:", &Keyboard{Remove: true})
		}

	case session.StepEmail:
		b.handleEmailStep(ctx, ev, reg)

	case session.StepVerifyEmail:
		b.handleVerifyStep(ctx, ev, reg)
	}
}

func (b *Bot) handleEmailStep(ctx context.Context, ev Event, reg *session.Registration) {
	email := strings.ToLower(strings.TrimSpace(ev.Text))
	if !emailRe.MatchString(email) {
		b.send(ctx, ev.ChatID, "❌ Please enter a valid email address:", nil)
		return
	}

	_, err := b.users.FindByEmail(ctx, email)
	if err == nil {
		b.send(ctx, ev.ChatID, "❌ This email address is already registered.", nil)
		return
	}
	if !errors.Is(err, models.ErrNotFound) {
		slog.Error("email lookup failed", "user_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Something went wrong. Please try again.", nil)
		return
	}

	code, err := generateCode()
	if err != nil {
		slog.Error("code generation failed", "user_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Something went wrong. Please try again.", nil)
		return
	}

	// Send before advancing: if delivery fails the user stays on this step
	// and may resubmit the address.
	if err := b.mailer.SendCode(ctx, email, code); err != nil {
		slog.Error("verification email failed", "user_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Sending the email failed. Please try again.", nil)
		return
	}

	reg.Email = email
	reg.Code = code
	reg.CodeExpiresAt = b.now().Add(codeTTL)
	reg.Step = session.StepVerifyEmail
	b.sessions.SetRegistration(ev.UserID, reg)

	b.send(ctx, ev.ChatID, "✅ Email accepted!\n📩 A verification code was sent to your inbox.\n\n🔢 Enter the code (within 5 minutes):", nil)
}

func (b *Bot) handleVerifyStep(ctx context.Context, ev Event, reg *session.Registration) {
	now := b.now()
	if reg.Expired(now) {
		b.sessions.Clear(ev.UserID)
		b.send(ctx, ev.ChatID, "❌ The verification code has expired.\n🔄 Start over with /start.", nil)
		return
	}

	if strings.TrimSpace(ev.Text) != reg.Code {
		b.send(ctx, ev.ChatID, "❌ Wrong code. Try again:", nil)
		return
	}

	u := &models.User{
		UserID:        ev.UserID,
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Phone:         reg.Phone,
		Email:         reg.Email,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := b.users.Upsert(ctx, u)

	// Success or failure, the draft is finished.
	b.sessions.Clear(ev.UserID)

	switch {
	case errors.Is(err, models.ErrDuplicateKey):
		slog.Error("user upsert hit unique index", "user_id", ev.UserID)
		b.send(ctx, ev.ChatID, "❌ A database uniqueness conflict occurred. Please contact an admin.", nil)
	case err != nil:
		slog.Error("user upsert failed", "user_id", ev.UserID, "error", err)
		b.send(ctx, ev.ChatID, "❌ Something went wrong. Start over with /start.", nil)
	default:
		slog.Info("user registered", "user_id", ev.UserID)
		b.send(ctx, ev.ChatID, "🎉 Congratulations!\n✅ Your email is verified and your details are saved.\n\n🤖 You can now use the bot fully!", nil)
	}
}

func contactKeyboard() *Keyboard {
	return &Keyboard{
		Reply:   true,
		OneTime: true,
		Resize:  true,
		Rows: [][]Button{
			{{Text: "📲 Share my number", RequestContact: true}},
		},
	}
}
