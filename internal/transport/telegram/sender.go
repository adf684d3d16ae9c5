package telegram

import (
	"context"
	"strings"

	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

// messageSender is the part of *tele.Bot the sender needs.
type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type sender struct {
	bot    messageSender
	ledger *Ledger
}

func newSender(bot messageSender, ledger *Ledger) *sender {
	return &sender{bot: bot, ledger: ledger}
}

// sendMarkdown converts Markdown to Telegram HTML and sends it in chunks if
// needed. The first chunk replies to replyTo when set. It returns every
// message sent, in order.
func (s *sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string, replyTo *tele.Message) ([]*tele.Message, error) {
	logger := log.FromCtx(ctx)
	html := conv.TelegramHTML(md)
	if html == "" {
		html = strings.TrimSpace(md)
	}

	var sent []*tele.Message
	chunks := splitHTML(html, maxTelegramMsgLen)
	for i, chunk := range chunks {
		opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
		if i == 0 && replyTo != nil {
			opts.ReplyTo = replyTo
		}

		msg, err := s.bot.Send(to, chunk, opts)
		if err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return sent, err
		}
		s.ledger.Record(msg)
		sent = append(sent, msg)
	}
	return sent, nil
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the second half of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
