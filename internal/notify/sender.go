package notify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// SendResult reports a delivery attempt accepted by the messaging provider.
type SendResult struct {
	ProviderID string
	Simulated  bool
}

// Sender delivers one WhatsApp message. Implementations must return an error
// for rejected or undeliverable messages; a nil error means the provider
// accepted the send.
type Sender interface {
	Send(ctx context.Context, to, body string) (SendResult, error)
}

// SimulatedSender is the fallback when no real WhatsApp client is configured.
// It accepts every message, logs it, and marks the result simulated so the
// delivery log records that nothing actually went out.
type SimulatedSender struct {
	logger *slog.Logger
}

// NewSimulatedSender returns the no-op fallback sender.
func NewSimulatedSender(logger *slog.Logger) *SimulatedSender {
	return &SimulatedSender{logger: logger.With("component", "simulated_sender")}
}

// Send logs the message instead of delivering it.
func (s *SimulatedSender) Send(_ context.Context, to, body string) (SendResult, error) {
	s.logger.Warn("whatsapp not configured, message simulated", "to", to, "body", body)
	return SendResult{Simulated: true}, nil
}

var waNumberRegex = regexp.MustCompile(`^\+\d{10,15}$`)

// ValidWhatsAppNumber reports whether number is a plausible WhatsApp contact:
// a plus sign followed by 10 to 15 digits, ignoring spacing and punctuation.
func ValidWhatsAppNumber(number string) bool {
	return waNumberRegex.MatchString(normalizeNumber(number))
}

func normalizeNumber(number string) string {
	cleaned := strings.NewReplacer("whatsapp:", "", " ", "", "-", "", "(", "", ")", "").Replace(number)
	return strings.TrimSpace(cleaned)
}
