package commands

import (
	"context"
	"log"
	"strconv"
	"strings"

	"ticker-scanner/internal/domain"
)

// Dispatcher routes messages addressed to the bot to query handlers.
type Dispatcher struct {
	handler *Handler
	logger  *log.Logger
}

// NewDispatcher creates a Dispatcher over the handler.
func NewDispatcher(h *Handler, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{handler: h, logger: logger}
}

// Dispatch runs the command carried by the message, if any. Returns
// whether the message was recognized as a command. Only messages
// addressed to the bot are considered.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.ChatMessage) (bool, error) {
	if !msg.AddressesAgent {
		return false, nil
	}
	cmd, args := parseCommand(msg.Text)
	switch cmd {
	case "tickers", "all":
		return true, d.handler.AllTickers(ctx, msg.ChannelID)
	case "my", "mine":
		return true, d.handler.MyTickers(ctx, msg.ChannelID, msg.AuthorID)
	case "dashboard", "leaderboard":
		return true, d.handler.Dashboard(ctx, msg.ChannelID)
	case "hot":
		n, basis := parseHotArgs(args)
		return true, d.handler.Hot(ctx, msg.ChannelID, n, basis)
	default:
		return false, nil
	}
}

// parseCommand strips bot mentions and returns the first word lowered
// plus the remaining arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	var words []string
	for _, f := range fields {
		if strings.HasPrefix(f, "<@") || strings.HasPrefix(f, "@") {
			continue
		}
		words = append(words, f)
	}
	if len(words) == 0 {
		return "", nil
	}
	return strings.ToLower(words[0]), words[1:]
}

// parseHotArgs reads an optional count and basis from "hot [n] [month]".
func parseHotArgs(args []string) (int, Basis) {
	n := 10
	basis := BasisMention
	for _, a := range args {
		if v, err := strconv.Atoi(a); err == nil && v > 0 {
			n = v
			continue
		}
		if strings.EqualFold(a, string(BasisMonth)) {
			basis = BasisMonth
		}
	}
	return n, basis
}
