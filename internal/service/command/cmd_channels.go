package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

type ChannelsCommand struct {
	dirs      []core.ChannelDirectory
	formatter *ResponseFormatter
}

func NewChannelsCommand(dirs []core.ChannelDirectory) *ChannelsCommand {
	return &ChannelsCommand{dirs: dirs, formatter: NewResponseFormatter()}
}

func (c *ChannelsCommand) Name() string        { return "channels" }
func (c *ChannelsCommand) Usage() string       { return "channels" }
func (c *ChannelsCommand) Description() string { return "List channels the bot can send to" }

func (c *ChannelsCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(c.dirs) == 0 {
		return c.formatter.Info("No transports are connected"), nil
	}

	sections := []string{c.formatter.Info("Available channels")}
	for _, dir := range c.dirs {
		channels, err := dir.ListChannels(ctx)
		if err != nil {
			sections = append(sections, c.formatter.Error(fmt.Errorf("%s: %w", dir.Platform(), err)))
			continue
		}

		groups := make(map[string][]string)
		var order []string
		for _, ch := range channels {
			if _, ok := groups[ch.Group]; !ok {
				order = append(order, ch.Group)
			}
			groups[ch.Group] = append(groups[ch.Group], fmt.Sprintf("#%s (%s)", ch.Name, ch.ID))
		}
		for _, g := range order {
			sections = append(sections, c.formatter.Label(dir.Platform(), g), c.formatter.List(groups[g]))
		}
		if len(channels) == 0 {
			sections = append(sections, c.formatter.Label(dir.Platform(), "none"))
		}
	}
	return c.formatter.Combine(sections...), nil
}

type SendCommand struct {
	dirs      []core.ChannelDirectory
	formatter *ResponseFormatter
}

func NewSendCommand(dirs []core.ChannelDirectory) *SendCommand {
	return &SendCommand{dirs: dirs, formatter: NewResponseFormatter()}
}

func (c *SendCommand) Name() string        { return "send" }
func (c *SendCommand) Usage() string       { return "send <channel_id> <message>" }
func (c *SendCommand) Description() string { return "Send a message to a channel" }

// Execute tries each transport in turn; the first that accepts the channel id wins.
func (c *SendCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return c.formatter.Usage(c.Usage()), nil
	}

	channelID := args[0]
	message := strings.Join(args[1:], " ")

	var errs []string
	for _, dir := range c.dirs {
		id, err := dir.SendToChannel(ctx, channelID, message)
		if err != nil {
			log.FromCtx(ctx).Debug().Err(err).Str("platform", dir.Platform()).Msg("send failed")
			errs = append(errs, fmt.Sprintf("%s: %v", dir.Platform(), err))
			continue
		}
		return c.formatter.Success(fmt.Sprintf("Sent to %s via %s (message %s)", channelID, dir.Platform(), id)), nil
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no transports are connected")
	}
	return "", fmt.Errorf("channel %s not found: %s", channelID, strings.Join(errs, "; "))
}
