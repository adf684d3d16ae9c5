package command

import (
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/conversation"
)

func NewCommands(
	store *conversation.Store,
	queue QueueStatusProvider,
	dirs []core.ChannelDirectory,
) []core.Command {
	cmds := []core.Command{
		NewThreadsCommand(store),
		NewShowCommand(store),
		NewClearCommand(store),
		NewClearAllCommand(store),
		NewChannelsCommand(dirs),
		NewSendCommand(dirs),
	}
	if queue != nil {
		cmds = append(cmds, NewQueueCommand(queue))
	}
	return cmds
}
