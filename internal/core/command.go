package core

import "context"

// CmdRouter dispatches operator console input to commands.
type CmdRouter interface {
	Execute(ctx context.Context, input string) (string, bool)
	ListCommands() []Command
}

type Command interface {
	Name() string
	Usage() string
	Description() string
	Execute(ctx context.Context, args []string) (string, error)
}
