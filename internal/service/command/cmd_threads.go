package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/conversation"
	"github.com/sandevgo/muse/internal/service/ui"
	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/tokens"
)

// previewLength caps each turn printed by "show".
const previewLength = 160

var errThreadArg = errors.New("thread id required")

type ThreadsCommand struct {
	store     *conversation.Store
	formatter *ResponseFormatter
}

func NewThreadsCommand(store *conversation.Store) *ThreadsCommand {
	return &ThreadsCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *ThreadsCommand) Name() string        { return "threads" }
func (c *ThreadsCommand) Usage() string       { return "threads" }
func (c *ThreadsCommand) Description() string { return "List conversation threads held in memory" }

func (c *ThreadsCommand) Execute(ctx context.Context, args []string) (string, error) {
	threads := c.store.Threads()
	if len(threads) == 0 {
		return c.formatter.Info("No active threads"), nil
	}

	items := make([]string, len(threads))
	for i, t := range threads {
		items[i] = fmt.Sprintf("%s %s", t.ID, ui.DescStyle.Render(fmt.Sprintf("(%d turns)", t.Turns)))
	}
	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Threads (%d)", len(threads))),
		c.formatter.List(items),
	), nil
}

type ShowCommand struct {
	store     *conversation.Store
	formatter *ResponseFormatter
}

func NewShowCommand(store *conversation.Store) *ShowCommand {
	return &ShowCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Usage() string       { return "show <thread>" }
func (c *ShowCommand) Description() string { return "Print the turns of one thread" }

func (c *ShowCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return c.formatter.Usage(c.Usage()), nil
	}

	history, ok := c.store.Get(core.ThreadID(args[0]))
	if !ok {
		return "", fmt.Errorf("thread %s not found", args[0])
	}

	contents := make([]string, len(history))
	lines := make([]string, len(history))
	for i, m := range history {
		contents[i] = m.Content
		lines[i] = fmt.Sprintf("%s %s", ui.RoleStyle.Render(string(m.Role)+":"), conv.Truncate(m.Content, previewLength))
	}

	return c.formatter.Combine(
		c.formatter.Info("Thread "+args[0]),
		c.formatter.Label("Turns", fmt.Sprint(len(history))),
		c.formatter.Label("Tokens", fmt.Sprintf("~%d", tokens.CountMessages(contents...))),
		c.formatter.List(lines),
	), nil
}

type ClearCommand struct {
	store     *conversation.Store
	formatter *ResponseFormatter
}

func NewClearCommand(store *conversation.Store) *ClearCommand {
	return &ClearCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Usage() string       { return "clear <thread>" }
func (c *ClearCommand) Description() string { return "Forget one thread's history" }

func (c *ClearCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", errThreadArg
	}
	c.store.Clear(core.ThreadID(args[0]))
	return c.formatter.Success("Cleared thread " + args[0]), nil
}

type ClearAllCommand struct {
	store     *conversation.Store
	formatter *ResponseFormatter
}

func NewClearAllCommand(store *conversation.Store) *ClearAllCommand {
	return &ClearAllCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *ClearAllCommand) Name() string        { return "clearall" }
func (c *ClearAllCommand) Usage() string       { return "clearall" }
func (c *ClearAllCommand) Description() string { return "Forget every thread" }

func (c *ClearAllCommand) Execute(ctx context.Context, args []string) (string, error) {
	n := c.store.ClearAll()
	return c.formatter.Success(fmt.Sprintf("Cleared %d threads", n)), nil
}
