package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/muse/internal/core"
)

type Router struct {
	commands  map[string]core.Command
	formatter *ResponseFormatter
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	return c
}

// Execute runs one console line. The leading slash is optional. It reports
// false for blank input.
func (c *Router) Execute(ctx context.Context, input string) (string, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", false
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	if name == "help" {
		return c.help(), true
	}

	cmd, ok := c.commands[name]
	if !ok {
		return c.formatter.Error(fmt.Errorf("unknown command %q, type \"help\" for the list", name)), true
	}

	result, err := cmd.Execute(ctx, args)
	if err != nil {
		return c.formatter.Error(err), true
	}
	return result, true
}

// ListCommands returns the registered commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

func (c *Router) help() string {
	rows := make([][2]string, 0, len(c.commands)+2)
	for _, cmd := range c.ListCommands() {
		rows = append(rows, [2]string{cmd.Usage(), cmd.Description()})
	}
	rows = append(rows,
		[2]string{"help", "Show this help message"},
		[2]string{"exit", "Stop the bot"},
	)
	return c.formatter.Combine(c.formatter.Info("Console commands"), c.formatter.Table(rows))
}
