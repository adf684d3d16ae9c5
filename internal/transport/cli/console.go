// Package cli is the operator console: a readline prompt on the terminal the
// bot was started from.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/ui"
	"github.com/sandevgo/muse/pkg/log"
)

type Console struct {
	router core.CmdRouter
	rl     *readline.Instance
	onExit func()
}

// NewConsole builds the console. onExit is called when the operator types
// "exit" or closes stdin; it should stop the whole process.
func NewConsole(router core.CmdRouter, historyFile string, onExit func()) (*Console, error) {
	if err := os.MkdirAll(filepath.Dir(historyFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ui.UsageStyle.Render("muse> "),
		HistoryFile:     historyFile,
		AutoComplete:    completer(router),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &Console{
		router: router,
		rl:     rl,
		onExit: onExit,
	}, nil
}

func completer(router core.CmdRouter) readline.AutoCompleter {
	items := []readline.PrefixCompleterInterface{readline.PcItem("help"), readline.PcItem("exit")}
	for _, cmd := range router.ListCommands() {
		items = append(items, readline.PcItem(cmd.Name()))
	}
	return readline.NewPrefixCompleter(items...)
}

func (c *Console) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("operator console ready, type 'help' for commands")

	defer c.exit()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			fmt.Fprintln(c.rl.Stdout(), ui.DescStyle.Render("Shutting down..."))
			return nil
		}

		out, handled := c.router.Execute(ctx, line)
		if handled && out != "" {
			fmt.Fprintln(c.rl.Stdout(), out)
		}
	}
}

func (c *Console) exit() {
	if c.onExit != nil {
		c.onExit()
	}
}

func (c *Console) Shutdown(ctx context.Context) error {
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}
