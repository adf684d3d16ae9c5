package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/service/imagine"
)

type QueueStatusProvider interface {
	Status() imagine.Status
}

type QueueCommand struct {
	queue     QueueStatusProvider
	formatter *ResponseFormatter
}

func NewQueueCommand(queue QueueStatusProvider) *QueueCommand {
	return &QueueCommand{queue: queue, formatter: NewResponseFormatter()}
}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Usage() string       { return "queue" }
func (c *QueueCommand) Description() string { return "Show the image generation queue" }

func (c *QueueCommand) Execute(ctx context.Context, args []string) (string, error) {
	st := c.queue.Status()

	state := "idle"
	if st.Active {
		state = "draining"
	}
	sections := []string{
		c.formatter.Info("Image queue"),
		c.formatter.Label("State", state),
	}
	if st.Running != "" {
		sections = append(sections, c.formatter.Label("Rendering", st.Running))
	}
	sections = append(sections, c.formatter.Label("Waiting", fmt.Sprint(len(st.Pending))))
	if len(st.Pending) > 0 {
		sections = append(sections, c.formatter.List(st.Pending))
	}
	return c.formatter.Combine(sections...), nil
}
