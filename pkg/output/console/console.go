package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sguter90/pimaestro/pkg/output"
)

// Output writes one line per reading
type Output struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a console output writing to w
func New(w io.Writer) *Output { return &Output{w: w} }

func (c *Output) Publish(ctx context.Context, sample output.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range sample.Readings {
		ch := sample.Channel(r)
		if _, err := fmt.Fprintf(c.w, "%s sensor=%q channel=%s value=%.2f%s\n",
			r.DateUTC.UTC().Format(time.RFC3339), sample.Sensor.Name, ch.Name, r.Value, ch.Unit); err != nil {
			return err
		}
	}
	return nil
}

func (c *Output) Close() error { return nil }
