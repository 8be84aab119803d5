package ipc

import (
	"fmt"
	"io"
	"os"
	"sync"

	"skyrating/internal/domain"
	"skyrating/internal/dump"

	"github.com/goccy/go-json"
)

// File descriptors the replay child inherits after stdin, stdout and stderr.
const (
	ControlFD  = 3
	MessagesFD = 4
)

// Channel carries Messages as NDJSON over a reader/writer pair.
type Channel struct {
	r io.Reader

	mu sync.Mutex
	w  io.Writer

	once sync.Once
	msgs chan Message
	err  error
}

func NewChannel(r io.Reader, w io.Writer) *Channel {
	return &Channel{r: r, w: w}
}

// ChildChannel opens the pipes a replay child inherits: it reads control on fd 3
// and writes results on fd 4.
func ChildChannel() (*Channel, error) {
	control := os.NewFile(ControlFD, "control")
	messages := os.NewFile(MessagesFD, "messages")
	if control == nil || messages == nil {
		return nil, fmt.Errorf("failed to open inherited pipes: %w", domain.ErrReplayProcess)
	}
	return NewChannel(control, messages), nil
}

func (c *Channel) Send(m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	b = append(b, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(b); err != nil {
		return fmt.Errorf("failed to send %s message: %w", m.Type, err)
	}
	return nil
}

// Receive calls fn for each message until the reader is exhausted or fn fails.
func (c *Channel) Receive(fn func(Message) error) error {
	return dump.ReadLines(c.r, 0, func(line []byte) error {
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStreamParse, err)
		}
		return fn(m)
	})
}

// Messages delivers received messages on a channel that is closed at end of
// stream. Err reports why the stream ended once the channel is closed.
func (c *Channel) Messages() <-chan Message {
	c.once.Do(func() {
		c.msgs = make(chan Message)
		go func() {
			defer close(c.msgs)
			c.err = c.Receive(func(m Message) error {
				c.msgs <- m
				return nil
			})
		}()
	})
	return c.msgs
}

func (c *Channel) Err() error {
	return c.err
}
