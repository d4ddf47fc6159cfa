package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/playperu/scavengerbot/internal/engine"
	"github.com/playperu/scavengerbot/internal/messenger"
)

// console prints bot replies the way the platform would render them. It
// implements messenger.Sender.
type console struct {
	mu  sync.Mutex
	out io.Writer

	bot    *color.Color
	option *color.Color
	meta   *color.Color
	alert  *color.Color
	you    *color.Color
}

func newConsole(out io.Writer) *console {
	return &console{
		out:    out,
		bot:    color.New(color.FgCyan, color.Bold),
		option: color.New(color.FgYellow),
		meta:   color.New(color.FgHiBlack),
		alert:  color.New(color.FgRed),
		you:    color.New(color.FgGreen, color.Bold),
	}
}

func (c *console) Deliver(_ context.Context, msg messenger.Message) messenger.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := msg.Message
	c.bot.Fprint(c.out, "bot> ")
	fmt.Fprintln(c.out, content.Text)

	if len(content.QuickReplies) > 0 {
		opts := make([]string, 0, len(content.QuickReplies))
		for _, qr := range content.QuickReplies {
			if qr.ContentType == messenger.ContentTypeLocation {
				opts = append(opts, "[share location: /loc LAT,LONG]")
				continue
			}
			opts = append(opts, fmt.Sprintf("[%s: /qr %s]", qr.Title, qr.Payload))
		}
		c.option.Fprintln(c.out, "     "+strings.Join(opts, " "))
	}
	return messenger.Result{RecipientID: msg.Recipient.ID}
}

func (c *console) transition(t engine.Transition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta.Fprintf(c.out, "     (%s: %s -> %s)\n", t.Input, t.From, t.To)
}

func (c *console) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.you.Fprint(c.out, "you> ")
}

func (c *console) info(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta.Fprintf(c.out, format+"\n", args...)
}

func (c *console) problem(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alert.Fprintf(c.out, "!! %v\n", err)
}
