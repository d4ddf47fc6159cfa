// Command huntsim plays the scavenger hunt conversation in a terminal,
// standing in for the messaging platform.
//
// Lines typed are sent as text messages. Commands:
//
//	/start          tap "Get Started"
//	/qr PAYLOAD     tap a quick reply, e.g. /qr SAN_FRANCISCO
//	/loc LAT,LONG   share a location
//	/state          show stored progress
//	/reset          clear progress
//	/quit           exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/playperu/scavengerbot/internal/catalog"
	"github.com/playperu/scavengerbot/internal/engine"
	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
	"github.com/playperu/scavengerbot/internal/progress"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fl := flag.NewFlagSet("huntsim", flag.ContinueOnError)
	fl.SetOutput(stdout)
	catalogPath := fl.String("catalog", "", "catalog file (.yaml, .yml or .toml); embedded default when empty")
	senderID := fl.String("sender", "sim-user", "sender id to play as")
	resolveCity := fl.String("resolve-city", string(hunt.CitySanFrancisco), "city whose prize locations shared locations are matched against")
	selected := fl.Bool("selected-city", false, "match shared locations against the chosen city")
	verbose := fl.Bool("v", false, "log engine warnings")
	if err := fl.Parse(args); err != nil {
		return err
	}

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if err := catalog.RequireCity(cat, hunt.City(*resolveCity)); err != nil {
		return fmt.Errorf("checking -resolve-city: %w", err)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scope := engine.ScopeFixed
	if *selected {
		scope = engine.ScopeSelected
	}

	console := newConsole(stdout)
	eng := engine.New(cat, progress.NewMemoryStore(), console, logger,
		engine.WithResolveCity(hunt.City(*resolveCity), scope),
		engine.WithObserver(console.transition),
	)

	sim := &simulator{engine: eng, console: console, senderID: *senderID}
	return sim.loop(ctx, stdin)
}

type simulator struct {
	engine   *engine.Engine
	console  *console
	senderID string
	seq      int
}

func (s *simulator) loop(ctx context.Context, stdin io.Reader) error {
	s.console.info("Playing as %s. Type /start to begin, /quit to leave.", s.senderID)

	scanner := bufio.NewScanner(stdin)
	for {
		s.console.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		if err := s.dispatch(ctx, line); err != nil {
			s.console.problem(err)
		}
	}
}

func (s *simulator) dispatch(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/start":
		return s.engine.Handle(ctx, messenger.Event{
			Sender:   messenger.Party{ID: s.senderID},
			Postback: &messenger.Postback{Payload: hunt.PostbackGetStarted},
		})
	case "/qr":
		if arg == "" {
			return errors.New("usage: /qr PAYLOAD")
		}
		return s.engine.Handle(ctx, s.message(messenger.InboundMessage{
			Text:       arg,
			QuickReply: &messenger.QuickReplyPayload{Payload: strings.ToUpper(arg)},
		}))
	case "/loc":
		c, err := parseCoordinate(arg)
		if err != nil {
			return err
		}
		return s.engine.Handle(ctx, s.message(messenger.InboundMessage{
			Attachments: []messenger.InboundAttachment{{
				Type:    "location",
				Payload: messenger.AttachmentPayload{Coordinates: &c},
			}},
		}))
	case "/state":
		p, state, err := s.engine.Progress(ctx, s.senderID)
		if err != nil {
			return err
		}
		s.console.info("state=%s city=%q location=%q clue=%d", state, p.City, p.Location, p.ClueCursor)
		return nil
	case "/reset":
		if err := s.engine.Reset(ctx, s.senderID); err != nil {
			return err
		}
		s.console.info("progress cleared")
		return nil
	}

	if strings.HasPrefix(cmd, "/") {
		return fmt.Errorf("unknown command %s", cmd)
	}
	return s.engine.Handle(ctx, s.message(messenger.InboundMessage{Text: line}))
}

func (s *simulator) message(m messenger.InboundMessage) messenger.Event {
	s.seq++
	m.MID = "sim." + strconv.Itoa(s.seq)
	return messenger.Event{
		Sender:  messenger.Party{ID: s.senderID},
		Message: &m,
	}
}

func parseCoordinate(s string) (hunt.Coordinate, error) {
	latStr, longStr, ok := strings.Cut(s, ",")
	if !ok {
		return hunt.Coordinate{}, errors.New("usage: /loc LAT,LONG")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return hunt.Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(longStr), 64)
	if err != nil {
		return hunt.Coordinate{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return hunt.Coordinate{}, fmt.Errorf("coordinate %g,%g out of range", lat, long)
	}
	return hunt.Coordinate{Lat: lat, Long: long}, nil
}
