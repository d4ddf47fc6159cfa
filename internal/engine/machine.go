package engine

import (
	"fmt"
	"strings"

	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
)

type InputKind int

const (
	InputText InputKind = iota + 1
	InputQuickReply
	InputLocation
	InputPostback
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputQuickReply:
		return "quick_reply"
	case InputLocation:
		return "location"
	case InputPostback:
		return "postback"
	}
	return "unknown"
}

// Input is one decoded inbound event.
type Input struct {
	Kind        InputKind
	Text        string
	Payload     hunt.Payload
	RawPayload  string
	Coordinates hunt.Coordinate
}

// Outcome is the result of a single transition. Fault records a recovered
// problem; the replies already account for it.
type Outcome struct {
	Progress hunt.Progress
	Replies  []messenger.Content
	Reset    bool
	Fault    error
}

// Scope selects which city's prize locations a shared location is matched
// against.
type Scope int

const (
	// ScopeFixed always matches against the configured resolve city.
	ScopeFixed Scope = iota
	// ScopeSelected matches against the city the user picked.
	ScopeSelected
)

// Machine is the conversation transition table. It holds no mutable state.
type Machine struct {
	catalog     hunt.CityCatalog
	resolveCity hunt.City
	scope       Scope
}

func NewMachine(catalog hunt.CityCatalog, resolveCity hunt.City, scope Scope) *Machine {
	if resolveCity == "" {
		resolveCity = hunt.CitySanFrancisco
	}
	return &Machine{catalog: catalog, resolveCity: resolveCity, scope: scope}
}

// State derives the stage p is in, looking up its clue count in the catalog.
// A location the catalog has no clues for under p's city is reported as
// StateUnresolvedLocation.
func (m *Machine) State(p hunt.Progress) hunt.State {
	clues, ok := m.catalog.Clues(p.City, p.Location)
	if !ok && p.Location != "" && p.City != "" && p.City != hunt.CityOther {
		return hunt.StateUnresolvedLocation
	}
	return hunt.StateOf(p, len(clues))
}

// Step applies in to p.
func (m *Machine) Step(p hunt.Progress, in Input) Outcome {
	switch in.Kind {
	case InputQuickReply:
		return m.quickReply(p, in)
	case InputText:
		if strings.Contains(strings.ToLower(in.Text), "start over") {
			return Outcome{Progress: p, Replies: []messenger.Content{restartConfirmation()}}
		}
		return m.check(p)
	case InputLocation:
		return m.resolveLocation(p, in.Coordinates)
	case InputPostback:
		if in.RawPayload == hunt.PostbackGetStarted {
			return Outcome{Progress: p, Replies: []messenger.Content{cityPrompt("")}}
		}
		return Outcome{Progress: p}
	}
	return Outcome{Progress: p, Fault: fmt.Errorf("%w: input kind %d", messenger.ErrMalformedEvent, in.Kind)}
}

func (m *Machine) quickReply(p hunt.Progress, in Input) Outcome {
	switch in.Payload {
	case hunt.PayloadSanFrancisco, hunt.PayloadBoston, hunt.PayloadSanDiego:
		p.City, _ = in.Payload.City()
		return Outcome{Progress: p, Replies: []messenger.Content{locationPrompt("")}}
	case hunt.PayloadOther:
		p.City = hunt.CityOther
		return Outcome{Progress: p, Replies: []messenger.Content{messenger.Text(textNotActiveCity)}}
	case hunt.PayloadReadyForClue:
		return m.deliverClue(p)
	case hunt.PayloadNotReadyForClue:
		return Outcome{Progress: p, Replies: []messenger.Content{messenger.Text(textNotReady)}}
	case hunt.PayloadRestart:
		p.Reset()
		return Outcome{Progress: p, Reset: true, Replies: []messenger.Content{messenger.Text(textRestarted)}}
	case hunt.PayloadContinue:
		out := m.check(p)
		out.Replies = append([]messenger.Content{messenger.Text(textContinue)}, out.Replies...)
		return out
	default: // hunt.PayloadUnknown
		return Outcome{
			Progress: p,
			Replies:  []messenger.Content{messenger.Text(textUnknown), cityPrompt("")},
			Fault:    fmt.Errorf("%w: %q", hunt.ErrUnknownPayload, in.RawPayload),
		}
	}
}

// check emits the prompt matching the current stage without changing p.
func (m *Machine) check(p hunt.Progress) Outcome {
	clueCount := 0
	if p.City != "" && p.City != hunt.CityOther && p.Location != "" {
		clues, ok := m.catalog.Clues(p.City, p.Location)
		if !ok {
			return m.missingClues(p)
		}
		clueCount = len(clues)
	}

	var reply messenger.Content
	switch hunt.StateOf(p, clueCount) {
	case hunt.StateNeedCity:
		reply = cityPrompt(needCityPreText)
	case hunt.StateExcluded:
		reply = messenger.Text(textExcluded)
	case hunt.StateNeedLocation:
		reply = locationPrompt(needLocationPreText)
	case hunt.StateAwaitingFirstClue:
		reply = firstClueReadyPrompt()
	case hunt.StateAwaitingNextClue:
		reply = nextClueReadyPrompt()
	case hunt.StateAwaitingPrizePhoto:
		reply = messenger.Text(textSendPhoto)
	}
	return Outcome{Progress: p, Replies: []messenger.Content{reply}}
}

func (m *Machine) missingClues(p hunt.Progress) Outcome {
	return Outcome{
		Progress: p,
		Replies:  []messenger.Content{missingCluesText(p.Location)},
		Fault:    fmt.Errorf("%w: no clues for %q in %q", hunt.ErrUnresolvedLocation, p.Location, p.City),
	}
}

func (m *Machine) deliverClue(p hunt.Progress) Outcome {
	if p.City == "" || p.City == hunt.CityOther || p.Location == "" {
		out := m.check(p)
		out.Fault = fmt.Errorf("%w: clue requested in state %s", hunt.ErrUnresolvedLocation, hunt.StateOf(p, 0))
		return out
	}

	clues, ok := m.catalog.Clues(p.City, p.Location)
	if !ok {
		return m.missingClues(p)
	}
	if p.ClueCursor >= len(clues) {
		return m.check(p)
	}

	ordinal := "next"
	switch p.ClueCursor {
	case 0:
		ordinal = "first"
	case len(clues) - 1:
		ordinal = "last"
	}
	reply := clueText(ordinal, clues[p.ClueCursor])
	p.ClueCursor++
	return Outcome{Progress: p, Replies: []messenger.Content{reply}}
}

func (m *Machine) resolveLocation(p hunt.Progress, point hunt.Coordinate) Outcome {
	city := m.resolveCity
	if m.scope == ScopeSelected && p.City != "" && p.City != hunt.CityOther {
		city = p.City
	}

	loc, err := hunt.Nearest(point, m.catalog.Locations(city))
	if err != nil {
		return Outcome{
			Progress: p,
			Replies:  []messenger.Content{messenger.Text(textNoLocations)},
			Fault:    fmt.Errorf("resolving location in %s: %w", city, err),
		}
	}

	p.Location = loc.Name
	return Outcome{Progress: p, Replies: []messenger.Content{headToText(loc.Name)}}
}
