package hunt

type State int

const (
	StateNeedCity State = iota
	StateExcluded
	StateNeedLocation
	StateAwaitingFirstClue
	StateAwaitingNextClue
	StateAwaitingPrizePhoto
	// StateUnresolvedLocation marks a stored location that has no clues in
	// the user's city. StateOf never returns it; it needs a catalog lookup.
	StateUnresolvedLocation
)

var stateNames = map[State]string{
	StateNeedCity:           "need_city",
	StateExcluded:           "excluded",
	StateNeedLocation:       "need_location",
	StateAwaitingFirstClue:  "awaiting_first_clue",
	StateAwaitingNextClue:   "awaiting_next_clue",
	StateAwaitingPrizePhoto: "awaiting_prize_photo",
	StateUnresolvedLocation: "unresolved_location",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateOf derives the conversation stage from p. clueCount is the length of
// the clue sequence for p's resolved location and is only consulted once a
// location is set.
func StateOf(p Progress, clueCount int) State {
	switch {
	case p.City == "":
		return StateNeedCity
	case p.City == CityOther:
		return StateExcluded
	case p.Location == "":
		return StateNeedLocation
	case p.ClueCursor == 0:
		return StateAwaitingFirstClue
	case p.ClueCursor < clueCount:
		return StateAwaitingNextClue
	default:
		return StateAwaitingPrizePhoto
	}
}
