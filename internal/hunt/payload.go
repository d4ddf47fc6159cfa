package hunt

// Payload is the closed set of quick reply payloads the bot emits.
type Payload int

const (
	PayloadUnknown Payload = iota
	PayloadSanFrancisco
	PayloadBoston
	PayloadSanDiego
	PayloadOther
	PayloadReadyForClue
	PayloadNotReadyForClue
	PayloadRestart
	PayloadContinue
)

var payloadWire = map[Payload]string{
	PayloadSanFrancisco:    "SAN_FRANCISCO",
	PayloadBoston:          "BOSTON",
	PayloadSanDiego:        "SAN_DIEGO",
	PayloadOther:           "OTHER",
	PayloadReadyForClue:    "READY_FOR_CLUE",
	PayloadNotReadyForClue: "NOT_READY_FOR_CLUE",
	PayloadRestart:         "RESTART",
	PayloadContinue:        "CONTINUE",
}

// PostbackGetStarted is the only postback payload the bot reacts to.
const PostbackGetStarted = "GET_STARTED"

// ParsePayload maps a wire payload to its Payload. Unrecognised values yield
// PayloadUnknown.
func ParsePayload(s string) Payload {
	for p, wire := range payloadWire {
		if wire == s {
			return p
		}
	}
	return PayloadUnknown
}

// String returns the wire form of p, or "" for PayloadUnknown.
func (p Payload) String() string {
	return payloadWire[p]
}

// City reports the city selected by p, if p is a city payload.
func (p Payload) City() (City, bool) {
	switch p {
	case PayloadSanFrancisco:
		return CitySanFrancisco, true
	case PayloadBoston:
		return CityBoston, true
	case PayloadSanDiego:
		return CitySanDiego, true
	case PayloadOther:
		return CityOther, true
	}
	return "", false
}
