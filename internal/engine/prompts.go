package engine

import (
	"fmt"

	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
)

const (
	needCityPreText     = "I need to know which city you're in to get started."
	needLocationPreText = "I am going to need to know your location so I can send you to your prize."

	textNotActiveCity = "Sorry, you are not located in one of our active cities."
	textExcluded      = "Sorry, you're not located in one of our active cities. " +
		"Remember you can always type 'start over' to change your current city."
	textNotReady     = "I'm ready when you're ready, let me know when you're ready for your clue."
	textRestarted    = "Okay, I've restarted your progress. Let me know when you're ready to start again."
	textContinue     = "Great! Let's get back to it."
	textUnknown      = "I'm not quite sure what that means"
	textSendPhoto    = "Send me a picture of your prize!"
	textNoLocations  = "Sorry, there are no prize locations set up near you yet."
	textRestartAsk   = "Are you sure you want to restart?"
	textFirstClueAsk = "You made it? Are you sure you're ready for your first clue?"
	textNextClueAsk  = "Are you sure you're ready for the next clue?"
)

func withPreText(preText, text string) string {
	if preText == "" {
		return text
	}
	return preText + " " + text
}

func cityPrompt(preText string) messenger.Content {
	return messenger.Content{
		Text: withPreText(preText, "Which city are you located in?"),
		QuickReplies: []messenger.QuickReply{
			messenger.TextReply("San Francisco", hunt.PayloadSanFrancisco.String()),
			messenger.TextReply("Boston", hunt.PayloadBoston.String()),
			messenger.TextReply("San Diego", hunt.PayloadSanDiego.String()),
			messenger.TextReply("Other", hunt.PayloadOther.String()),
		},
	}
}

func locationPrompt(preText string) messenger.Content {
	return messenger.Content{
		Text:         withPreText(preText, "Share your location, so I can give you your first clue."),
		QuickReplies: []messenger.QuickReply{messenger.LocationReply()},
	}
}

func yesNo(text string, yes, no hunt.Payload) messenger.Content {
	return messenger.Content{
		Text: text,
		QuickReplies: []messenger.QuickReply{
			messenger.TextReply("Yes", yes.String()),
			messenger.TextReply("No", no.String()),
		},
	}
}

func firstClueReadyPrompt() messenger.Content {
	return yesNo(textFirstClueAsk, hunt.PayloadReadyForClue, hunt.PayloadNotReadyForClue)
}

func nextClueReadyPrompt() messenger.Content {
	return yesNo(textNextClueAsk, hunt.PayloadReadyForClue, hunt.PayloadNotReadyForClue)
}

func restartConfirmation() messenger.Content {
	return yesNo(textRestartAsk, hunt.PayloadRestart, hunt.PayloadContinue)
}

func clueText(ordinal, clue string) messenger.Content {
	return messenger.Text(fmt.Sprintf("Here's your %s clue: %s", ordinal, clue))
}

func headToText(location string) messenger.Content {
	return messenger.Text(fmt.Sprintf("Head to %s and let me know when you arrive so I can give you a set of clues.", location))
}

func missingCluesText(location string) messenger.Content {
	return messenger.Text(fmt.Sprintf("I couldn't find the clues for %s. Type 'start over' to pick your city again.", location))
}
