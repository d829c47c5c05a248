package game

import "fmt"

// Event types emitted by the state machine. PlayerTurn names the player
// expected to act next (-1 when no single player is designated).
const (
	EventGameCreated   = "GameCreated"
	EventGameStarted   = "GameStarted"
	EventRegister      = "Register"
	EventPlayerTurn    = "PlayerTurn"
	EventDeckUpdated   = "DeckUpdated"
	EventDealRequested = "DealRequested"
	EventCardDealt     = "CardDealt"
	EventCardOpened    = "CardOpened"
	EventGameComplete  = "GameComplete"
	EventGameErrored   = "GameErrored"
)

// Event is a structured notification produced by a successful transition.
type Event struct {
	Type       string
	Attributes map[string]string
}

func newEvent(typ string, attrs map[string]string) Event {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return Event{Type: typ, Attributes: attrs}
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}

func utoa(v uint64) string {
	return fmt.Sprintf("%d", v)
}

func playerTurnEvent(gameID uint64, playerIndex int, phase string) Event {
	return newEvent(EventPlayerTurn, map[string]string{
		"gameId":      utoa(gameID),
		"playerIndex": itoa(playerIndex),
		"state":       phase,
	})
}
