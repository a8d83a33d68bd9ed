package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// GameName identifies the title a layout belongs to
type GameName string

const (
	GameNone                     GameName = "None"
	GameIRacing                  GameName = "iRacing"
	GameAssettoCorsa             GameName = "Assetto Corsa"
	GameAssettoCorsaCompetizione GameName = "Assetto Corsa Competizione"
	GameLeMansUltimate           GameName = "Le Mans Ultimate"
	GameRFactor2                 GameName = "rFactor 2"
	GameAutomobilista2           GameName = "Automobilista 2"
	GameF124                     GameName = "F1 24"
)

// AllGameNames returns every selectable game, excluding GameNone
func AllGameNames() []GameName {
	return []GameName{
		GameIRacing,
		GameAssettoCorsa,
		GameAssettoCorsaCompetizione,
		GameLeMansUltimate,
		GameRFactor2,
		GameAutomobilista2,
		GameF124,
	}
}

// IsValid checks if the game name is one of the known games or GameNone
func (g GameName) IsValid() bool {
	switch g {
	case GameNone,
		GameIRacing,
		GameAssettoCorsa,
		GameAssettoCorsaCompetizione,
		GameLeMansUltimate,
		GameRFactor2,
		GameAutomobilista2,
		GameF124:
		return true
	default:
		return false
	}
}

// IsNone reports whether no game is selected
func (g GameName) IsNone() bool {
	return g == "" || g == GameNone
}

// DirName returns the sanitized directory name used for the game's layouts.
// Every character outside [A-Za-z0-9] becomes an underscore.
func (g GameName) DirName() string {
	var b strings.Builder
	for _, r := range string(g) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// String returns the string representation of the game name
func (g GameName) String() string {
	return string(g)
}

// ParseGameName parses a display name or a sanitized directory name into a GameName
func ParseGameName(s string) (GameName, error) {
	if s == "" {
		return GameNone, nil
	}
	game := GameName(s)
	if game.IsValid() {
		return game, nil
	}
	for _, candidate := range AllGameNames() {
		if candidate.DirName() == strings.ToLower(s) {
			return candidate, nil
		}
	}
	return "", goerr.New("invalid game name", goerr.V("game", s))
}
