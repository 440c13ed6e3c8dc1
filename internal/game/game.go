// Package game maps supported titles and platforms to their archive layout.
package game

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jchantrell/eblextract/internal/bhd5"
)

// Game is a supported title.
type Game int

const (
	GameNone Game = iota
	ArmoredCoreForAnswer
	ArmoredCoreV
	ArmoredCoreVerdictDay
)

// Platform is a supported console.
type Platform int

const (
	PlatformNone Platform = iota
	PlayStation3
	Xbox360
)

var gameNames = map[Game]string{
	ArmoredCoreForAnswer:  "ArmoredCoreForAnswer",
	ArmoredCoreV:          "ArmoredCoreV",
	ArmoredCoreVerdictDay: "ArmoredCoreVerdictDay",
}

var gameAliases = map[string]Game{
	"acfa": ArmoredCoreForAnswer,
	"acv":  ArmoredCoreV,
	"ac5":  ArmoredCoreV,
	"acvd": ArmoredCoreVerdictDay,
}

var platformNames = map[Platform]string{
	PlayStation3: "PlayStation3",
	Xbox360:      "Xbox360",
}

var platformAliases = map[string]Platform{
	"ps3":  PlayStation3,
	"x360": Xbox360,
	"xbox": Xbox360,
}

func (g Game) String() string {
	if name, ok := gameNames[g]; ok {
		return name
	}
	return "None"
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return "None"
}

// ParseGame resolves a game by full name or short alias, case-insensitively.
func ParseGame(s string) (Game, error) {
	s = strings.TrimSpace(s)
	if g, ok := gameAliases[strings.ToLower(s)]; ok {
		return g, nil
	}
	for g, name := range gameNames {
		if strings.EqualFold(name, s) {
			return g, nil
		}
	}
	return GameNone, fmt.Errorf("unsupported game %q: supported games are ArmoredCoreForAnswer, ArmoredCoreV, ArmoredCoreVerdictDay", s)
}

// ParsePlatform resolves a platform by full name or short alias, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	if p, ok := platformAliases[strings.ToLower(s)]; ok {
		return p, nil
	}
	for p, name := range platformNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return PlatformNone, fmt.Errorf("unsupported platform %q: supported platforms are PlayStation3, Xbox360", s)
}

// Format returns the header generation used by the game's archives.
func (g Game) Format() (bhd5.Format, error) {
	switch g {
	case ArmoredCoreV, ArmoredCoreVerdictDay:
		return bhd5.DarkSouls1, nil
	default:
		return 0, fmt.Errorf("game %v has no supported archive format", g)
	}
}

// KeysName returns the asset folder name holding hash lists and keys for a title.
func KeysName(g Game, p Platform) (string, error) {
	var gameStr string
	switch g {
	case ArmoredCoreV:
		gameStr = "ArmoredCore5"
	case ArmoredCoreVerdictDay:
		gameStr = "ArmoredCoreVerdictDay"
	default:
		return "", fmt.Errorf("game %v has no binder keys", g)
	}

	var platformStr string
	switch p {
	case PlayStation3:
		platformStr = "PS3"
	case Xbox360:
		platformStr = "X360"
	default:
		return "", fmt.Errorf("platform %v has no binder keys", p)
	}

	return gameStr + "_" + platformStr, nil
}

// Archive is one header/data pair relative to the game root.
type Archive struct {
	Header string
	Data   string
}

// Name returns the header file name without extension.
func (a Archive) Name() string {
	base := filepath.Base(a.Header)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Archives lists the hash-indexed archives a title ships, relative to the game root.
func Archives(g Game, p Platform) ([]Archive, error) {
	bind := "bind"
	switch g {
	case ArmoredCoreV:
		return []Archive{{
			Header: filepath.Join(bind, "dvdbnd5.bhd"),
			Data:   filepath.Join(bind, "dvdbnd.bdt"),
		}}, nil
	case ArmoredCoreVerdictDay:
		archives := []Archive{{
			Header: filepath.Join(bind, "dvdbnd5_layer0.bhd"),
			Data:   filepath.Join(bind, "dvdbnd_layer0.bdt"),
		}}
		if p == Xbox360 {
			archives = append(archives, Archive{
				Header: filepath.Join(bind, "dvdbnd5_layer1.bhd"),
				Data:   filepath.Join(bind, "dvdbnd_layer1.bdt"),
			})
		}
		return archives, nil
	default:
		return nil, fmt.Errorf("game %v has no hash-indexed archives", g)
	}
}
