// Package parser converts typed commands into Intent structs for the
// point-and-click verb set. Intentionally dumb: no NLP, just pattern
// matching.
package parser

import (
	"strings"

	"github.com/nathoo/scriptcore/types"
)

// Canonical verbs.
const (
	LookAt = "lookat"
	PickUp = "pickup"
	TalkTo = "talkto"
	Use    = "use"
	Open   = "open"
	Close  = "close"
	Push   = "push"
	Pull   = "pull"
	Give   = "give"
	Leave  = "leave"
	Goto   = "goto"
	Drop   = "drop"
)

var verbAliases = map[string]string{
	// Look
	"look":    LookAt,
	"l":       LookAt,
	"x":       LookAt,
	"examine": LookAt,
	"inspect": LookAt,
	"check":   LookAt,
	"read":    LookAt,

	// Pick up
	"take":  PickUp,
	"get":   PickUp,
	"grab":  PickUp,
	"pick":  PickUp,
	"carry": PickUp,

	// Talk
	"talk":  TalkTo,
	"speak": TalkTo,
	"ask":   TalkTo,
	"chat":  TalkTo,

	// Use
	"apply":   Use,
	"combine": Use,
	"put":     Use,

	// Open / Close
	"unlock": Open,
	"shut":   Close,
	"lock":   Close,

	// Push / Pull
	"press": Push,
	"shove": Push,
	"drag":  Pull,
	"tug":   Pull,
	"yank":  Pull,

	// Drop
	"discard": Drop,

	// Give
	"offer": Give,
	"hand":  Give,

	// Leave
	"go":    Leave,
	"exit":  Leave,
	"enter": Leave,
	"walk":  Leave,
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "into": true,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	// Use the first preposition as a delimiter between object and target.
	object, target := splitOnPreposition(rest)

	return types.Intent{
		Verb:   verb,
		Object: object,
		Target: target,
	}
}

// expandMultiWordVerbs handles "look at", "pick up", "talk to" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "look":
		if words[1] == "at" || words[1] == "in" || words[1] == "under" {
			return append([]string{LookAt}, words[2:]...)
		}
	case "pick":
		if words[1] == "up" {
			return append([]string{PickUp}, words[2:]...)
		}
	case "talk", "speak", "chat":
		if words[1] == "to" || words[1] == "with" {
			return append([]string{TalkTo}, words[2:]...)
		}
	case "go", "walk":
		if words[1] == "to" || words[1] == "through" {
			return append([]string{Leave}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if prepositions[w] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
