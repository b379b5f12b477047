// Package parser converts command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"

	"github.com/nathoo/cosmicisles/types"
)

var directionExpansions = map[string]string{
	"n":  "north",
	"s":  "south",
	"e":  "east",
	"w":  "west",
	"ne": "northeast",
	"nw": "northwest",
	"se": "southeast",
	"sw": "southwest",
	"u":  "north",
	"d":  "south",
}

// Full direction names that are standalone shortcuts for "go <dir>".
var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
	"up": true, "down": true, "left": true, "right": true,
}

var verbAliases = map[string]string{
	// Look / Examine
	"l":        "look",
	"x":        "examine",
	"inspect":  "examine",
	"check":    "examine",
	"study":    "examine",
	"describe": "examine",

	// Movement
	"walk": "go",
	"run":  "go",
	"move": "go",
	"head": "go",
	"step": "go",

	// Approach
	"goto":     "approach",
	"reach":    "approach",
	"follow":   "approach",
	"hover":    "approach",
	"stand":    "approach",
	"near":     "approach",
	"approach": "approach",

	// Talk
	"ask":   "talk",
	"speak": "talk",
	"chat":  "talk",
	"greet": "talk",
	"hello": "talk",
	"hi":    "talk",

	// Use: concealers, items, exits and NPCs alike
	"open":     "use",
	"search":   "use",
	"tap":      "use",
	"touch":    "use",
	"click":    "use",
	"press":    "use",
	"part":     "use",
	"lift":     "use",
	"activate": "use",

	// Take
	"get":     "take",
	"grab":    "take",
	"catch":   "take",
	"collect": "take",

	// Choose
	"pick":   "choose",
	"select": "choose",
	"try":    "choose",

	// Exit
	"leave": "exit",
	"enter": "exit",
	"out":   "exit",

	// Miscellaneous
	"inv":    "inventory",
	"i":      "inventory",
	"badges": "inventory",
	"items":  "inventory",
	"z":      "wait",
	"rest":   "wait",
	"idle":   "wait",
	"ok":     "dismiss",
	"bye":    "dismiss",
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "from": true,
	"about": true, "under": true, "behind": true,
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

	// Direction shortcut: bare "n", "south", etc. → go <direction>
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return types.Intent{Verb: "go", Object: dir}
		}
		if directionNames[words[0]] {
			return types.Intent{Verb: "go", Object: words[0]}
		}
	}

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)
	if len(words) == 0 {
		return types.Intent{}
	}

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	// "go n" and friends expand the short direction as an object.
	if verb == "go" && len(rest) == 1 {
		if dir, ok := directionExpansions[rest[0]]; ok {
			rest[0] = dir
		}
	}

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
		switch words[1] {
		case "at":
			return append([]string{"examine"}, words[2:]...)
		case "in", "under", "behind", "inside":
			return append([]string{"use"}, words[2:]...)
		}
	case "pick":
		if words[1] == "up" {
			return append([]string{"take"}, words[2:]...)
		}
	case "talk", "speak", "chat":
		if words[1] == "to" || words[1] == "with" {
			return append([]string{"talk"}, words[2:]...)
		}
	case "go", "walk", "run", "move", "head":
		if words[1] == "to" || words[1] == "toward" || words[1] == "towards" {
			return append([]string{"approach"}, words[2:]...)
		}
		if words[1] == "through" || words[1] == "out" {
			return append([]string{"exit"}, words[2:]...)
		}
	case "stand", "wait":
		if words[1] == "near" || words[1] == "by" || words[1] == "under" {
			return append([]string{"approach"}, words[2:]...)
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
