package ranking

import (
	"regexp"

	"github.com/roboticshub/newsfeed/app/database"
)

// competitionPrograms in deterministic inference order.
var competitionPrograms = []string{"fll", "ftc", "frc"}

var programPatterns = map[string]*regexp.Regexp{
	"fll": regexp.MustCompile(`(?i)(^|\b)fll(\b|$)`),
	"ftc": regexp.MustCompile(`(?i)(^|\b)ftc(\b|$)`),
	"frc": regexp.MustCompile(`(?i)(^|\b)frc(\b|$)`),
}

// InferPrograms scans interest words for whole-word program mentions and
// returns the selected programs, if any.
func InferPrograms(interests []string) []string {
	var selected []string
	for _, program := range competitionPrograms {
		pattern := programPatterns[program]
		for _, word := range interests {
			if pattern.MatchString(word) {
				selected = append(selected, program)
				break
			}
		}
	}
	return selected
}

// ProgramsForQuery widens a non-empty selection with "general" for the store
// query; an empty selection means no program filter at all.
func ProgramsForQuery(selected []string) []string {
	if len(selected) == 0 {
		return nil
	}
	return append(append([]string{}, selected...), "general")
}

// FilterByPrograms keeps general items plus those matching a selected
// program. If filtering would empty a non-empty candidate set, the unfiltered
// set is returned instead: degrade gracefully rather than show nothing.
func FilterByPrograms(items []database.Item, selected []string) []database.Item {
	if len(selected) == 0 {
		return items
	}

	allowed := make(map[string]bool, len(selected)+1)
	for _, program := range selected {
		allowed[program] = true
	}
	allowed["general"] = true

	filtered := make([]database.Item, 0, len(items))
	for _, item := range items {
		program := item.Program
		if program == "" {
			program = "general"
		}
		if allowed[program] {
			filtered = append(filtered, item)
		}
	}

	if len(filtered) == 0 {
		return items
	}
	return filtered
}
