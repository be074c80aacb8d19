package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger joined the call",
			expected: "The ****** joined the call",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences",
			input:    "snake meets snake",
			expected: "***** meets *****",
			words:    []string{"snake", "snake"},
		},
		{
			name: "Leet speak and internal punctuation",
			// s (index 0) - n - 4 - k - 3 -> 9 characters masked
			input:    "s-n-4-k-3 in the grass",
			expected: "********* in the grass",
			words:    []string{"snake"},
		},
		{
			name:     "Uppercase is still matched",
			input:    "MUSHROOM soup",
			expected: "******** soup",
			words:    []string{"mushroom"},
		},
		{
			name:     "Clean content is returned untouched",
			input:    "see you all tomorrow at nine",
			expected: "see you all tomorrow at nine",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			sanitized, found := mod.Censor(tt.input)
			req.Equal(tt.expected, sanitized)
			req.Equal(tt.words, found)
		})
	}
}

func TestModerator_Censor_Empty_Content(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger"}, replacementChar, slog.Default())
	req.NoError(err)

	sanitized, found := mod.Censor("")
	req.Equal("", sanitized)
	req.Empty(found)
}

func TestDetectLanguage(t *testing.T) {
	req := require.New(t)
	req.Equal("en", DetectLanguage("hello everyone, shall we start the meeting now"))
	req.Equal("fr", DetectLanguage("bonjour tout le monde, on commence la réunion maintenant"))
}

func TestLoadDefaultWords(t *testing.T) {
	req := require.New(t)
	list, err := LoadDefaultWords()
	req.NoError(err)

	// One language per embedded file, comments skipped, sorted output
	req.Contains(list.Languages, "en")
	req.Contains(list.Languages, "fr")
	req.NotEmpty(list.Words)
	req.Contains(list.Words, "idiot")
	req.NotContains(list.Words, "")
	req.IsIncreasing(list.Words)
}
