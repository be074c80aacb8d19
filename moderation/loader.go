package moderation

import (
	"bufio"
	"embed"
	"sort"
	"strings"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// WordList is the merged, deduplicated censored vocabulary plus the
// languages it was assembled from.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadDefaultWords reads the embedded per-language censored files.
// One file per language, named by its ISO code.
func LoadDefaultWords() (WordList, error) {
	entries, err := censoredFolder.ReadDir("censored")
	if err != nil {
		return WordList{}, err
	}

	seen := make(map[string]struct{})
	var list WordList
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")
		list.Languages = append(list.Languages, lang)

		file, err := censoredFolder.Open("censored/" + entry.Name())
		if err != nil {
			return WordList{}, err
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			list.Words = append(list.Words, word)
		}
		if err := scanner.Err(); err != nil {
			_ = file.Close()
			return WordList{}, err
		}
		_ = file.Close()
	}

	sort.Strings(list.Words)
	return list, nil
}
