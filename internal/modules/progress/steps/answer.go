package steps

import (
	"encoding/json"
	"sort"
	"strings"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/catalog"
)

// CheckAnswer grades a submitted answer against the item's answer key.
// Multiple-choice answers are a comma separated list compared as a set.
func CheckAnswer(item *types.LessonItem, answer string) (bool, error) {
	if item == nil {
		return false, nil
	}
	var accepted []string
	if len(item.CorrectAnswers) > 0 {
		if err := json.Unmarshal(item.CorrectAnswers, &accepted); err != nil {
			return false, err
		}
	}
	if len(accepted) == 0 {
		return false, nil
	}
	switch item.Kind {
	case catalog.ItemKindMultipleChoice:
		return sameSet(splitChoices(answer), normalizeAll(accepted)), nil
	default:
		got := normalize(answer)
		if got == "" {
			return false, nil
		}
		for _, a := range accepted {
			if normalize(a) == got {
				return true, nil
			}
		}
		return false, nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitChoices(answer string) []string {
	return normalizeAll(strings.Split(answer, ","))
}

func sameSet(a, b []string) bool {
	a = dedupe(a)
	b = dedupe(b)
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
