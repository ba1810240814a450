package steps

import (
	"encoding/json"
	"testing"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/catalog"
)

func item(t *testing.T, kind string, answers ...string) *types.LessonItem {
	t.Helper()
	raw, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &types.LessonItem{Kind: kind, CorrectAnswers: raw}
}

func TestCheckAnswer(t *testing.T) {
	cases := []struct {
		name   string
		item   *types.LessonItem
		answer string
		want   bool
	}{
		{"single exact", item(t, catalog.ItemKindSingleChoice, "b"), "b", true},
		{"single case and space", item(t, catalog.ItemKindSingleChoice, "Option B"), "  option   b ", true},
		{"single wrong", item(t, catalog.ItemKindSingleChoice, "b"), "c", false},
		{"text any accepted", item(t, catalog.ItemKindText, "vaccine", "vaccines"), "Vaccines", true},
		{"multiple same set", item(t, catalog.ItemKindMultipleChoice, "a", "c"), "c, a", true},
		{"multiple subset", item(t, catalog.ItemKindMultipleChoice, "a", "c"), "a", false},
		{"multiple superset", item(t, catalog.ItemKindMultipleChoice, "a", "c"), "a,b,c", false},
		{"no key", &types.LessonItem{Kind: catalog.ItemKindSingleChoice}, "a", false},
	}
	for _, tc := range cases {
		got, err := CheckAnswer(tc.item, tc.answer)
		if err != nil {
			t.Fatalf("%s: CheckAnswer: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestCheckAnswer_MalformedKey(t *testing.T) {
	it := &types.LessonItem{Kind: catalog.ItemKindSingleChoice, CorrectAnswers: []byte(`{"a":1}`)}
	if _, err := CheckAnswer(it, "a"); err == nil {
		t.Fatalf("expected error for malformed answer key")
	}
}
