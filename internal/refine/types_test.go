package refine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLocationJSONShape(t *testing.T) {
	s, e, l := 3, 9, 1
	located := Location{CharStart: &s, CharEnd: &e, Line: &l, MatchType: MatchExact, Confidence: 1.0}

	data, err := json.Marshal(located)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"char_interval":[3,9]`) {
		t.Fatalf("missing char_interval tuple: %s", data)
	}

	unlocated := Location{MatchType: MatchNone, Confidence: 0.1}
	data, _ = json.Marshal(unlocated)
	if !strings.Contains(string(data), `"char_interval":[null,null]`) {
		t.Fatalf("unlocated interval must be nulls: %s", data)
	}
}

func TestLocationUnmarshalFromIntervalOnly(t *testing.T) {
	var loc Location
	raw := `{"char_interval":[5,12],"match_type":"exact","confidence":1.0}`
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	start, end, ok := loc.Interval()
	if !ok || start != 5 || end != 12 {
		t.Fatalf("expected interval (5,12), got (%d,%d,%v)", start, end, ok)
	}
}

func TestPopulatedAttrs(t *testing.T) {
	cases := []struct {
		item *Item
		want int
	}{
		{&Item{}, 0},
		{&Item{Text: "only text", Type: TypeEntity, Confidence: 0.9}, 0},
		{&Item{Summary: "s"}, 1},
		{&Item{From: "a", To: "b"}, 2},
		{&Item{Attributes: map[string]any{"company": "ByteDance", "empty": "", "zero": 0.0, "n": 3.0}}, 2},
	}
	for i, tc := range cases {
		if got := tc.item.populatedAttrs(); got != tc.want {
			t.Errorf("case %d: populatedAttrs = %d, want %d", i, got, tc.want)
		}
	}
}
