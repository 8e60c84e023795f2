package mood

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyDeterministic(t *testing.T) {
	e := NewEngine(nil)
	for i := 0; i < 3; i++ {
		if got := e.Classify("我今天好累"); got != TagTired {
			t.Fatalf("Classify = %v, want tired", got)
		}
	}
}

func TestClassifyOrderRespecting(t *testing.T) {
	// Both rules match; the earlier rule in the table must win.
	rules := []Rule{
		{Tag: TagTired, Keywords: []string{"累"}},
		{Tag: TagLove, Keywords: []string{"想你"}},
	}
	e := NewEngine(rules)
	if got := e.Classify("好累，但還是想你"); got != TagTired {
		t.Fatalf("Classify = %v, want tired (first rule wins)", got)
	}

	reversed := []Rule{rules[1], rules[0]}
	e2 := NewEngine(reversed)
	if got := e2.Classify("好累，但還是想你"); got != TagLove {
		t.Fatalf("Classify = %v, want love after reorder", got)
	}
}

func TestIsQuestionRoutesAroundMoodTable(t *testing.T) {
	e := NewEngine(nil)
	if !e.IsQuestion("大叔在哪裡？") {
		t.Fatal("IsQuestion = false, want true")
	}
	// Carries a mood keyword too, but the question marker must win.
	if got := e.Classify("想你，你在哪裡？"); got != TagQuestion {
		t.Fatalf("Classify = %v, want question", got)
	}
	for _, text := range []string{"現在幾點", "這個多少錢", "為什麼不理我"} {
		if got := e.Classify(text); got != TagQuestion {
			t.Errorf("Classify(%q) = %v, want question", text, got)
		}
	}
}

func TestClassifyNone(t *testing.T) {
	e := NewEngine(nil)
	if got := e.Classify("今天天氣不錯"); got != TagNone {
		t.Fatalf("Classify = %v, want none", got)
	}
}

func TestCannedEligible(t *testing.T) {
	if CannedEligible(TagQuestion) || CannedEligible(TagNone) {
		t.Fatal("question/none must not be canned-eligible")
	}
	if !CannedEligible(TagTired) || !CannedEligible(TagGreetNight) {
		t.Fatal("mood tags must be canned-eligible")
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
- tag: tired
  keywords: ["累"]
- tag: love
  keywords: ["想你"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	if len(rules) != 2 || rules[0].Tag != TagTired || rules[1].Tag != TagLove {
		t.Fatalf("rules = %+v", rules)
	}
}

func TestLoadRulesEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for empty rule table")
	}
}

func TestToneForCoversEveryMoodTag(t *testing.T) {
	for _, tag := range []Tag{TagTired, TagSad, TagAngry, TagHappy, TagBored, TagLove, TagCare, TagGreetMorning, TagGreetNight} {
		if ToneFor(tag) == "" {
			t.Errorf("ToneFor(%v) is empty", tag)
		}
	}
	if ToneFor(TagNone) != "" || ToneFor(TagQuestion) != "" {
		t.Error("none/question must have no fixed tone directive")
	}
}

func TestAffectObserveAndDecay(t *testing.T) {
	a := NewAffect(nil)
	for i := 0; i < 5; i++ {
		a.Observe("好想你，愛你")
	}
	if a.Label() != "開心又興奮" {
		t.Fatalf("Label = %q after affection burst", a.Label())
	}

	// Neutral input decays the state back toward calm.
	for i := 0; i < 50; i++ {
		a.Observe("嗯")
	}
	if a.Label() != "平靜" {
		t.Fatalf("Label = %q, want 平靜 after decay", a.Label())
	}
	if a.Tone() != "用自然語氣回覆" {
		t.Fatalf("Tone = %q", a.Tone())
	}
}

func TestAffectNegativeQuadrant(t *testing.T) {
	a := NewAffect(nil)
	for i := 0; i < 5; i++ {
		a.Observe("我生氣了，不理我就討厭你")
	}
	if got := a.Label(); got != "生氣或委屈" {
		t.Fatalf("Label = %q, want 生氣或委屈", got)
	}
	if a.Tone() != "用小吃醋語氣回覆" {
		t.Fatalf("Tone = %q", a.Tone())
	}
}

func TestAffectClamped(t *testing.T) {
	a := NewAffect([]AffectRule{{Keywords: []string{"x"}, Delta: AffectDelta{V: 1, A: 1, D: 1}}})
	for i := 0; i < 100; i++ {
		a.Observe("x")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.valence > 1 || a.arousal > 1 || a.dominance > 1 {
		t.Fatalf("axes escaped clamp: v=%v a=%v d=%v", a.valence, a.arousal, a.dominance)
	}
}
