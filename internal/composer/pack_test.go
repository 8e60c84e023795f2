package composer

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"大叔好！今天想我了嗎？", []string{"大叔好！", "今天想我了嗎？"}},
		{"第一句。\n第二句", []string{"第一句。", "第二句"}},
		{"one! two? three", []string{"one!", "two?", "three"}},
		{"   ", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := splitSentences(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("splitSentences(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("splitSentences(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestPackSingleBudget(t *testing.T) {
	long := strings.Repeat("字", 40)
	short := strings.Repeat("字", 10)

	if got := packSingle([]string{long, short}, "def"); got != short {
		t.Errorf("packSingle skipped over-budget candidate wrong: %q", got)
	}
	// No candidate fits: first candidate wins.
	if got := packSingle([]string{long}, "def"); got != long {
		t.Errorf("packSingle = %q, want first candidate", got)
	}
	// No candidates at all: default line.
	if got := packSingle(nil, "def"); got != "def" {
		t.Errorf("packSingle = %q, want default", got)
	}

	// Budget boundary: exactly 35 runes is accepted.
	exact := strings.Repeat("字", 35)
	if got := packSingle([]string{exact}, "def"); got != exact {
		t.Errorf("35-rune sentence rejected")
	}
}

func TestPackMultiBudgets(t *testing.T) {
	s15 := strings.Repeat("一", 15)
	s18 := strings.Repeat("二", 18)
	s19 := strings.Repeat("三", 19)

	// s19 exceeds the per-sentence budget and is filtered out.
	got := packMulti([]string{s19, s15, s18}, 3)
	if len(got) != 2 || got[0] != s15 || got[1] != s18 {
		t.Fatalf("packMulti = %v", got)
	}
	if totalRunes(got) > multiTotalBudget {
		t.Fatalf("total %d exceeds budget", totalRunes(got))
	}

	// Three 15-rune sentences exceed 36 total: the tail is dropped.
	got = packMulti([]string{s15, s15, s15}, 3)
	if len(got) != 2 {
		t.Fatalf("packMulti kept %d sentences, want 2", len(got))
	}

	// Mode caps how many are taken even when all fit.
	got = packMulti([]string{"a", "b", "c"}, 2)
	if len(got) != 2 {
		t.Fatalf("mode 2 took %d sentences", len(got))
	}

	// Nothing fits: empty result for the caller to substitute.
	if got := packMulti([]string{s19}, 2); len(got) != 0 {
		t.Fatalf("packMulti = %v, want empty", got)
	}
}

func TestNormalizeSentence(t *testing.T) {
	cases := map[string]string{
		"抱抱～":    "抱抱",
		"抱抱啦":    "抱抱",
		"抱抱喔耶":   "抱抱",
		"想你嘛！":   "想你",
		"晚安。":    "晚安",
		"plain":  "plain",
		" 空白～ ":  "空白",
		"～":      "",
	}
	for in, want := range cases {
		if got := normalizeSentence(in); got != want {
			t.Errorf("normalizeSentence(%q) = %q, want %q", in, got, want)
		}
	}
}
