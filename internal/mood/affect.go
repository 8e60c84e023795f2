package mood

import (
	"strings"
	"sync"
)

// affectDecay pulls every axis toward the baseline on each observation.
const affectDecay = 0.95

// AffectDelta is one rule's push on the three affect axes.
type AffectDelta struct {
	V float64 `yaml:"v" json:"v"`
	A float64 `yaml:"a" json:"a"`
	D float64 `yaml:"d" json:"d"`
}

type AffectRule struct {
	Keywords []string    `yaml:"keywords" json:"keywords"`
	Delta    AffectDelta `yaml:"delta" json:"delta"`
}

func DefaultAffectRules() []AffectRule {
	return []AffectRule{
		{Keywords: []string{"想你", "愛你", "親", "抱", "喜歡"}, Delta: AffectDelta{V: 0.3, A: 0.2, D: 0.1}},
		{Keywords: []string{"好累", "難過", "煩", "不舒服"}, Delta: AffectDelta{V: -0.2, A: -0.1, D: -0.1}},
		{Keywords: []string{"忙", "工作", "開會"}, Delta: AffectDelta{V: -0.05, A: 0.05, D: 0.1}},
		{Keywords: []string{"謝謝", "感謝", "辛苦"}, Delta: AffectDelta{V: 0.2, A: 0, D: 0.05}},
		{Keywords: []string{"生氣", "討厭", "不理我"}, Delta: AffectDelta{V: -0.3, A: 0.2, D: -0.2}},
	}
}

// Affect is the persona's own emotional state on the valence/arousal/
// dominance axes, each in [-1,1]. It drifts toward neutral as it observes
// input, so old swings fade. Safe for concurrent use.
type Affect struct {
	mu        sync.Mutex
	valence   float64
	arousal   float64
	dominance float64
	rules     []AffectRule
}

func NewAffect(rules []AffectRule) *Affect {
	if len(rules) == 0 {
		rules = DefaultAffectRules()
	}
	return &Affect{valence: 0.1, arousal: 0.1, dominance: 0.1, rules: rules}
}

// Observe applies every matching rule's delta, then decays all axes.
func (a *Affect) Observe(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rule := range a.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				a.valence = clamp(a.valence+rule.Delta.V, -1, 1)
				a.arousal = clamp(a.arousal+rule.Delta.A, -1, 1)
				a.dominance = clamp(a.dominance+rule.Delta.D, -1, 1)
				break
			}
		}
	}
	a.valence *= affectDecay
	a.arousal *= affectDecay
	a.dominance *= affectDecay
}

// Label describes the current state by valence/arousal quadrant.
func (a *Affect) Label() string {
	a.mu.Lock()
	v, ar := a.valence, a.arousal
	a.mu.Unlock()
	switch {
	case v > 0.3 && ar > 0.2:
		return "開心又興奮"
	case v > 0.3:
		return "溫柔放鬆"
	case v < -0.2 && ar > 0.2:
		return "生氣或委屈"
	case v < -0.2:
		return "有點難過"
	default:
		return "平靜"
	}
}

// Tone returns the tone directive for the current state. Used when no
// keyword rule classified the input.
func (a *Affect) Tone() string {
	label := a.Label()
	switch {
	case strings.Contains(label, "開心"):
		return "用撒嬌語氣回覆"
	case strings.Contains(label, "難過"):
		return "用安慰語氣回覆"
	case strings.Contains(label, "生氣"):
		return "用小吃醋語氣回覆"
	default:
		return "用自然語氣回覆"
	}
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
