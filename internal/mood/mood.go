// Package mood classifies user input into a closed set of mood tags using
// an ordered keyword rule table, and tracks a slow-moving affect state
// that shades reply tone when no rule matches.
package mood

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag is the closed mood/intent classification of one input.
type Tag string

const (
	TagTired        Tag = "tired"
	TagSad          Tag = "sad"
	TagAngry        Tag = "angry"
	TagHappy        Tag = "happy"
	TagBored        Tag = "bored"
	TagLove         Tag = "love"
	TagCare         Tag = "care"
	TagGreetMorning Tag = "greet_morning"
	TagGreetNight   Tag = "greet_night"
	TagQuestion     Tag = "question"
	TagNone         Tag = "none"
)

// Rule pairs a tag with its keyword set. Table order is a contract:
// the first matching rule wins, so e.g. tired outranks love.
type Rule struct {
	Tag      Tag      `yaml:"tag" json:"tag"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// questionMarkers short-circuit mood classification entirely. A question
// must reach the full composer, never a canned emotional quip.
var questionMarkers = []string{"？", "?", "什麼", "為什麼", "哪裡", "誰", "幾點", "多少"}

func DefaultRules() []Rule {
	return []Rule{
		{Tag: TagGreetMorning, Keywords: []string{"早安", "早上好"}},
		{Tag: TagGreetNight, Keywords: []string{"晚安", "要睡了", "去睡了"}},
		{Tag: TagTired, Keywords: []string{"好累", "累死", "好疲勞", "不舒服"}},
		{Tag: TagSad, Keywords: []string{"難過", "傷心", "想哭", "委屈"}},
		{Tag: TagAngry, Keywords: []string{"生氣", "氣死", "討厭", "煩死"}},
		{Tag: TagBored, Keywords: []string{"無聊", "好悶", "發呆"}},
		{Tag: TagLove, Keywords: []string{"愛你", "想你", "親親", "抱抱", "喜歡你"}},
		{Tag: TagCare, Keywords: []string{"辛苦", "加油", "保重", "多喝水"}},
		{Tag: TagHappy, Keywords: []string{"開心", "太好了", "哈哈", "太棒"}},
	}
}

// LoadRules reads an ordered rule table from a YAML or JSON file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mood rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse mood rules %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("mood rules %s: empty table", path)
	}
	return rules, nil
}

type Engine struct {
	rules []Rule
}

func NewEngine(rules []Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// IsQuestion reports whether text carries an interrogative marker.
func (e *Engine) IsQuestion(text string) bool {
	for _, m := range questionMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Classify maps text to a mood tag. Question-shaped input wins over the
// rule table; otherwise the first rule with a matching keyword wins.
func (e *Engine) Classify(text string) Tag {
	if e.IsQuestion(text) {
		return TagQuestion
	}
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Tag
			}
		}
	}
	return TagNone
}

// CannedEligible reports whether a tag may be answered straight from the
// persona's phrase pools without a provider call.
func CannedEligible(tag Tag) bool {
	return tag != TagQuestion && tag != TagNone
}

// ToneFor maps a mood tag to the tone directive handed to the provider.
func ToneFor(tag Tag) string {
	switch tag {
	case TagTired, TagSad:
		return "用安慰、心疼的語氣回覆"
	case TagAngry:
		return "用哄人、小心翼翼的語氣回覆"
	case TagLove:
		return "用撒嬌、甜蜜的語氣回覆"
	case TagHappy, TagBored:
		return "用活潑、俏皮的語氣回覆"
	case TagCare, TagGreetMorning, TagGreetNight:
		return "用溫暖、貼心的語氣回覆"
	default:
		return ""
	}
}
