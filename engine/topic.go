package engine

import (
	"strings"

	"visitassist/types"
)

// topicRule matches a topic by case-insensitive keywords. Keywords are
// substrings except the very short ones, which must appear as whole words
// so "id" does not fire on "provide".
type topicRule struct {
	topic    types.Topic
	keywords []string
}

// Rules are ordered: the first match wins, so a question mentioning both
// identification and clothing classifies as id. The order is part of the
// contract; both the prompt selection and the fallback target derive from
// this one function.
var topicRules = []topicRule{
	{types.TopicID, []string{"id", "identification", "identity", "passport", "licence", "license"}},
	{types.TopicDressCode, []string{"dress", "wear", "cloth", "attire", "outfit"}},
}

// ClassifyTopic assigns a question to its topic. Anything that matches no
// rule is general.
func ClassifyTopic(query string) types.Topic {
	lowered := strings.ToLower(query)
	words := fieldsTrimmed(lowered)

	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if len(kw) <= 2 {
				if containsWord(words, kw) {
					return rule.topic
				}
				continue
			}
			if strings.Contains(lowered, kw) {
				return rule.topic
			}
		}
	}
	return types.TopicGeneral
}

func fieldsTrimmed(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func containsWord(words []string, w string) bool {
	for _, word := range words {
		if word == w {
			return true
		}
	}
	return false
}
