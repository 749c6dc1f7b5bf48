package models

// TopicTaxonomy is the fixed set of allowed topic labels. Every component
// that filters or validates topics must reference this enumeration.
var TopicTaxonomy = []string{
	"taste",
	"service",
	"wait_time",
	"cleanliness",
	"value",
	"staff",
	"delivery",
	"packaging",
	"ambience",
	"noise",
	"portion",
	"payment",
}

// DefaultTopic is assigned when no taxonomy topic survives filtering.
const DefaultTopic = "service"

var topicSet = func() map[string]bool {
	m := make(map[string]bool, len(TopicTaxonomy))
	for _, t := range TopicTaxonomy {
		m[t] = true
	}
	return m
}()

// KnownTopic reports whether t is part of the taxonomy.
func KnownTopic(t string) bool {
	return topicSet[t]
}
