package search

import "strings"

// Topics is the closed list of answer topics. Classification output is
// validated against it by exact match after trimming; anything else maps
// to TopicOther.
var Topics = []string{
	"Payment terms",
	"SLA requirements",
	"Security compliance",
	"Pricing structure",
	"Delivery schedule",
	"Liability and indemnification",
	"Warranty and support",
	"Data privacy and GDPR",
	"Termination and renewal",
	"Scope of work / SOW",
}

// TopicOther is the sentinel topic for unclassifiable answers.
const TopicOther = "Other"

// NormalizeTopic returns the topic when it is on the closed list
// (case-insensitively), else TopicOther.
func NormalizeTopic(topic string) string {
	cleaned := strings.TrimSpace(topic)
	for _, t := range Topics {
		if strings.EqualFold(cleaned, t) {
			return t
		}
	}
	return TopicOther
}
