package answer

import "lawgpt/internal/query"

const AssistantSourceLabel = "LawGPT"

var identityReplies = map[query.Topic]string{
	query.TopicCreator:   "I was built by the LawGPT team to make Indian law easy and accessible for everyone.",
	query.TopicIdentity:  "I am LawGPT, a legal assistant that explains the Constitution of India and the Bharatiya Nyaya Sanhita, 2023 in plain language.",
	query.TopicPurpose:   "I answer questions about the Constitution of India and the Bharatiya Nyaya Sanhita, 2023, look up case status by CNR, and share pending-case statistics.",
	query.TopicGreeting:  "Hello! Ask me things like 'What does Article 21 say?' or 'Punishment for theft'.",
	query.TopicWellbeing: "I'm doing well, thank you. What would you like to know about Indian law?",
	query.TopicThanks:    "You're most welcome! Do you want to ask another question about law?",
	query.TopicFarewell:  "Goodbye! Come back any time you have a legal question.",
	query.TopicFun:       "I don't sleep, I just rest between queries and dream of perfectly formatted legal citations!",
}

// IdentityReply is the canned answer for identity and small-talk questions.
func IdentityReply(topic query.Topic) string {
	if reply, ok := identityReplies[topic]; ok {
		return reply
	}
	return identityReplies[query.TopicIdentity]
}
