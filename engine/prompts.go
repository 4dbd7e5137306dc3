package engine

import (
	"fmt"

	"visitassist/types"
)

// NoAnswerReply is the terminal response when neither the local index nor
// the external reference pages can answer the question.
const NoAnswerReply = "I apologize, but I couldn't find specific information to answer your question. Please contact the prison directly or visit gov.uk for more information."

const localDressCodePrompt = `You are an assistant for prison visitors. Answer the question about the visitor dress code using only the policy extracts below. Be specific about which items of clothing are and are not allowed. If the extracts do not cover the question, say so.

Policy extracts:
%s

Question:
%s

Answer:`

const localIDPrompt = `You are an assistant for prison visitors. Answer the question about identification requirements using only the policy extracts below. List the accepted documents exactly as the policy states them. If the extracts do not cover the question, say so.

Policy extracts:
%s

Question:
%s

Answer:`

const localGeneralPrompt = `You are an assistant for prison visitors. Answer the question using only the policy extracts below. Be clear and concise. If the extracts do not cover the question, say so.

Policy extracts:
%s

Question:
%s

Answer:`

const fallbackPrompt = `Based on the following information from gov.uk, answer the user's question: %s

Information:
%s

Please provide a clear and concise answer focused specifically on what was asked.`

// localPrompt renders the topic-specialized grounding prompt. Dedicated
// templates exist for dress_code and id; everything else gets the neutral
// one.
func localPrompt(topic types.Topic, context, question string) string {
	switch topic {
	case types.TopicDressCode:
		return fmt.Sprintf(localDressCodePrompt, context, question)
	case types.TopicID:
		return fmt.Sprintf(localIDPrompt, context, question)
	default:
		return fmt.Sprintf(localGeneralPrompt, context, question)
	}
}

func buildFallbackPrompt(question, fetched string) string {
	return fmt.Sprintf(fallbackPrompt, question, fetched)
}
