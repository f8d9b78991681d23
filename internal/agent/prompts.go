package agent

import (
	"fmt"
	"strings"
)

func buildRAGPrompt(prompt string, documents []string) string {
	var context strings.Builder
	for i, doc := range documents {
		if i > 0 {
			context.WriteString("\n\n")
		}
		context.WriteString(fmt.Sprintf("Document %d: %s", i+1, doc))
	}

	return fmt.Sprintf(`You are a helpful assistant. Use ONLY the information provided in the documents below to answer the question. If the answer is not in the documents, say "I don't have enough information to answer this question."

Documents:
%s

Question: %s

Answer based only on the documents above:`, context.String(), prompt)
}

func buildCritiquePrompt(prompt, draft string) string {
	return fmt.Sprintf(`Review the following response for factual accuracy and potential hallucinations.

Original Question: %s

Response to Review: %s

Principles:
1. Only state facts you are certain about
2. Clearly distinguish between facts and speculation
3. Admit when you don't have information
4. Do not fabricate sources, citations, or entities
5. If uncertain, express uncertainty

Please review the response and provide:
1. Any potential factual errors or hallucinations
2. A revised, more accurate response

Format:
CRITIQUE: [your critique]
REVISED RESPONSE: [improved response]`, prompt, draft)
}

func buildChainOfThoughtPrompt(prompt string) string {
	return fmt.Sprintf(`%s

Please answer this question using the following steps:
1. Break down what the question is asking
2. Think through what you know about this topic
3. Identify any facts you're uncertain about
4. Provide your answer, clearly marking any uncertain information
5. List any assumptions or limitations in your knowledge

Format your response as:
REASONING: [your step-by-step thinking]
ANSWER: [your final answer]
CONFIDENCE: [High/Medium/Low]
LIMITATIONS: [what you're uncertain about]`, prompt)
}
