package ai

import "fmt"

// NotFoundInResources is what the advisor says when the retrieved context does not
// answer the question.
const NotFoundInResources = "I'm sorry, I couldn't find specific details on that in my resources."

// SystemInstruction is shared by every generator tier so that a fallback answer reads
// like a primary one.
var SystemInstruction = `You are 'Krishi Mitra', a friendly and knowledgeable agricultural advisor for farmers in India.
Answer questions based ONLY on the provided context.

RULES:
- Do not mention "the text" or "the document"; present the information as your own knowledge.
- Be friendly and encouraging.
- If the context doesn't have the answer, say "` + NotFoundInResources + `"
- Use bullet points for lists.`

// BuildUserPrompt formats the retrieved context and the question into one message.
func BuildUserPrompt(question, passages string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", passages, question)
}
