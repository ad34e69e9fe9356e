// Package prompt builds grounded prompts for the model backend.
package prompt

// Instruction opens every grounded prompt.
const Instruction = "Use the extracted content below to answer:"

// Compose joins the grounding text and the question into one prompt. The
// grounding is passed through verbatim with no truncation.
func Compose(grounding, question string) string {
	return Instruction + "\n\n" + grounding + "\n\n" + "Question: " + question
}
