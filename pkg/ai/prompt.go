package ai

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z0-9_+-]*\n")
	trailingFence = regexp.MustCompile("\n?```$")
)

// StripCodeFences removes a single markdown fence wrapping the whole reply.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func hintPrompt(input HintInput) string {
	var b strings.Builder
	b.WriteString("You are a coding assistant. The user is working on a coding exercise.\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("- Review the provided code and the exercise reference solution.\n")
	b.WriteString("- Suggest ONLY ONE next step or hint that helps the user progress toward the reference solution.\n")
	b.WriteString("- Also give feedback on likely errors, edge cases or bad practices (max 3 bullets).\n")
	fmt.Fprintf(&b, "- Output everything as inline code comments appropriate for %s.\n", input.Language)
	b.WriteString("- Do not rewrite or delete user code. Do not provide full solutions.\n")
	b.WriteString("- Be concise: next step on the first line, then a blank line, then the bullet list.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "Exercise name: %s\n", input.ExerciseName)
	fmt.Fprintf(&b, "Exercise description: %s\n", input.Description)
	fmt.Fprintf(&b, "Reference solution: %s\n", input.ReferenceSolution)
	b.WriteString("User code:\n")
	b.WriteString(input.Code)
	return b.String()
}

func rivalPrompt(input RivalInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI competitor in a coding exercise. Create a solution in %s.\n\n", input.Language)
	b.WriteString("Instructions:\n")
	b.WriteString("- Provide a plausible solution to the exercise.\n")
	b.WriteString("- Depending on the difficulty, introduce mistakes, inefficiencies or edge-case oversights:\n")
	b.WriteString("  easy: more likely to have obvious mistakes\n")
	b.WriteString("  medium: subtle mistakes or missing edge cases\n")
	b.WriteString("  hard: mostly correct, small inefficiencies or minor mistakes\n")
	fmt.Fprintf(&b, "- Output the full code as %s code.\n", input.Language)
	b.WriteString("- Make it self-contained.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "Exercise name: %s\n", input.ExerciseName)
	fmt.Fprintf(&b, "Exercise description: %s\n", input.Description)
	fmt.Fprintf(&b, "Difficulty: %s\n", input.Difficulty)
	return b.String()
}
