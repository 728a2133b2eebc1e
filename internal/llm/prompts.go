package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/structure_cv.txt
	structurePrompt string
	//go:embed prompts/cover_letter.txt
	coverLetterPrompt string
	//go:embed prompts/ocr.txt
	ocrPrompt string
)

// StructureSystemPrompt returns the system prompt for CV structuring.
func StructureSystemPrompt() string { return structurePrompt }

// CoverLetterSystemPrompt returns the system prompt for cover letter generation.
func CoverLetterSystemPrompt() string { return coverLetterPrompt }

// OCRSystemPrompt returns the system prompt for image transcription.
func OCRSystemPrompt() string { return ocrPrompt }

const rule = "=================================================="

// CoverLetterUserPrompt renders the per-request prompt for cover letter generation.
func CoverLetterUserPrompt(input GenerateInput) string {
	var b strings.Builder
	b.WriteString("CANDIDATE CV DATA (Parsed):\n")
	b.WriteString(rule + "\n")
	b.Write(input.Profile)
	b.WriteString("\n\n")
	b.WriteString("TARGET JOB DESCRIPTION:\n")
	b.WriteString(rule + "\n")
	b.WriteString(input.TargetText)
	b.WriteString("\n\n")
	if hint := strings.TrimSpace(input.Hint); hint != "" {
		b.WriteString("ADDITIONAL PREFERENCES:\n")
		b.WriteString(rule + "\n")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("Generate a cover letter tailored to this specific position.\n")
	b.WriteString("Match the candidate's actual experience to the job requirements.\n")
	b.WriteString("Length: 250-350 words.\n")
	b.WriteString("Output: Cover letter text only (no additional commentary or metadata).\n")
	return b.String()
}
