package llm

import _ "embed"

var (
	//go:embed prompts/report_v1.txt
	reportPromptV1 string
	//go:embed prompts/answer_v1.txt
	answerPromptV1 string
	//go:embed prompts/translate_v1.txt
	translatePromptV1 string
)

// Prompt template names.
const (
	PromptReport    = "report"
	PromptAnswer    = "answer"
	PromptTranslate = "translate"
)

// PromptTemplate returns the system prompt text for name and whether the
// name was recognized.
func PromptTemplate(name string) (string, bool) {
	switch name {
	case PromptReport:
		return reportPromptV1, true
	case PromptAnswer:
		return answerPromptV1, true
	case PromptTranslate:
		return translatePromptV1, true
	default:
		return reportPromptV1, false
	}
}
