package generation

import (
	"errors"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/llm"
)

var (
	// ErrGenerationUnavailable covers an unconfigured, unreachable or timed out
	// backend.
	ErrGenerationUnavailable = eris.New("generation: backend unavailable")
	// ErrGenerationMalformed covers replies that fail schema validation.
	ErrGenerationMalformed = eris.New("generation: malformed backend output")
)

// classify maps a backend error onto the generation error taxonomy.
func classify(err error) error {
	if errors.Is(err, llm.ErrInvalidJSON) || errors.Is(err, llm.ErrEmptyResponse) {
		return eris.Wrapf(ErrGenerationMalformed, "%v", err)
	}
	return eris.Wrapf(ErrGenerationUnavailable, "%v", err)
}
