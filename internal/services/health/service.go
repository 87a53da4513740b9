package health

// EvidenceCounter reports how many evidence units are indexed.
type EvidenceCounter interface {
	Count() int
}

// Status is the health payload.
type Status struct {
	OK            bool   `json:"ok"`
	EvidenceUnits int    `json:"evidence_units"`
	LLMProvider   string `json:"llm_provider"`
	Persistence   string `json:"persistence"`
}

// Service encapsulates health-related checks.
type Service struct {
	Evidence    EvidenceCounter
	LLMProvider string
	Persistence string
}

// NewService constructs a new health service.
func NewService(evidence EvidenceCounter, llmProvider, persistence string) *Service {
	if llmProvider == "" {
		llmProvider = "none"
	}
	return &Service{Evidence: evidence, LLMProvider: llmProvider, Persistence: persistence}
}

// Status returns a simple health payload. An unconfigured LLM is not a
// failure since generation falls back deterministically.
func (s *Service) Status() Status {
	st := Status{OK: true, LLMProvider: s.LLMProvider, Persistence: s.Persistence}
	if s.Evidence != nil {
		st.EvidenceUnits = s.Evidence.Count()
	}
	return st
}
