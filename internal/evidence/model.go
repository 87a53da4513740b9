package evidence

import (
	"strings"

	"github.com/rotisserie/eris"
)

// SourceType classifies where an evidence unit came from.
type SourceType string

const (
	SourceFiling    SourceType = "filing"
	SourceNews      SourceType = "news"
	SourceInterview SourceType = "interview"
	SourceDataset   SourceType = "dataset"
	SourceOther     SourceType = "other"
)

// ParseSourceType maps free-form input onto a known source type. Unknown
// values become SourceOther.
func ParseSourceType(raw string) SourceType {
	switch SourceType(strings.ToLower(strings.TrimSpace(raw))) {
	case SourceFiling:
		return SourceFiling
	case SourceNews:
		return SourceNews
	case SourceInterview:
		return SourceInterview
	case SourceDataset:
		return SourceDataset
	default:
		return SourceOther
	}
}

// Unit is one attributed fact source. Units are immutable once saved; an
// upsert replaces the whole unit.
type Unit struct {
	ID            string     `json:"evidence_id"`
	SourceType    SourceType `json:"source_type"`
	Title         string     `json:"title"`
	SourceName    string     `json:"source_name"`
	PublishedYear int        `json:"published_year"`
	URL           string     `json:"url,omitempty"`
	Sector        string     `json:"sector"`
	Geography     string     `json:"geography"`
	Investors     []string   `json:"investors"`
	Content       string     `json:"content"`
	UsageTags     []string   `json:"usage_tags"`
}

// Validate checks the fields required for indexing.
func (u Unit) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return eris.Wrap(ErrInvalidUnit, "evidence_id is required")
	}
	if strings.TrimSpace(u.Title) == "" {
		return eris.Wrapf(ErrInvalidUnit, "title is required for %s", u.ID)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate indexed state.
func (u Unit) Clone() Unit {
	out := u
	out.Investors = append([]string(nil), u.Investors...)
	out.UsageTags = append([]string(nil), u.UsageTags...)
	return out
}

// Document is the text embedded for similarity search.
func (u Unit) Document() string {
	parts := []string{u.Title, u.Sector, u.Geography}
	parts = append(parts, u.Investors...)
	parts = append(parts, u.UsageTags...)
	parts = append(parts, u.Content)
	return strings.Join(parts, " ")
}

// HasTag reports whether the unit carries tag, ignoring case.
func (u Unit) HasTag(tag string) bool {
	for _, t := range u.UsageTags {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

// Filters narrows a search. Empty fields do not filter.
type Filters struct {
	Sector    string
	Geography string
	Tags      []string
}

func (f Filters) match(u Unit) bool {
	if f.Sector != "" && !strings.EqualFold(strings.TrimSpace(u.Sector), strings.TrimSpace(f.Sector)) {
		return false
	}
	if f.Geography != "" && !strings.EqualFold(strings.TrimSpace(u.Geography), strings.TrimSpace(f.Geography)) {
		return false
	}
	for _, tag := range f.Tags {
		if !u.HasTag(tag) {
			return false
		}
	}
	return true
}

// Scored pairs a unit with its relevance to a query.
type Scored struct {
	Unit  Unit    `json:"unit"`
	Score float64 `json:"relevance_score"`
}

// Units strips scores, keeping order.
func Units(scored []Scored) []Unit {
	out := make([]Unit, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Unit)
	}
	return out
}
