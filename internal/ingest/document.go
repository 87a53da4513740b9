package ingest

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"fundingsense-backend/internal/evidence"
)

// Defaults applied to metadata fields a document leaves out.
const (
	DefaultSourceName    = "Local Intelligence"
	DefaultPublishedYear = 2024
	DefaultSector        = "General"
	DefaultGeography     = "Global"
	DefaultUsageTag      = "local-ingestion"
	IDPrefix             = "ev_vec_"
)

// ErrNoFrontMatter marks a markdown file without a metadata block.
var ErrNoFrontMatter = eris.New("ingest: no front matter")

// Metadata is the YAML describing one evidence document.
type Metadata struct {
	SourceType    string     `yaml:"source_type"`
	Title         string     `yaml:"title"`
	SourceName    string     `yaml:"source_name"`
	PublishedYear yearValue  `yaml:"published_year"`
	SourceURL     string     `yaml:"source_url"`
	Sector        string     `yaml:"sector"`
	Geography     string     `yaml:"geography"`
	Investors     stringList `yaml:"investors"`
	UsageTags     stringList `yaml:"usage_tags"`
}

// stringList accepts either a YAML sequence or a comma-separated scalar.
type stringList struct {
	values []string
	set    bool
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	l.set = true
	switch node.Kind {
	case yaml.ScalarNode:
		l.values = splitList(node.Value)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		l.values = nil
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				l.values = append(l.values, v)
			}
		}
		return nil
	default:
		return eris.Errorf("line %d: expected a list or a comma-separated string", node.Line)
	}
}

type yearValue struct {
	year int
	set  bool
}

func (y *yearValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("line %d: published_year must be a number", node.Line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return eris.Errorf("line %d: published_year %q is not a number", node.Line, node.Value)
	}
	y.year, y.set = n, true
	return nil
}

// ParseMetadata decodes a YAML metadata block.
func ParseMetadata(raw []byte) (Metadata, error) {
	var meta Metadata
	if len(bytes.TrimSpace(raw)) == 0 {
		return meta, nil
	}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, eris.Wrap(err, "ingest: decode metadata")
	}
	return meta, nil
}

// SplitFrontMatter separates a leading `---` delimited YAML block from the
// markdown body.
func SplitFrontMatter(data []byte) (meta []byte, body []byte, err error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(text, "---") {
		return nil, nil, ErrNoFrontMatter
	}
	rest := text[3:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, nil, eris.Wrap(ErrNoFrontMatter, "unterminated front matter")
	}
	after := rest[end+len("\n---"):]
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = ""
	}
	return []byte(rest[:end]), []byte(strings.TrimSpace(after)), nil
}

// BuildUnit fills defaults and turns metadata plus body text into a unit.
// fileName provides the evidence id and the fallback title.
func BuildUnit(fileName string, meta Metadata, body string) (evidence.Unit, error) {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	tags := []string{DefaultUsageTag}
	if meta.UsageTags.set {
		tags = meta.UsageTags.values
	}
	year := DefaultPublishedYear
	if meta.PublishedYear.set {
		year = meta.PublishedYear.year
	}
	sourceType := evidence.SourceNews
	if strings.TrimSpace(meta.SourceType) != "" {
		sourceType = evidence.ParseSourceType(meta.SourceType)
	}

	unit := evidence.Unit{
		ID:            IDPrefix + stem,
		SourceType:    sourceType,
		Title:         orDefault(meta.Title, base),
		SourceName:    orDefault(meta.SourceName, DefaultSourceName),
		PublishedYear: year,
		URL:           strings.TrimSpace(meta.SourceURL),
		Sector:        orDefault(meta.Sector, DefaultSector),
		Geography:     orDefault(meta.Geography, DefaultGeography),
		Investors:     append([]string{}, meta.Investors.values...),
		Content:       strings.TrimSpace(body),
		UsageTags:     append([]string{}, tags...),
	}
	if unit.Content == "" {
		return evidence.Unit{}, eris.Errorf("ingest: %s has no body text", base)
	}
	return unit, unit.Validate()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
