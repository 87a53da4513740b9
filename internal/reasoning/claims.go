package reasoning

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind groups claims by the description signal they came from.
type Kind string

const (
	KindSector        Kind = "sector"
	KindBusinessModel Kind = "business_model"
	KindStage         Kind = "stage"
	KindGeography     Kind = "geography"
	KindTraction      Kind = "traction"
	KindKeyword       Kind = "keyword"
)

// Claim is a proposition about investor fit derived from a description.
type Claim struct {
	Kind    Kind
	Subject string
	Terms   []string
	Text    string
}

type vocabEntry struct {
	subject string
	terms   []string
}

var sectorVocab = []vocabEntry{
	{"Fintech", []string{"fintech", "payments", "banking", "lending", "insurtech", "neobank"}},
	{"HealthTech", []string{"healthtech", "healthcare", "medtech", "digital health", "telemedicine"}},
	{"Climate", []string{"climate", "climatetech", "cleantech", "renewable", "renewables", "carbon", "clean energy"}},
	{"AI", []string{"ai", "artificial intelligence", "machine learning", "generative ai", "llm"}},
	{"EdTech", []string{"edtech", "education", "e-learning"}},
	{"E-commerce", []string{"ecommerce", "e-commerce", "retail", "d2c", "dtc"}},
	{"Biotech", []string{"biotech", "biotechnology", "life sciences", "pharma"}},
	{"Cybersecurity", []string{"cybersecurity", "infosec", "security"}},
	{"AgriTech", []string{"agritech", "agtech", "agriculture", "farming"}},
	{"Logistics", []string{"logistics", "supply chain", "mobility", "delivery"}},
	{"PropTech", []string{"proptech", "real estate", "construction"}},
	{"Gaming", []string{"gaming", "esports"}},
	{"Crypto", []string{"crypto", "blockchain", "web3", "defi"}},
}

var businessModelVocab = []vocabEntry{
	{"B2B", []string{"b2b", "enterprise"}},
	{"B2C", []string{"b2c", "consumer"}},
	{"SaaS", []string{"saas", "software-as-a-service", "subscription software"}},
	{"Marketplace", []string{"marketplace", "two-sided"}},
}

// Ordered so that the first hit wins: "pre-seed" must be tried before "seed".
var stageVocab = []vocabEntry{
	{"Pre-seed", []string{"pre-seed", "preseed"}},
	{"Seed", []string{"seed"}},
	{"Series A", []string{"series a"}},
	{"Series B", []string{"series b"}},
	{"Series C", []string{"series c"}},
	{"Series D", []string{"series d"}},
	{"Growth", []string{"growth stage", "growth-stage", "late stage", "late-stage"}},
}

var geographyVocab = []vocabEntry{
	{"Europe", []string{"europe", "european", "eu", "uk", "united kingdom", "germany", "france", "spain", "netherlands", "sweden", "ireland", "italy", "nordics"}},
	{"North America", []string{"north america", "usa", "united states", "canada", "silicon valley"}},
	{"Latin America", []string{"latin america", "latam", "brazil", "mexico", "argentina", "colombia", "chile"}},
	{"Africa", []string{"africa", "african", "nigeria", "kenya", "south africa", "egypt", "ghana"}},
	{"Asia", []string{"asia", "india", "china", "singapore", "japan", "indonesia", "southeast asia", "vietnam"}},
	{"Middle East", []string{"middle east", "mena", "uae", "saudi arabia", "israel"}},
	{"Oceania", []string{"australia", "new zealand", "oceania"}},
}

var tractionTerms = []string{"arr", "mrr", "revenue", "customers", "users", "profitable", "profitability", "paying"}

var claimStopwords = map[string]struct{}{
	"startup": {}, "company": {}, "building": {}, "platform": {}, "based": {}, "solution": {},
	"solutions": {}, "product": {}, "products": {}, "looking": {}, "raise": {}, "raising": {},
	"with": {}, "that": {}, "this": {}, "from": {}, "into": {}, "their": {}, "have": {},
	"which": {}, "using": {}, "help": {}, "helps": {}, "about": {}, "where": {}, "while": {},
}

const maxKeywordTerms = 3

// ExtractClaims derives candidate claims from a startup description. The same
// description always yields the same claims in the same order.
func ExtractClaims(description string) []Claim {
	text := strings.ToLower(description)
	var claims []Claim

	for _, e := range sectorVocab {
		if terms := matchedTerms(text, e.terms); len(terms) > 0 {
			claims = append(claims, newClaim(KindSector, e, terms))
		}
	}
	for _, e := range businessModelVocab {
		if terms := matchedTerms(text, e.terms); len(terms) > 0 {
			claims = append(claims, newClaim(KindBusinessModel, e, terms))
		}
	}
	for _, e := range stageVocab {
		if terms := matchedTerms(text, e.terms); len(terms) > 0 {
			claims = append(claims, newClaim(KindStage, e, terms))
			break
		}
	}
	for _, e := range geographyVocab {
		if terms := matchedTerms(text, e.terms); len(terms) > 0 {
			claims = append(claims, newClaim(KindGeography, e, terms))
		}
	}
	if terms := matchedTerms(text, tractionTerms); len(terms) > 0 {
		claims = append(claims, newClaim(KindTraction, vocabEntry{subject: "Traction"}, terms))
	}

	if len(claims) == 0 {
		if terms := keywordTerms(text); len(terms) > 0 {
			claims = append(claims, newClaim(KindKeyword, vocabEntry{subject: strings.Join(terms, ", ")}, terms))
		}
	}
	return claims
}

func newClaim(kind Kind, e vocabEntry, terms []string) Claim {
	c := Claim{Kind: kind, Subject: e.subject, Terms: terms}
	// Geography and sector claims also match on the canonical subject name.
	if kind == KindSector || kind == KindGeography {
		c.Terms = appendUnique(c.Terms, strings.ToLower(e.subject))
	}
	switch kind {
	case KindSector:
		c.Text = "Investor activity is documented in the " + e.subject + " sector"
	case KindBusinessModel:
		c.Text = "Evidence covers investment in " + e.subject + " business models"
	case KindStage:
		c.Text = "Evidence shows " + e.subject + " stage funding rounds"
	case KindGeography:
		c.Text = "Investor presence is documented in " + e.subject
	case KindTraction:
		c.Text = "Evidence references traction signals (" + strings.Join(terms, ", ") + ")"
	default:
		c.Text = "Evidence references " + e.subject
	}
	return c
}

func matchedTerms(text string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if ContainsTerm(text, t) {
			out = append(out, t)
		}
	}
	return out
}

// keywordTerms picks the longest distinctive words of a description that
// carries none of the known signals.
func keywordTerms(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := map[string]struct{}{}
	var candidates []string
	for _, w := range words {
		w = strings.Trim(w, "-")
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if _, stop := claimStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		candidates = append(candidates, w)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return utf8.RuneCountInString(candidates[i]) > utf8.RuneCountInString(candidates[j])
	})
	if len(candidates) > maxKeywordTerms {
		candidates = candidates[:maxKeywordTerms]
	}
	sort.Strings(candidates)
	return candidates
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// ContainsTerm reports whether term occurs in text on word boundaries,
// ignoring case.
func ContainsTerm(text, term string) bool {
	text = strings.ToLower(text)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
