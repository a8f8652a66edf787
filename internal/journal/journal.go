// Package journal implements the content-addressable write-once journal
// described in SPEC_FULL.md §4.3: markdown entries with a YAML header plus
// a JSON sidecar index for scan-free tag/keyword search and ranked
// retrieval.
package journal

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// RelevanceDecay controls how quickly an entry's recency score fades.
type RelevanceDecay string

const (
	DecayFast   RelevanceDecay = "fast"
	DecayMedium RelevanceDecay = "medium"
	DecaySlow   RelevanceDecay = "slow"
)

// decayRates maps a RelevanceDecay setting to its exponential decay rate.
var decayRates = map[RelevanceDecay]float64{
	DecayFast:   0.1,
	DecayMedium: 0.05,
	DecaySlow:   0.01,
}

// Entry is a single journal record: the header plus body.
type Entry struct {
	Filename  string         `json:"filename"`
	Author    string         `json:"author"`
	Tags      []string       `json:"tags"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
	Decay     RelevanceDecay `json:"relevance_decay"`
	Content   string         `json:"-"`
}

// frontmatter is the YAML document written between the "---" fences. Field
// order here is the field order written to disk.
type frontmatter struct {
	Title     string         `yaml:"title"`
	Author    string         `yaml:"author"`
	CreatedAt time.Time      `yaml:"created_at"`
	Decay     RelevanceDecay `yaml:"relevance_decay"`
	Tags      []string       `yaml:"tags"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
var slugSeparators = regexp.MustCompile(`[\s_]+`)
var repeatedHyphens = regexp.MustCompile(`-+`)

// slugify mirrors the journal writer's original slug algorithm: lowercase,
// collapse whitespace/underscore runs to single hyphens, drop anything
// that isn't a-z0-9-, collapse repeats, trim, and fall back to "untitled".
func slugify(text string) string {
	s := strings.ToLower(text)
	s = slugSeparators.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// filenameFor builds the YYYY-MM-DD_HH-MM-SS_<slug>.md filename for an
// entry written at ts.
func filenameFor(summary string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.md", ts.UTC().Format("2006-01-02_15-04-05"), slugify(summary))
}

// renderEntry produces the full file content: YAML frontmatter fences
// followed by the body.
func renderEntry(fm frontmatter, content string) (string, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, err, "encode journal frontmatter")
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n")
	b.WriteString(content)
	return b.String(), nil
}

// parseEntry splits raw file content into its frontmatter and body. It
// tolerates a missing header by returning a zero-value frontmatter and the
// whole file as content, matching the original reader's lenient behavior.
func parseEntry(raw string) (frontmatter, string, error) {
	if !strings.HasPrefix(raw, "---") {
		return frontmatter{}, raw, nil
	}
	parts := strings.SplitN(raw, "---", 3)
	if len(parts) < 3 {
		return frontmatter{}, raw, nil
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return frontmatter{}, "", apperr.Wrap(apperr.KindCorruptState, err, "parse journal frontmatter")
	}
	body := strings.TrimSpace(parts[2])
	return fm, body, nil
}
