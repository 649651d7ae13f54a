// Package text renders gateway status events in the configured language.
package text

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when no language is configured
const DefaultLanguage = "english_uk"

//go:embed languages.yaml
var languagesYAML []byte

// Table holds the status texts of one language
type Table struct {
	Alias      string `yaml:"alias"`
	Linking    string `yaml:"linking"`
	Linked     string `yaml:"linked"`
	NotLinked  string `yaml:"not_linked"`
	Busy       string `yaml:"busy"`
	CallEnded  string `yaml:"call_ended"`
	CallFailed string `yaml:"call_failed"`
}

var (
	loadOnce sync.Once
	tables   map[string]Table
	loadErr  error
)

func load() (map[string]Table, error) {
	loadOnce.Do(func() {
		raw := make(map[string]Table)
		if err := yaml.Unmarshal(languagesYAML, &raw); err != nil {
			loadErr = fmt.Errorf("failed to parse language tables: %w", err)
			return
		}

		tables = make(map[string]Table, len(raw))
		for name, t := range raw {
			if t.Alias != "" {
				base, ok := raw[t.Alias]
				if !ok {
					loadErr = fmt.Errorf("language %s is an alias of unknown %s", name, t.Alias)
					return
				}
				t = base
			}
			tables[name] = t
		}
	})
	return tables, loadErr
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultLanguage
	}
	return strings.ReplaceAll(name, " ", "_")
}

// Languages returns the supported language names in order
func Languages() []string {
	t, err := load()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported reports whether name is a known language. An empty name
// selects the default language.
func IsSupported(name string) bool {
	t, err := load()
	if err != nil {
		return false
	}
	_, ok := t[normalize(name)]
	return ok
}

// Translator formats status events in one language
type Translator struct {
	language string
	table    Table
}

// New returns a translator for the named language
func New(language string) (*Translator, error) {
	t, err := load()
	if err != nil {
		return nil, err
	}
	name := normalize(language)
	table, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	return &Translator{language: name, table: table}, nil
}

// Language returns the language name of the translator
func (t *Translator) Language() string {
	return t.language
}

// Format returns the text shown to RF users for st
func (t *Translator) Format(st gateway.Status) string {
	target := strings.TrimSpace(st.Target)

	var tmpl string
	switch st.Kind {
	case gateway.StatusLinking:
		tmpl = t.table.Linking
	case gateway.StatusLinked, gateway.StatusCallLinked:
		tmpl = t.table.Linked
	case gateway.StatusNotLinked:
		tmpl = t.table.NotLinked
	case gateway.StatusBusy:
		tmpl = t.table.Busy
	case gateway.StatusCallEnded:
		tmpl = t.table.CallEnded
	case gateway.StatusCallFailed:
		tmpl = t.table.CallFailed
	default:
		return ""
	}

	return strings.ReplaceAll(tmpl, "{target}", target)
}
