// Package restrict holds the callsigns that may use the gateway but may not
// issue link, unlink or routing commands.
package restrict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Rule matches one callsign, or every callsign starting with a prefix when
// written with a trailing "*"
type Rule struct {
	Callsign string
	Prefix   bool
}

// String returns the string representation of the rule
func (r Rule) String() string {
	if r.Prefix {
		return r.Callsign + "*"
	}
	return r.Callsign
}

// Matches checks if the callsign matches this rule
func (r Rule) Matches(callsign string) bool {
	if r.Prefix {
		return strings.HasPrefix(callsign, r.Callsign)
	}
	return callsign == r.Callsign
}

// ParseRule parses "M0ABC" or "M0*"
func ParseRule(s string) (Rule, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	prefix := strings.HasSuffix(s, "*")
	s = strings.TrimSuffix(s, "*")
	if s == "" {
		return Rule{}, fmt.Errorf("wildcard rule needs a prefix")
	}
	if strings.ContainsAny(s, "* \t") {
		return Rule{}, fmt.Errorf("invalid rule: %s", s)
	}
	if len(s) > 8 {
		return Rule{}, fmt.Errorf("callsign too long: %s", s)
	}

	return Rule{Callsign: s, Prefix: prefix}, nil
}

// ParseRules reads one rule per line, with # comments
func ParseRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		rule, err := ParseRule(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// List is the restricted callsign list. It is safe for concurrent use.
type List struct {
	mu     sync.RWMutex
	static []Rule
	file   []Rule

	path   string
	logger *logger.Logger
}

// New creates a list from the configured callsigns and, when path is set,
// the rules in that file.
func New(callsigns []string, path string, log *logger.Logger) (*List, error) {
	l := &List{
		path:   path,
		logger: log.WithComponent("restrict"),
	}

	for _, cs := range callsigns {
		rule, err := ParseRule(cs)
		if err != nil {
			return nil, err
		}
		l.static = append(l.static, rule)
	}

	if path != "" {
		if err := l.Reload(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Reload re-reads the rule file. On error the previous rules are kept.
func (l *List) Reload() error {
	if l.path == "" {
		return nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open restrict file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rules, err := ParseRules(f)
	if err != nil {
		return fmt.Errorf("%s: %w", l.path, err)
	}

	l.mu.Lock()
	l.file = rules
	l.mu.Unlock()

	l.logger.Info("Loaded restricted callsigns", logger.String("path", l.path), logger.Int("rules", len(rules)))
	return nil
}

// IsRestricted reports whether callsign may not issue commands
func (l *List) IsRestricted(callsign string) bool {
	cs := strings.ToUpper(strings.TrimSpace(callsign))
	if cs == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, r := range l.static {
		if r.Matches(cs) {
			return true
		}
	}
	for _, r := range l.file {
		if r.Matches(cs) {
			return true
		}
	}
	return false
}

// Len returns the number of rules in force
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.static) + len(l.file)
}
