package template

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
)

// helpers are global in raymond, so register them once per process
// even when tests build several engines.
var helpersOnce sync.Once

// Engine renders Handlebars templates
type Engine struct {
	cache map[string]*raymond.Template
	mu    sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	engine := &Engine{
		cache: make(map[string]*raymond.Template),
	}

	helpersOnce.Do(registerHelpers)

	return engine
}

// Render renders a template with the given data
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	// Get or compile template
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	// Execute the template
	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return result, nil
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(templateStr string) (*raymond.Template, error) {
	// Check cache first (read lock)
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	// Compile the template (write lock)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	e.cache[templateStr] = tmpl

	return tmpl, nil
}

// ValidateTemplate validates a template without rendering it
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := raymond.Parse(templateStr)
	return err
}

// registerHelpers registers the Handlebars helpers the response and
// summary templates use.
func registerHelpers() {
	// uppercase helper
	raymond.RegisterHelper("uppercase", func(str string) string {
		return strings.ToUpper(str)
	})

	// trim helper
	raymond.RegisterHelper("trim", func(str string) string {
		return strings.TrimSpace(str)
	})

	// default helper - return default value if first arg is empty
	raymond.RegisterHelper("default", func(value interface{}, defaultValue interface{}) interface{} {
		if value == nil || value == "" {
			return defaultValue
		}
		return value
	})

	// eq helper - equality comparison
	raymond.RegisterHelper("eq", func(a, b interface{}) bool {
		return a == b
	})

	// gt helper - greater than (for numbers)
	raymond.RegisterHelper("gt", func(a, b float64) bool {
		return a > b
	})

	// join helper - join array elements with separator
	raymond.RegisterHelper("join", func(arr []string, sep string) string {
		return strings.Join(arr, sep)
	})

	// humanDate helper - render an appointment timestamp for speech output
	raymond.RegisterHelper("humanDate", func(t time.Time) string {
		return t.Format("Monday, January 2 at 3:04 PM")
	})

	// severity helper - render an optional 0-10 severity value
	raymond.RegisterHelper("severity", func(v interface{}) string {
		switch n := v.(type) {
		case int:
			return fmt.Sprintf("%d/10", n)
		case *int:
			if n == nil {
				return "unrated"
			}
			return fmt.Sprintf("%d/10", *n)
		case float64:
			return fmt.Sprintf("%.0f/10", n)
		default:
			return "unrated"
		}
	})

	// plural helper - naive count-based pluralization
	raymond.RegisterHelper("plural", func(count int, singular, plural string) string {
		if count == 1 {
			return singular
		}
		return plural
	})
}
