// Package template provides a Handlebars template engine for rendering
// classification prompts and caregiver summaries.
//
// The engine supports Handlebars syntax with custom helpers for the
// fields that show up in patient-facing text.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	data := map[string]interface{}{
//	    "patient": map[string]interface{}{
//	        "name": "Bob Chen",
//	    },
//	    "symptoms": []string{"chest pain", "dizziness"},
//	}
//
//	tmpl := "{{patient.name}} reported: {{join symptoms \", \"}}"
//	result, err := engine.Render(tmpl, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Output: Bob Chen reported: chest pain, dizziness
//
// Built-in helpers:
//   - uppercase - Convert string to uppercase
//   - trim - Trim whitespace from string
//   - default - Return default value if first arg is empty
//   - eq - Equality comparison
//   - gt - Greater than (for numbers)
//   - join - Join string slice with separator
//   - humanDate - Format a time.Time for spoken output
//   - severity - Render an optional 0-10 severity value
//   - plural - Count-based singular/plural selection
//
// Example with helpers:
//
//	{{humanDate appointment.date}}          # "Monday, January 2 at 3:04 PM"
//	{{severity entry.severity}}             # "7/10" or "unrated"
//	{{count}} {{plural count "dose" "doses"}}
package template
