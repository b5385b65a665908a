package result

import "time"

// EvaluationMeta is what one scheme evaluation leaves behind in meta.json.
type EvaluationMeta struct {
	ID         string    `json:"id"`
	Engine     string    `json:"engine"`
	Scheme     string    `json:"scheme"`
	Options    string    `json:"options"`
	Mode       string    `json:"mode"`
	Nominal    bool      `json:"nominal"`
	Performed  bool      `json:"performed"`
	Fields     []Field   `json:"fields,omitempty"`
	Messages   []string  `json:"messages,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Field is a metric value. Undefined statistics are stored as null.
type Field struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Number returns the named numeric field.
func (m *EvaluationMeta) Number(name string) (float64, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			v, ok := f.Value.(float64)
			return v, ok
		}
	}
	return 0, false
}

// Headline is the metric a summary leads with: percent correct for
// nominal targets, root mean squared error for numeric ones.
func (m *EvaluationMeta) Headline() (string, float64, bool) {
	name := "Root mean squared error"
	if m.Nominal {
		name = "Percent correct"
	}
	v, ok := m.Number(name)
	return name, v, ok
}
