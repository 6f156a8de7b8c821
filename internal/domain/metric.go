package domain

import "fmt"

// MetricValue is one answer option for a metric: a button label and the
// integer score it maps to. Values are kept as an ordered slice, not a map,
// because the order determines button layout and must survive persistence.
type MetricValue struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// Metric describes one trackable quantity: a slug-like name, the prompt shown
// to the user, and the closed, ordered set of allowed answers. Baseline, when
// set, is the metric's neutral value used for automated record synthesis.
type Metric struct {
	Name       string        `json:"name"`
	UserPrompt string        `json:"user_prompt"`
	Values     []MetricValue `json:"values"`
	Baseline   *int          `json:"baseline,omitempty"`
}

func NewMetric(name, userPrompt string, values []MetricValue, baseline *int) (Metric, error) {
	m := Metric{Name: name, UserPrompt: userPrompt, Values: values, Baseline: baseline}
	if err := m.Validate(); err != nil {
		return Metric{}, err
	}
	return m, nil
}

func (m Metric) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metric name must not be empty")
	}
	if len(m.Values) == 0 {
		return fmt.Errorf("metric %q has no values", m.Name)
	}
	if m.Baseline != nil && !m.hasScore(*m.Baseline) {
		return fmt.Errorf("metric %q baseline %d is not one of its scores", m.Name, *m.Baseline)
	}
	return nil
}

func (m Metric) hasScore(score int) bool {
	for _, v := range m.Values {
		if v.Score == score {
			return true
		}
	}
	return false
}

// HasBaseline reports whether this metric carries a neutral value.
func (m Metric) HasBaseline() bool { return m.Baseline != nil }
