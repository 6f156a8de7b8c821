package domain

import "fmt"

// AutoBaselineConfig controls the daily job that records baseline values for
// users who have not recorded anything that day.
type AutoBaselineConfig struct {
	Enabled bool       `json:"enabled"`
	Time    *TimeOfDay `json:"time,omitempty"`
}

func (c AutoBaselineConfig) Validate() error {
	if c.Enabled && c.Time == nil {
		return fmt.Errorf("auto-baseline enabled but no time configured")
	}
	return nil
}

// User aggregates one person's metric configuration, reminder configuration
// and auto-baseline settings. UserID is the external chat identity.
type User struct {
	UserID        int64              `json:"user_id"`
	Metrics       []Metric           `json:"metrics"`
	Notifications []Notification     `json:"notifications"`
	AutoBaseline  AutoBaselineConfig `json:"auto_baseline"`
}

func (u *User) Validate() error {
	for _, m := range u.Metrics {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if err := u.AutoBaseline.Validate(); err != nil {
		return err
	}
	if u.AutoBaseline.Enabled {
		if missing := u.MetricsWithoutBaseline(); len(missing) > 0 {
			return fmt.Errorf("auto-baseline enabled but metrics lack baselines: %v", missing)
		}
	}
	return nil
}

// MetricsWithoutBaseline returns the names of metrics that have no baseline,
// in configuration order.
func (u *User) MetricsWithoutBaseline() []string {
	var missing []string
	for _, m := range u.Metrics {
		if !m.HasBaseline() {
			missing = append(missing, m.Name)
		}
	}
	return missing
}

func (u *User) HasBaselinesDefined() bool {
	return len(u.MetricsWithoutBaseline()) == 0
}

func (u *User) AutoBaselineEnabled() bool {
	return u.AutoBaseline.Enabled
}

func (u *User) AutoBaselineTime() *TimeOfDay {
	return u.AutoBaseline.Time
}

// BaselineData synthesizes the metric-name to value mapping used for baseline
// records. Callers must check HasBaselinesDefined first.
func (u *User) BaselineData() map[string]int {
	data := make(map[string]int, len(u.Metrics))
	for _, m := range u.Metrics {
		if m.Baseline != nil {
			data[m.Name] = *m.Baseline
		}
	}
	return data
}
