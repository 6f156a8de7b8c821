package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kyokomi/emoji/v2"
	"gopkg.in/yaml.v3"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
)

const (
	MetricTypeEnum    = "enum"
	MetricTypeNumeric = "numeric"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OrderedValues preserves the YAML mapping order of value labels, which
// determines button layout. A plain map would shuffle it.
type OrderedValues []domain.MetricValue

func (v *OrderedValues) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("values must be a mapping of label to score")
	}
	out := make([]domain.MetricValue, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		score, err := strconv.Atoi(node.Content[i+1].Value)
		if err != nil {
			return fmt.Errorf("value %q for label %q is not an integer", node.Content[i+1].Value, node.Content[i].Value)
		}
		out = append(out, domain.MetricValue{Label: node.Content[i].Value, Score: score})
	}
	*v = out
	return nil
}

// MetricConfig is the on-disk shape of a metric definition. Numeric metrics
// declare lower_bound/upper_bound under values and expand into the full label
// range; enum metrics list their labels directly, optionally emojized.
type MetricConfig struct {
	Name       string        `yaml:"name"`
	UserPrompt string        `yaml:"user_prompt"`
	Type       string        `yaml:"type"`
	Emoji      bool          `yaml:"emoji"`
	Values     OrderedValues `yaml:"values"`
	Baseline   *int          `yaml:"baseline"`
}

func (mc *MetricConfig) toMetric() (domain.Metric, error) {
	metricType := mc.Type
	if metricType == "" {
		metricType = MetricTypeEnum
	}

	var values []domain.MetricValue
	switch metricType {
	case MetricTypeEnum:
		values = make([]domain.MetricValue, len(mc.Values))
		copy(values, mc.Values)
		if mc.Emoji {
			for i := range values {
				values[i].Label = strings.TrimSpace(emoji.Sprint(values[i].Label))
			}
		}
	case MetricTypeNumeric:
		if mc.Emoji {
			return domain.Metric{}, fmt.Errorf("metric %q: numeric metrics cannot use emoji labels", mc.Name)
		}
		lower, lowerOK := mc.score("lower_bound")
		upper, upperOK := mc.score("upper_bound")
		if !lowerOK || !upperOK {
			return domain.Metric{}, fmt.Errorf("metric %q: numeric metrics require lower_bound and upper_bound", mc.Name)
		}
		if lower > upper {
			return domain.Metric{}, fmt.Errorf("metric %q: lower_bound %d above upper_bound %d", mc.Name, lower, upper)
		}
		for i := lower; i <= upper; i++ {
			values = append(values, domain.MetricValue{Label: strconv.Itoa(i), Score: i})
		}
	default:
		return domain.Metric{}, fmt.Errorf("metric %q: unknown type %q", mc.Name, metricType)
	}

	return domain.NewMetric(mc.Name, mc.UserPrompt, values, mc.Baseline)
}

func (mc *MetricConfig) score(label string) (int, bool) {
	for _, v := range mc.Values {
		if v.Label == label {
			return v.Score, true
		}
	}
	return 0, false
}

type NotificationConfig struct {
	Time domain.TimeOfDay `yaml:"time"`
	Text string           `yaml:"text"`
}

type AutoBaselineSection struct {
	Enabled bool              `yaml:"enabled"`
	Time    *domain.TimeOfDay `yaml:"time"`
}

type DatabaseSection struct {
	Driver string `yaml:"driver"`
}

type SessionSection struct {
	Store      string `yaml:"store"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// Config is the validated startup configuration: the default metric and
// notification definitions new users are seeded from, plus backend selection.
type Config struct {
	MetricConfigs []MetricConfig       `yaml:"metrics"`
	Notifications []NotificationConfig `yaml:"notifications"`
	AutoBaseline  AutoBaselineSection  `yaml:"auto_baseline"`
	Database      DatabaseSection      `yaml:"database"`
	Session       SessionSection       `yaml:"session"`

	metrics []domain.Metric
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	if len(c.MetricConfigs) == 0 {
		return fmt.Errorf("config declares no metrics")
	}
	c.metrics = make([]domain.Metric, 0, len(c.MetricConfigs))
	for i := range c.MetricConfigs {
		m, err := c.MetricConfigs[i].toMetric()
		if err != nil {
			return err
		}
		c.metrics = append(c.metrics, m)
	}

	if c.AutoBaseline.Enabled {
		if c.AutoBaseline.Time == nil {
			return fmt.Errorf("auto_baseline enabled but no time configured")
		}
		for _, m := range c.metrics {
			if !m.HasBaseline() {
				return fmt.Errorf("auto_baseline enabled but metric %q has no baseline", m.Name)
			}
		}
	}

	switch c.Database.Driver {
	case "", DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Session.Store {
	case "", SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return nil
}

// Metrics returns the parsed, expanded metric definitions in file order.
func (c *Config) Metrics() []domain.Metric {
	out := make([]domain.Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// DefaultUser builds a fresh user aggregate from the configured defaults.
func (c *Config) DefaultUser(userID int64) *domain.User {
	notifications := make([]domain.Notification, 0, len(c.Notifications))
	for _, n := range c.Notifications {
		notifications = append(notifications, domain.Notification{Time: n.Time, Text: n.Text})
	}
	var abTime *domain.TimeOfDay
	if c.AutoBaseline.Time != nil {
		t := *c.AutoBaseline.Time
		abTime = &t
	}
	return &domain.User{
		UserID:        userID,
		Metrics:       c.Metrics(),
		Notifications: notifications,
		AutoBaseline: domain.AutoBaselineConfig{
			Enabled: c.AutoBaseline.Enabled,
			Time:    abTime,
		},
	}
}
