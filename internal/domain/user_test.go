package domain

import "testing"

func TestMetricBaselineValidation(t *testing.T) {
	_, err := NewMetric("mood", "How do you feel?", []MetricValue{{Label: "good", Score: 1}, {Label: "bad", Score: -1}}, intp(5))
	if err == nil {
		t.Fatal("baseline outside the score set must fail validation")
	}
	m, err := NewMetric("mood", "How do you feel?", []MetricValue{{Label: "good", Score: 1}, {Label: "bad", Score: -1}}, intp(-1))
	if err != nil {
		t.Fatalf("valid baseline rejected: %v", err)
	}
	if !m.HasBaseline() {
		t.Fatal("HasBaseline should be true")
	}
}

func TestAutoBaselineConfigRequiresTime(t *testing.T) {
	cfg := AutoBaselineConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled auto-baseline without a time must fail validation")
	}
	tod := TimeOfDay{Hour: 6, Minute: 30}
	cfg = AutoBaselineConfig{Enabled: true, Time: &tod}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestMetricsWithoutBaseline(t *testing.T) {
	u := testUser()
	if !u.HasBaselinesDefined() {
		t.Fatal("test user has all baselines defined")
	}
	u.Metrics[1].Baseline = nil
	missing := u.MetricsWithoutBaseline()
	if len(missing) != 1 || missing[0] != "sleep" {
		t.Fatalf("expected [sleep], got %v", missing)
	}
}

func TestBaselineData(t *testing.T) {
	u := testUser()
	data := u.BaselineData()
	if data["mood"] != 0 || data["sleep"] != 8 {
		t.Fatalf("unexpected baseline data: %v", data)
	}
}

func TestUserValidateAutoBaselineNeedsAllBaselines(t *testing.T) {
	u := testUser()
	tod := TimeOfDay{Hour: 6}
	u.AutoBaseline = AutoBaselineConfig{Enabled: true, Time: &tod}
	if err := u.Validate(); err != nil {
		t.Fatalf("user with all baselines should validate: %v", err)
	}
	u.Metrics[0].Baseline = nil
	if err := u.Validate(); err == nil {
		t.Fatal("auto-baseline enabled with a baseline missing must fail validation")
	}
}
