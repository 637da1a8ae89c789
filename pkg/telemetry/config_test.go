package telemetry

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if err := ProductionConfig().Validate(); err != nil {
		t.Errorf("production config should validate: %v", err)
	}
	if err := DevelopmentConfig().Validate(); err != nil {
		t.Errorf("development config should validate: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}},
		{"sampling rate above one", func(c *Config) { c.Tracing.SamplingRate = 1.5 }},
		{"negative sampling rate", func(c *Config) { c.Tracing.SamplingRate = -0.1 }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDisabledExporterNotChecked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = false
	cfg.Tracing.Exporter = "jaeger"
	if err := cfg.Validate(); err != nil {
		t.Errorf("exporter should not be checked while tracing is disabled: %v", err)
	}
}
