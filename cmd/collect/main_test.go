package main

import (
	"testing"
	_ "time/tzdata"

	"metobs/internal/config"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Eklima.TimeSerieType = "2"
	cfg.Query.Timezone = "Europe/Oslo"
	cfg.Collect.Stations = []string{"18700"}
	cfg.Collect.Elements = []string{"TA", "RR_24"}
	cfg.Collect.Hours = []int{6, 18}
	cfg.Collect.BackfillDays = 14

	s, err := settingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("settingsFromConfig() error = %v", err)
	}

	if s.TimeSerieTypeID != "2" || s.BackfillDays != 14 {
		t.Errorf("settings = %+v", s)
	}
	if len(s.Stations) != 1 || len(s.Elements) != 2 || len(s.Hours) != 2 {
		t.Errorf("plan = %v %v %v", s.Stations, s.Elements, s.Hours)
	}
	if s.Location.String() != "Europe/Oslo" {
		t.Errorf("Location = %v", s.Location)
	}
}

func TestSettingsFromConfig_BadZone(t *testing.T) {
	cfg := &config.Config{}
	cfg.Query.Timezone = "Mars/Olympus"

	if _, err := settingsFromConfig(cfg); err == nil {
		t.Error("settingsFromConfig() accepted an unknown zone")
	}
}

func TestRunTimeout(t *testing.T) {
	if runTimeout <= 0 {
		t.Errorf("runTimeout = %v, want positive", runTimeout)
	}
}
