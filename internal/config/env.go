package config

import "os"

// Environment variables that override the registry
const (
	EnvPort     = "HCAT_PORT"
	EnvLogLevel = "HCAT_LOG_LEVEL"
	EnvListen   = "HCAT_LISTEN"
)

// Effective is the configuration after flags, environment and registry have
// been layered, in that order of precedence.
type Effective struct {
	Port     string
	LogLevel string
	Listen   string
	Adapter  *Adapter
}

// Overrides are the values given on the command line. Empty means unset.
type Overrides struct {
	Adapter  string
	Port     string
	LogLevel string
	Listen   string
}

// Resolve layers flags over environment over the registry.
func (r *Registry) Resolve(o Overrides) (Effective, error) {
	adapter, err := r.ResolveAdapter(o.Adapter)
	if err != nil {
		return Effective{}, err
	}

	eff := Effective{Adapter: adapter, Listen: DefaultListen}
	if adapter != nil {
		eff.Port = adapter.Port
	}
	if p := r.Preferences; p != nil {
		eff.LogLevel = p.LogLevel
		if p.Listen != "" {
			eff.Listen = p.Listen
		}
	}

	eff.Port = firstSet(o.Port, os.Getenv(EnvPort), eff.Port)
	eff.LogLevel = firstSet(o.LogLevel, os.Getenv(EnvLogLevel), eff.LogLevel)
	eff.Listen = firstSet(o.Listen, os.Getenv(EnvListen), eff.Listen)
	return eff, nil
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
