package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigStruct is the glue for all configuration sections
type ConfigStruct struct {
	Common    Common              `toml:"common"`
	Database  Database            `toml:"database"`
	Cache     Cache               `toml:"cache"`
	Judge     Judge               `toml:"judge"`
	Languages map[string]Language `toml:"languages"`
}

// Common is the data required by all services
type Common struct {
	LogDir       string `toml:"log_dir"`
	TestCaseDir  string `toml:"test_case_dir"`
	Debug        bool   `toml:"debug"`
	ListenHost   string `toml:"host"`
	ListenPort   int    `toml:"port"`
	SharedSecret string `toml:"secret"`

	// SubmissionCooldown is the minimum time between two submissions by the
	// same author, in seconds.
	SubmissionCooldown int `toml:"submission_cooldown"`
}

// Database is the data required to establish a PostgreSQL connection
type Database struct {
	DSN string `toml:"dsn"`
}

// Cache holds the redis connection info used for the grader wake channel.
// Leaving the host empty disables redis and falls back to ticker polling.
type Cache struct {
	Host     string `toml:"host"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Judge configures the external judge backend.
type Judge struct {
	Host string `toml:"host"`

	// Mode selects the orchestration shape: "sync" makes the grader wait for
	// results in the judge call, "report" dispatches and expects the backend
	// to call back on the report endpoint.
	Mode string `toml:"mode"`

	PingTimeoutSec  int `toml:"ping_timeout"`  // seconds, default 5
	JudgeTimeoutSec int `toml:"judge_timeout"` // seconds, default 180
}

func (j Judge) PingTimeout() time.Duration {
	if j.PingTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(j.PingTimeoutSec) * time.Second
}

func (j Judge) JudgeTimeout() time.Duration {
	if j.JudgeTimeoutSec <= 0 {
		return 180 * time.Second
	}
	return time.Duration(j.JudgeTimeoutSec) * time.Second
}

// Language maps an allowed submission language to the judge backend's
// identifier for it.
type Language struct {
	Disabled bool `toml:"disabled"`

	// JudgeID is the backend's id for this language (Judge0-style).
	JudgeID int `toml:"judge_id"`

	Extensions []string `toml:"extensions"`
}

// C represents the loaded config
var C ConfigStruct

func Load(path string) error {
	md, err := toml.DecodeFile(path, &C)
	if err != nil {
		return fmt.Errorf("could not decode config: %w", err)
	}
	if len(md.Undecoded()) > 0 {
		fmt.Fprintf(os.Stderr, "NOTE: undecoded config keys: %v\n", md.Undecoded())
	}
	return nil
}

// LanguageEnabled reports whether submissions (and graders) may use the
// given language name.
func LanguageEnabled(name string) bool {
	lang, ok := C.Languages[name]
	return ok && !lang.Disabled
}
