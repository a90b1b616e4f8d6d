package config

// Config is the top-level configuration structure parsed from koan YAML.
type Config struct {
	Home     string         `yaml:"home"` // state directory; defaults to ~/.koan
	Projects []Project      `yaml:"projects"`
	Loop     LoopConfig     `yaml:"loop"`
	Intake   IntakeConfig   `yaml:"intake"`
	Executor ExecutorConfig `yaml:"executor"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// Project is one target codebase the loop can work on. The set is bounded
// and immutable for the lifetime of a run session.
type Project struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Repo   string `yaml:"repo"`   // owner/name; empty means not watched for mentions
	Rotate *bool  `yaml:"rotate"` // nil means eligible
}

// Rotatable reports whether the project participates in round-robin rotation.
func (p Project) Rotatable() bool {
	return p.Rotate == nil || *p.Rotate
}

// LoopConfig tunes the run-loop state machine.
type LoopConfig struct {
	Interval            string  `yaml:"interval"`             // sleep between iterations
	MaxIterations       int     `yaml:"max_iterations"`       // 0 means unlimited
	ContemplativeChance float64 `yaml:"contemplative_chance"` // probability per eligible iteration
	PauseCooldown       string  `yaml:"pause_cooldown"`       // fallback when no reset hint parses
	InterruptGrace      string  `yaml:"interrupt_grace"`      // window for the second interrupt
	SessionTokenBudget  int     `yaml:"session_token_budget"` // tokens per quota session, for the local estimate
	RecurrenceHour      int     `yaml:"recurrence_hour"`      // hour of day for daily/weekly re-enqueues
}

// IntakeConfig tunes the notification intake pipeline.
type IntakeConfig struct {
	Enabled      bool     `yaml:"enabled"`
	SelfLogin    string   `yaml:"self_login"`    // our own identity; self-authored notifications are skipped
	AllowedUsers []string `yaml:"allowed_users"` // names or "*"; advisory layer only
	MaxAge       string   `yaml:"max_age"`       // staleness cutoff
	PollBase     string   `yaml:"poll_base"`     // backoff base interval
	PollCap      string   `yaml:"poll_cap"`      // backoff ceiling
	AckMarker    string   `yaml:"ack_marker"`    // reaction/marker used to acknowledge processing
}

// ExecutorConfig describes how the external execution tool is invoked.
type ExecutorConfig struct {
	Command string   `yaml:"command"` // defaults to "claude"
	Flags   []string `yaml:"flags"`
	Permits []string `yaml:"permits"` // side-effect categories granted to the tool
	Timeout string   `yaml:"timeout"`
}

// NotifyConfig describes the outbound notification channel.
type NotifyConfig struct {
	Command string `yaml:"command"` // external command receiving the message on stdin; empty = log only
}
