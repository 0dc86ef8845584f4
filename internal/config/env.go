package config

import (
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "STEPUNDO_"

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// envSetting applies one environment variable to a Config.
type envSetting struct {
	name  string
	apply func(c *Config, value string) error
}

var envSettings = []envSetting{
	{"LOG_LEVEL", func(c *Config, v string) error {
		c.Logging.Level = strings.ToLower(v)
		return nil
	}},
	{"HISTORY_MAX_ENTRIES", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.History.MaxEntries = n
		return err
	}},
	{"HISTORY_STRICT_NESTING", func(c *Config, v string) error {
		b, err := parseBool(v)
		c.History.StrictNesting = b
		return err
	}},
	{"HISTORY_WORD_BOUNDARIES", func(c *Config, v string) error {
		b, err := parseBool(v)
		c.History.WordBoundaries = b
		return err
	}},
	{"HISTORY_COALESCE_WINDOW", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.History.CoalesceWindow = Duration(d)
		return err
	}},
	{"BUFFER_NORMALIZATION", func(c *Config, v string) error {
		c.Buffer.Normalization = strings.ToLower(v)
		return nil
	}},
	{"SCRIPT_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Script.Timeout = Duration(d)
		return err
	}},
	{"SCRIPT_CALL_STACK_SIZE", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Script.CallStackSize = n
		return err
	}},
}

// ApplyEnv overrides cfg with STEPUNDO_* variables found through lookup.
// A variable that cannot be parsed leaves its setting unchanged and is
// reported as a ParseError.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, s := range envSettings {
		key := EnvPrefix + s.name
		v, ok := lookup(key)
		if !ok {
			continue
		}

		next := *cfg
		if err := s.apply(&next, strings.TrimSpace(v)); err != nil {
			return &ParseError{Path: key, Message: err.Error(), Err: err}
		}
		*cfg = next
	}
	return nil
}

// parseBool accepts the spellings strconv.ParseBool does plus yes/no and on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
