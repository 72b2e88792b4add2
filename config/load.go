package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/expr"
)

// Config is the fully loaded and cross-reference-validated set of
// networks, monitors, and triggers for one run.
type Config struct {
	Networks map[string]Network
	Monitors map[string]Monitor
	Triggers map[string]Trigger
}

// Load reads networks/, monitors/, triggers/ subdirectories of root, each
// containing one JSON file per entity, and returns a fully validated
// Config. Any schema or cross-reference problem returns a *Error and the
// caller must treat the load as fatal.
func Load(root string) (*Config, error) {
	cfg := &Config{
		Networks: map[string]Network{},
		Monitors: map[string]Monitor{},
		Triggers: map[string]Trigger{},
	}

	if err := loadDir(filepath.Join(root, "networks"), func(path string, dec *json.Decoder) error {
		var n Network
		if err := dec.Decode(&n); err != nil {
			return &Error{Path: path, Err: err}
		}
		if n.Slug == "" {
			return &Error{Path: path, Err: fmt.Errorf("network slug is required")}
		}
		if n.Family != chain.FamilyEVM && n.Family != chain.FamilyStellar {
			return &Error{Path: path, Err: fmt.Errorf("network %q: unknown chain family %q", n.Slug, n.Family)}
		}
		if len(n.Endpoints) == 0 {
			return &Error{Path: path, Err: fmt.Errorf("network %q: at least one endpoint is required", n.Slug)}
		}
		if _, exists := cfg.Networks[n.Slug]; exists {
			return &Error{Path: path, Err: fmt.Errorf("duplicate network slug %q", n.Slug)}
		}
		if n.MaxBlockRange == 0 {
			n.MaxBlockRange = 1
		}
		cfg.Networks[n.Slug] = n
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadDir(filepath.Join(root, "triggers"), func(path string, dec *json.Decoder) error {
		var t Trigger
		if err := dec.Decode(&t); err != nil {
			return &Error{Path: path, Err: err}
		}
		if t.Name == "" {
			return &Error{Path: path, Err: fmt.Errorf("trigger name is required")}
		}
		if err := validateTriggerVariant(&t); err != nil {
			return &Error{Path: path, Err: fmt.Errorf("trigger %q: %w", t.Name, err)}
		}
		if _, exists := cfg.Triggers[t.Name]; exists {
			return &Error{Path: path, Err: fmt.Errorf("duplicate trigger name %q", t.Name)}
		}
		cfg.Triggers[t.Name] = t
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadDir(filepath.Join(root, "monitors"), func(path string, dec *json.Decoder) error {
		var m Monitor
		if err := dec.Decode(&m); err != nil {
			return &Error{Path: path, Err: err}
		}
		if m.Name == "" {
			return &Error{Path: path, Err: fmt.Errorf("monitor name is required")}
		}
		if _, exists := cfg.Monitors[m.Name]; exists {
			return &Error{Path: path, Err: fmt.Errorf("duplicate monitor name %q", m.Name)}
		}
		if err := resolveAndParse(&m, cfg); err != nil {
			return &Error{Path: path, Err: fmt.Errorf("monitor %q: %w", m.Name, err)}
		}
		cfg.Monitors[m.Name] = m
		return nil
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDir walks every *.json file in dir (sorted, for deterministic load
// order) and invokes decode for each. A missing dir is not an error: an
// engine may run with e.g. zero triggers configured.
func loadDir(dir string, decode func(path string, dec *json.Decoder) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &Error{Path: dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return &Error{Path: path, Err: err}
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := decode(path, dec); err != nil {
			return err
		}
	}
	return nil
}

// validIdentifier matches the bare SQL-identifier subset this config
// accepts for a database trigger's table_name: letters, digits,
// underscore, not leading with a digit. The dispatcher interpolates
// table_name into an INSERT statement (identifiers can't be bind
// parameters), so this is the boundary where an operator typo or
// injection attempt gets caught instead of reaching the database.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateTriggerVariant(t *Trigger) error {
	switch t.Type {
	case TriggerSlack, TriggerDiscord:
		if t.URL == "" {
			return fmt.Errorf("webhook url is required")
		}
	case TriggerEmail:
		if t.SMTPHost == "" || len(t.Recipients) == 0 {
			return fmt.Errorf("smtp_host and recipients are required")
		}
	case TriggerTelegram:
		if t.BotToken == "" || t.ChatID == "" {
			return fmt.Errorf("bot_token and chat_id are required")
		}
	case TriggerWebhook:
		if t.URL == "" {
			return fmt.Errorf("url is required")
		}
		if t.Method == "" {
			t.Method = "POST"
		}
	case TriggerScript:
		if t.ScriptPath == "" {
			return fmt.Errorf("script_path is required")
		}
	case TriggerDatabase:
		if t.DSN == "" {
			return fmt.Errorf("dsn is required")
		}
		if t.TableName == "" {
			t.TableName = "monitor_notifications"
		}
		if !validIdentifier.MatchString(t.TableName) {
			return fmt.Errorf("table_name %q is not a valid identifier", t.TableName)
		}
	default:
		return fmt.Errorf("unknown trigger type %q", t.Type)
	}
	return nil
}

// resolveAndParse validates every network/trigger slug a monitor
// references against cfg, and pre-parses every condition's expression.
func resolveAndParse(m *Monitor, cfg *Config) error {
	if len(m.Networks) == 0 {
		return fmt.Errorf("at least one network is required")
	}
	for _, slug := range m.Networks {
		if _, ok := cfg.Networks[slug]; !ok {
			return fmt.Errorf("references unknown network %q", slug)
		}
	}
	for _, name := range m.Triggers {
		if _, ok := cfg.Triggers[name]; !ok {
			return fmt.Errorf("references unknown trigger %q", name)
		}
	}
	for i := range m.Addresses {
		if m.Addresses[i].Address == "" {
			return fmt.Errorf("watched address %d: address is required", i)
		}
	}

	parseGroup := func(group []ConditionSpec, kind string) error {
		for i := range group {
			if group[i].Expression == "" {
				continue
			}
			node, err := expr.Parse(group[i].Expression)
			if err != nil {
				return fmt.Errorf("%s[%d] expression %q: %w", kind, i, group[i].Expression, err)
			}
			group[i].Parsed = node
		}
		return nil
	}
	if err := parseGroup(m.MatchConditions.Functions, "functions"); err != nil {
		return err
	}
	if err := parseGroup(m.MatchConditions.Events, "events"); err != nil {
		return err
	}
	if err := parseGroup(m.MatchConditions.Transactions, "transactions"); err != nil {
		return err
	}

	return nil
}
