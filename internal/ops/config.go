// Package ops loads the JSON runtime configuration: journal backend,
// runner limits and the optional scripted workload.
package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"main/pkg/conn"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Journal  JournalConfig  `json:"journal"`
	Runner   RunnerConfig   `json:"runner"`
	Workload WorkloadConfig `json:"workload"`
}

// JournalConfig selects and parameterizes the event log backend.
type JournalConfig struct {
	Backend    string         `json:"backend"`
	Dir        string         `json:"dir"`
	FilePrefix string         `json:"filePrefix"`
	Postgres   PostgresConfig `json:"postgres"`
}

// PostgresConfig describes the database backend connection.
type PostgresConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Database   string `json:"database"`
	SSLMode    string `json:"sslMode"`
	ConnString string `json:"connString"`
}

// RunnerConfig bounds the per-entity command queue.
type RunnerConfig struct {
	QueueSize int `json:"queueSize"`
}

// WorkloadConfig is an optional scripted command sequence used by the
// workload smoke mode.
type WorkloadConfig struct {
	Accounts []AccountSpec `json:"accounts"`
	Updates  []UpdateSpec  `json:"updates"`
}

// AccountSpec describes one account to create.
type AccountSpec struct {
	ID             string `json:"id"`
	Owner          string `json:"owner"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initialBalance"`
}

// UpdateSpec describes one balance update to apply.
type UpdateSpec struct {
	Account string `json:"account"`
	Delta   string `json:"delta"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Journal  JournalConfig
	Runner   RunnerConfig
	Workload Workload
}

// Workload is the resolved scripted command sequence.
type Workload struct {
	Accounts []ResolvedAccount
	Updates  []ResolvedUpdate
}

// ResolvedAccount is an account spec with a parsed initial balance.
type ResolvedAccount struct {
	ID             string
	Owner          string
	Currency       string
	InitialBalance decimal.Decimal
}

// ResolvedUpdate is an update spec with a parsed delta.
type ResolvedUpdate struct {
	Account string
	Delta   decimal.Decimal
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a parsed config and parses the workload amounts.
func Resolve(cfg FileConfig) (Loaded, error) {
	journal, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}
	workload, err := resolveWorkload(cfg.Workload)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Journal:  journal,
		Runner:   cfg.Runner,
		Workload: workload,
	}, nil
}

// PostgresOption converts the config into connection options.
func (c PostgresConfig) PostgresOption() conn.Option {
	return conn.Option{
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		Database:   c.Database,
		SSLMode:    c.SSLMode,
		ConnString: c.ConnString,
	}
}

func resolveJournal(cfg JournalConfig) (JournalConfig, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendFile
	}
	switch cfg.Backend {
	case BackendFile:
		if cfg.Dir == "" {
			return JournalConfig{}, fmt.Errorf("journal dir is empty")
		}
	case BackendPostgres:
		if cfg.Postgres.ConnString == "" && cfg.Postgres.Database == "" {
			return JournalConfig{}, fmt.Errorf("postgres database is empty")
		}
	default:
		return JournalConfig{}, fmt.Errorf("unknown journal backend: %s", cfg.Backend)
	}
	return cfg, nil
}

func resolveWorkload(cfg WorkloadConfig) (Workload, error) {
	var workload Workload
	for _, spec := range cfg.Accounts {
		if spec.ID == "" {
			return Workload{}, fmt.Errorf("workload account id is empty")
		}
		balance := decimal.Zero
		if spec.InitialBalance != "" {
			parsed, err := decimal.NewFromString(spec.InitialBalance)
			if err != nil {
				return Workload{}, fmt.Errorf("invalid initial balance for %s: %w", spec.ID, err)
			}
			balance = parsed
		}
		workload.Accounts = append(workload.Accounts, ResolvedAccount{
			ID:             spec.ID,
			Owner:          spec.Owner,
			Currency:       spec.Currency,
			InitialBalance: balance,
		})
	}
	for _, spec := range cfg.Updates {
		if spec.Account == "" {
			return Workload{}, fmt.Errorf("workload update account is empty")
		}
		delta, err := decimal.NewFromString(spec.Delta)
		if err != nil {
			return Workload{}, fmt.Errorf("invalid delta for %s: %w", spec.Account, err)
		}
		workload.Updates = append(workload.Updates, ResolvedUpdate{
			Account: spec.Account,
			Delta:   delta,
		})
	}
	return workload, nil
}
