package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"SignalGate/internal/di"
	"SignalGate/internal/domain/models"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	"SignalGate/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "signalgate",
		Short:         "Signal admission and quality-gating engine",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config/config.yaml", "config file path, empty for defaults")

	cmd.AddCommand(
		newServeCmd(opts),
		newCheckConfigCmd(opts),
		newEvaluateCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath == "" {
		cfg := config.Default()
		cfg.ApplyEnv(os.Getenv)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadWithEnv(o.configPath)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Kafka candidate consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run()
		},
	}
}

type configSummary struct {
	Environment string   `yaml:"environment"`
	Pool        string   `yaml:"pool"`
	Timezone    string   `yaml:"timezone"`
	Criteria    int      `yaml:"criteria"`
	Sessions    []string `yaml:"sessions"`
	DailyLimit  int      `yaml:"daily_limit"`
	HourlyLimit int      `yaml:"hourly_limit"`
	MinInterval string   `yaml:"min_interval"`
	Backends    []string `yaml:"backends"`
}

func newCheckConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(summarize(cfg))
		},
	}
}

func summarize(cfg *config.Config) configSummary {
	s := configSummary{
		Environment: cfg.Environment,
		Pool:        cfg.Engine.Pool,
		Timezone:    cfg.Engine.Timezone,
		Criteria:    len(cfg.Engine.Scoring.Weights),
		DailyLimit:  cfg.Engine.Admission.DailyLimit,
		HourlyLimit: cfg.Engine.Admission.HourlyLimit,
		MinInterval: cfg.Engine.Admission.MinInterval.String(),
	}
	for _, sess := range cfg.Engine.Admission.Sessions {
		s.Sessions = append(s.Sessions, sess.Name)
	}
	backends := map[string]bool{
		"clickhouse": cfg.ClickHouse.Enabled,
		"kafka":      cfg.Kafka.Enabled,
		"redis":      cfg.Redis.Enabled,
	}
	for name, on := range backends {
		if on {
			s.Backends = append(s.Backends, name)
		}
	}
	sort.Strings(s.Backends)
	return s
}

type evaluateOptions struct {
	input   string
	server  string
	timeout time.Duration
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one candidate from a JSON file and print the decision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readCandidate(cmd.InOrStdin(), opts.input)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var dec *models.AdmissionDecision
			if opts.server != "" {
				dec, err = evaluateRemote(ctx, opts.server, opts.timeout, req)
			} else {
				dec, err = evaluateLocal(ctx, root, req)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dec)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "candidate JSON file, - for stdin")
	cmd.Flags().StringVar(&opts.server, "server", "", "base URL of a running gate; empty evaluates in process")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "evaluation timeout")
	return cmd
}

func readCandidate(stdin io.Reader, path string) (*models.CandidateRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var req models.CandidateRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	return &req, nil
}

func evaluateLocal(ctx context.Context, root *rootOptions, req *models.CandidateRequest) (*models.AdmissionDecision, error) {
	cfg, err := root.load()
	if err != nil {
		return nil, err
	}
	pipe, err := di.BuildLocalPipeline(cfg, logger.Nop())
	if err != nil {
		return nil, err
	}
	return pipe.Process(ctx, req)
}

func evaluateRemote(ctx context.Context, baseURL string, timeout time.Duration, req *models.CandidateRequest) (*models.AdmissionDecision, error) {
	var dec models.AdmissionDecision
	err := xhttp.NewClient(baseURL, xhttp.WithTimeout(timeout)).Do(ctx, &xhttp.RequestOptions{
		Method: http.MethodPost,
		Path:   "/api/v1/evaluate",
		Body:   req,
	}, &dec)
	if err != nil {
		return nil, err
	}
	return &dec, nil
}
