package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/scoringclient"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

func assessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess <code>",
		Short: "Score a response file against a test",
		Long: "Score a JSON response file. With --remote (or REMOTE_SCORING_URL) the server at that\n" +
			"address scores it; when the server is unreachable the bundled snapshot is used instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("responses")
			remote, _ := cmd.Flags().GetString("remote")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if remote == "" {
				remote = cfg.RemoteScoringURL
			}
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			responses, err := parseResponses(data)
			if err != nil {
				return err
			}

			static, err := catalog.NewStatic()
			if err != nil {
				return err
			}
			engine := scoring.NewEngine(static)

			ctx := context.Background()
			var out interface{}
			if remote == "" {
				out, err = assessLocal(ctx, engine, args[0], responses)
			} else {
				client, cerr := newScoringClient(cfg, remote, engine)
				if cerr != nil {
					return cerr
				}
				out, err = assessRemote(ctx, client, args[0], responses)
			}
			if err != nil {
				return describeAssessError(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().String("responses", "-", `Response file ({"responses":[...]} or a bare array); "-" reads stdin`)
	cmd.Flags().String("remote", "", "Base URL of a wellcheck server")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseResponses accepts either a request body or a bare response array.
func parseResponses(data []byte) (scoring.ResponseSet, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var rs scoring.ResponseSet
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
		return rs, nil
	}
	var body struct {
		Responses scoring.ResponseSet `json:"responses"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return body.Responses, nil
}

func newScoringClient(cfg *config.Config, remote string, local *scoring.Engine) (*scoringclient.Client, error) {
	opts := []scoringclient.Option{
		scoringclient.WithLocal(local),
		scoringclient.WithLogger(cliLogger()),
	}
	if cfg.RemoteTimeout > 0 {
		opts = append(opts, scoringclient.WithTimeout(cfg.RemoteTimeout))
	}
	if cfg.AuthSigningKey != "" {
		tok, err := auth.IssueToken(jwtConfig(cfg), "cli", []string{auth.RoleRespondent}, 5*time.Minute)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scoringclient.WithToken(tok))
	}
	return scoringclient.New(remote, opts...)
}

func assessLocal(ctx context.Context, engine *scoring.Engine, code string, responses scoring.ResponseSet) (interface{}, error) {
	def, err := engine.Catalog().GetTestDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	if def.IsComposite() {
		return engine.AssessComprehensive(ctx, code, responses)
	}
	return engine.Evaluate(def, responses)
}

type remoteOutput struct {
	ID     string      `json:"id,omitempty"`
	Local  bool        `json:"scored_locally"`
	Result interface{} `json:"result"`
}

func assessRemote(ctx context.Context, client *scoringclient.Client, code string, responses scoring.ResponseSet) (interface{}, error) {
	def, err := client.GetTestDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	if def.IsComposite() {
		res, err := client.AssessComprehensive(ctx, code, responses)
		if err != nil {
			return nil, err
		}
		return remoteOutput{ID: res.ID, Local: res.Local, Result: res.Result}, nil
	}
	res, err := client.Assess(ctx, code, responses)
	if err != nil {
		return nil, err
	}
	return remoteOutput{ID: res.ID, Local: res.Local, Result: res.Result}, nil
}

func describeAssessError(err error) error {
	return fmt.Errorf("%s: %w", scoring.Kind(err), err)
}
