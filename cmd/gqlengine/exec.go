package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hanpama/gqlengine/internal/response"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExecCmd() *cobra.Command {
	var (
		queryFile string
		variables string
		operation string
	)
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute one request against the sample model",
		Example: `  # Run a query file
  gqlengine exec --query hero.graphql

  # Read the query from stdin with variables
  echo 'query($id: ID!) { human(id: $id) { name } }' | gqlengine exec -q - --variables '{"id":"1000"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			query, err := readQuery(cmd, queryFile)
			if err != nil {
				return err
			}
			req := &response.Request{Query: query, OperationName: operation}
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &req.Variables); err != nil {
					return fmt.Errorf("parse variables: %w", err)
				}
			}

			engine, err := newEngine(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			resp := engine.Execute(cmd.Context(), req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVarP(&queryFile, "query", "q", "", "File holding the query document, - for stdin")
	cmd.Flags().StringVar(&variables, "variables", "", "Variables as a JSON object")
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "Name of the operation to run")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func readQuery(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(b), nil
}
