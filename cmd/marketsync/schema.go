package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "config-schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := configSchema()
		if err != nil {
			return err
		}

		if schemaOutput == "" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}

		if err := os.WriteFile(schemaOutput, append(data, '\n'), 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("failed to write schema: %w", err)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "write the schema to a file instead of stdout")
}

func configSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}

	schema := r.Reflect(&config.Config{})
	schema.Title = "MarketSync configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	return data, nil
}
