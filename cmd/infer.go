package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/hydronet/internal/infer"
	"github.com/agentic-research/hydronet/internal/log"
)

var (
	inferLocator    string
	inferSampleSize int
	inferSeed       int64
)

var inferCmd = &cobra.Command{
	Use:   "infer [source]",
	Short: "Guess a source schema from flowline field names and values",
	Long: `Samples the flowline records of a GeoJSON or SQLite source and prints a
YAML schema mapping its fields onto segment attributes. The output can be
edited and passed back with --schema.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inf := &infer.Inferrer{Config: infer.InferConfig{
			SampleSize: inferSampleSize,
			Seed:       inferSeed,
		}}
		schema, err := inf.InferFromSource(args[0], inferLocator)
		if err != nil {
			return err
		}
		f := schema.Segments.Fields
		log.Infow("inferred schema", "source", args[0], "id", f.ID, "toid", f.ToID)

		out, err := yaml.Marshal(schema)
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	inferCmd.Flags().StringVar(&inferLocator, "locator", "", "JSONPath selector (JSON) or table name (SQLite) holding flowlines")
	inferCmd.Flags().IntVar(&inferSampleSize, "sample", infer.DefaultInferConfig().SampleSize, "Records to sample")
	inferCmd.Flags().Int64Var(&inferSeed, "seed", 0, "Sampling seed")
	rootCmd.AddCommand(inferCmd)
}
