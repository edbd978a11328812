package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var vocabFile string

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the effective naming vocabulary as YAML",
	Long: `Print the vocabulary used for normalization, filtering, sorting and
display. The output is a valid vocabulary file: edit it and point
vocabulary.path (or --file) at it to change the rules.

Cached variant lists are tagged with the vocabulary version. Change
version whenever you edit a file, or cached lists computed under the old
rules keep being used; a new version makes the next build refetch them.`,
	Args: cobra.NoArgs,
	RunE: runVocab,
}

func init() {
	vocabCmd.Flags().StringVar(&vocabFile, "file", "", "vocabulary file to load (default: vocabulary.path)")
}

func runVocab(cmd *cobra.Command, args []string) error {
	v, err := loadVocabulary(firstNonEmpty(vocabFile, cfg.Vocabulary.Path))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(v.Data())
	if err != nil {
		return fmt.Errorf("failed to marshal vocabulary: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
