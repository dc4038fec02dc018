package cmd

import (
	"dsa_hub_backend/internal/catalog"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "主题目录工具",
}

var topicsValidateCmd = &cobra.Command{
	Use:   "validate [topics.yaml questions.yaml]",
	Short: "校验主题目录：前置关系无环且题库合法",
	Long:  "不带参数时校验内置目录；传入两个文件时校验外部编辑的目录。",
	Args:  cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("expected both topics and questions files")
		}
		return nil
	}),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cat *catalog.Catalog
			err error
		)
		if len(args) == 2 {
			topicsData, readErr := os.ReadFile(args[0])
			if readErr != nil {
				return readErr
			}
			questionsData, readErr := os.ReadFile(args[1])
			if readErr != nil {
				return readErr
			}
			cat, err = catalog.Parse(topicsData, questionsData)
		} else {
			cat, err = catalog.Load()
		}
		if err != nil {
			return err
		}

		topics := cat.Topics()
		banks := 0
		for _, t := range topics {
			if cat.HasBank(t.ID) {
				banks++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d topics, %d with question banks\n", len(topics), banks)
		return nil
	},
}

func init() {
	topicsCmd.AddCommand(topicsValidateCmd)
}
