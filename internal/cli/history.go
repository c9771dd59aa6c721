package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/carepath/internal/service"
)

// NewHistoryCommand creates the 'carepath-cli history' command
func NewHistoryCommand(s settings) *cobra.Command {
	var (
		limit   int
		reasons int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}

			history, err := client.History(cmd.Context())
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			printHistory(cmd.OutOrStdout(), service.NewPresenter(limit, reasons).History(history))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries to show")
	cmd.Flags().IntVar(&reasons, "reasons", 2, "reasons shown per entry")

	return cmd
}
