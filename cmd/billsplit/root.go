package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "billsplit",
		Short: "Split and rename monthly vendor billing PDFs",
		Long: `billsplit processes zip archives of per-business billing documents:
each merged shipping bill is split at the 出荷明細書 boundary into an
invoice and a detail statement, the business name is read from the
document text, and the outputs are written under the fixed
{yyyymm}_{business}様_{suffix}.pdf naming convention.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "billsplit v%s\n", version)
		},
	}
}
