package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ralt/caryatid/internal/catalog"
	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/publisher"
	"github.com/spf13/cobra"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the versions and providers recorded in a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd)
			if err != nil {
				return err
			}

			var config models.PublishConfig
			destinationConfig(v, &config)

			t, err := newTransport(&config)
			if err != nil {
				return err
			}
			p, err := publisher.New(publisher.Config{Transport: t})
			if err != nil {
				return err
			}

			c, err := p.Catalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printCatalog(cmd.OutOrStdout(), c)
		},
	}

	addDestinationFlags(cmd)

	return cmd
}

func printCatalog(out io.Writer, c *models.Catalog) error {
	fmt.Fprintf(out, "%s: %s\n\n", c.Name, c.Description)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tPROVIDER\tCHECKSUM\tURL")
	for _, v := range catalog.SortedVersions(c) {
		if len(v.Providers) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\n", v.Version)
		}
		for _, p := range v.Providers {
			fmt.Fprintf(w, "%s\t%s\t%s:%s\t%s\n", v.Version, p.Name, p.ChecksumType, p.Checksum, p.URL)
		}
	}
	return w.Flush()
}
