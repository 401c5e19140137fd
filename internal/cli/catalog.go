package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"traking-shop/internal/catalog"
	"traking-shop/internal/export"
	"traking-shop/internal/models"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Fetch, classify and upsert the whole Valorant skin catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return importOnce(cmd.Context(), a.Importer, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newAssignCmd() *cobra.Command {
	var productID string
	var count int
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a balanced sample of skins to an account",
		Long: `Assign a balanced sample of skins to an account. Without --count a random
number between 15 and 295 is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			var res catalog.AssignResult
			if count > 0 {
				res, err = a.Implementer.ImplementCount(cmd.Context(), productID, count)
			} else {
				res, err = a.Implementer.ImplementRandom(cmd.Context(), productID)
			}
			return finishAssign(cmd.OutOrStdout(), res, err)
		},
	}
	cmd.Flags().StringVarP(&productID, "product", "p", "", "Product (account) id")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of skins to assign")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newAssignCollectionCmd() *cobra.Command {
	var productID, collection string
	var extra int
	cmd := &cobra.Command{
		Use:   "assign-collection",
		Short: "Assign every skin of a collection plus random extras",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			res, err := a.Implementer.ImplementCollection(cmd.Context(), productID, collection, extra)
			return finishAssign(cmd.OutOrStdout(), res, err)
		},
	}
	cmd.Flags().StringVarP(&productID, "product", "p", "", "Product (account) id")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name, e.g. Prime")
	cmd.Flags().IntVar(&extra, "extra", 0, "Random skins from other collections")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func newExportCmd() *cobra.Command {
	var productID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an account's skins to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			product, links, err := a.Implementer.AccountSkins(cmd.Context(), productID)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("account-%s-skins.xlsx", product.ID)
			}
			if err := writeExport(out, product, links); err != nil {
				return err
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Wrote %d skins to %s\n", len(links), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&productID, "product", "p", "", "Product (account) id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func writeExport(path string, product models.Product, links []models.AccountSkinLink) error {
	skins := make([]models.Skin, 0, len(links))
	for _, l := range links {
		if l.Skin != nil {
			skins = append(skins, *l.Skin)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	if err := export.AccountSkinsXLSX(f, product, skins); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func progressPrinter(w io.Writer) func(catalog.ProgressEvent) {
	if jsonOutput {
		return nil
	}
	return func(e catalog.ProgressEvent) {
		if e.Total > 0 {
			fmt.Fprintf(w, "[%s] %d/%d\n", e.Stage, e.Done, e.Total)
			return
		}
		fmt.Fprintf(w, "[%s] %s\n", e.Stage, e.Message)
	}
}

func printImportResult(w io.Writer, res catalog.ImportResult) {
	if jsonOutput {
		printJSON(res)
		return
	}
	okLabel.Fprintf(w, "Import finished: ")
	fmt.Fprintf(w, "%d created, %d updated, %d failed of %d\n", res.Created, res.Updated, res.Failed, res.Total)
	for _, e := range res.Errors {
		warnLabel.Fprintf(w, "  %s\n", e)
	}
}

// finishAssign prints the scorecard, including a partial one next to a persistence error.
func finishAssign(w io.Writer, res catalog.AssignResult, err error) error {
	if errors.Is(err, catalog.ErrNothingToAssign) {
		warnLabel.Fprintln(w, "Nothing to assign: every candidate is already linked")
		return nil
	}
	var pe *catalog.PersistenceError
	if err != nil && !errors.As(err, &pe) {
		return err
	}
	printAssignResult(w, res)
	return err
}

func printAssignResult(w io.Writer, res catalog.AssignResult) {
	if jsonOutput {
		printJSON(res)
		return
	}
	okLabel.Fprintf(w, "Linked %d skins", res.Linked)
	fmt.Fprintf(w, " (%d skipped, %d failed)\n", res.Skipped, res.Failed)
	for weapon, n := range res.DistributionByWeapon {
		fmt.Fprintf(w, "  %-10s %d\n", weapon, n)
	}
	for _, e := range res.Errors {
		warnLabel.Fprintf(w, "  %s\n", e)
	}
}

// importOnce is shared by the import and daemon commands
func importOnce(ctx context.Context, im *catalog.Importer, out, progress io.Writer) error {
	res, err := im.Run(ctx, progressPrinter(progress))
	if err != nil {
		return err
	}
	printImportResult(out, res)
	return nil
}
