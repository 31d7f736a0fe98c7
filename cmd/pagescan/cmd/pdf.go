package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/pdf"
)

func newPDFCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf FILE",
		Short: "Rectify the scanned images embedded in a PDF",
		Long: `Pdf extracts the images of a PDF, rectifies each one and writes the
pages to a new PDF. Encrypted documents are opened with --password or
--owner-password.

Examples:
  pagescan pdf scan.pdf
  pagescan pdf scan.pdf --pages 1-3,5 --output clean.pdf
  pagescan pdf locked.pdf --password secret --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPDF(cmd, args[0])
		},
	}
	addDetectorFlags(cmd)
	addRectifyFlags(cmd)
	f := cmd.Flags()
	f.String("pages", "", "page range, e.g. \"1-3,5\" (default: all pages)")
	f.StringP("output", "o", "", "output PDF path (default <name>_rectified.pdf)")
	f.String("password", "", "user password for encrypted PDFs")
	f.String("owner-password", "", "owner password for encrypted PDFs")
	f.StringP("format", "f", outputFormatText, "summary format (text, json)")
	f.Bool("keep-unrectified", false, "keep images where no page was found instead of dropping them")
	a.bind(cmd, detectorBindings)
	a.bind(cmd, rectifyBindings)
	return cmd
}

func (a *app) runPDF(cmd *cobra.Command, path string) error {
	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	if err := checkFormat(format, outputFormatText, outputFormatJSON); err != nil {
		return err
	}
	pages, _ := flags.GetString("pages")
	output, _ := flags.GetString("output")
	if output == "" {
		output = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_rectified.pdf"
	}
	keep, _ := flags.GetBool("keep-unrectified")

	var creds *pdf.Credentials
	user, _ := flags.GetString("password")
	owner, _ := flags.GetString("owner-password")
	if user != "" || owner != "" {
		creds = &pdf.Credentials{UserPassword: user, OwnerPassword: owner}
	}

	pl, cleanup, err := a.buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	proc := pdf.NewProcessor(pl, pdf.ProcessorConfig{
		PageRange:       pages,
		Credentials:     creds,
		Parallel:        pl.Config().Parallel,
		KeepUnrectified: keep,
	})
	doc, err := proc.ProcessFile(commandContext(cmd), path, output)
	if err != nil {
		if pdf.IsPasswordError(err) {
			return fmt.Errorf("%s is encrypted: supply --password or --owner-password: %w", path, err)
		}
		return err
	}
	out := cmd.OutOrStdout()
	if format == outputFormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return writePDFText(out, doc)
}

func writePDFText(w io.Writer, doc *pdf.DocumentResult) error {
	if _, err := fmt.Fprintf(w, "%s: %d page(s), %d image(s)\n", doc.Filename, doc.TotalPages, doc.ImageCount()); err != nil {
		return err
	}
	for _, p := range doc.Pages {
		for _, img := range p.Images {
			status := "no page"
			if r := img.Result; r != nil && r.Rectified != nil {
				status = fmt.Sprintf("%dx%d %s", r.Rectified.Width, r.Rectified.Height, r.Rectified.Mode)
			}
			if _, err := fmt.Fprintf(w, "  page %d image %d: %s\n", p.PageNumber, img.ImageIndex, status); err != nil {
				return err
			}
		}
	}
	if doc.Output != "" {
		_, err := fmt.Fprintf(w, "Written to %s\n", doc.Output)
		return err
	}
	return nil
}
