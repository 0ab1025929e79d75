package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go-signpdf/internal/pdf"
	"go-signpdf/internal/viewer"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type PageInfo struct {
	Page           int     `yaml:"page"`
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	Scale          float64 `yaml:"scale"`
	RenderedWidth  float64 `yaml:"renderedWidth"`
	RenderedHeight float64 `yaml:"renderedHeight"`
}

type DocumentInfo struct {
	File  string     `yaml:"file"`
	Pages []PageInfo `yaml:"pages"`
}

func newInfoCmd() *cobra.Command {
	var vp viewer.Viewport

	cmd := &cobra.Command{
		Use:   "info INPUT",
		Short: "Show page sizes and render scales of a PDF",
		Long: `Prints every page's size in PDF points and the scale it renders at in
the given viewport. Plan coordinates for "apply" are in points from the
top-left corner of the page.`,
		Example: `  signpdf info contract.pdf --container-width 1024 --max-height 800`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := vp.Validate(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := pdf.Load(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			info := DocumentInfo{File: filepath.Base(args[0])}
			for i, p := range doc.Pages() {
				fit := viewer.Fit(viewer.PageSize{Width: p.Width, Height: p.Height}, vp)
				info.Pages = append(info.Pages, PageInfo{
					Page:           i + 1,
					Width:          p.Width,
					Height:         p.Height,
					Scale:          fit.Scale,
					RenderedWidth:  fit.RenderedWidth,
					RenderedHeight: fit.RenderedHeight,
				})
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(info); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().Float64Var(&vp.ContainerWidth, "container-width", 800, "Width available for the page, including padding")
	cmd.Flags().Float64Var(&vp.MaxHeight, "max-height", 600, "Height available for the page")

	return cmd
}
