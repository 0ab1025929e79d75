package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go-signpdf/internal/config"
	"go-signpdf/internal/editor"
	"go-signpdf/internal/imaging"
	"go-signpdf/internal/viewer"

	"github.com/spf13/cobra"
	"golang.org/x/image/font/opentype"
	"gopkg.in/yaml.v3"
)

// Plan lists what to put where. Coordinates and widths are PDF points
// measured from the top-left corner of the page.
type Plan struct {
	Placements []Placement `yaml:"placements"`
	// Copies run after every placement, in order.
	Copies []Copy `yaml:"copies,omitempty"`
}

// Placement adds one annotation. Exactly one of Image, Stamp and Drawing
// must be set.
type Placement struct {
	Page    int          `yaml:"page"`
	Image   string       `yaml:"image,omitempty"`
	Stamp   *StampSpec   `yaml:"stamp,omitempty"`
	Drawing *DrawingSpec `yaml:"drawing,omitempty"`
	X       float64      `yaml:"x"`
	Y       float64      `yaml:"y"`
	// Width keeps the default size when zero.
	Width float64 `yaml:"width,omitempty"`
}

type StampSpec struct {
	Name        string  `yaml:"name"`
	Shape       string  `yaml:"shape,omitempty"`
	Color       string  `yaml:"color,omitempty"`
	BorderWidth float64 `yaml:"borderWidth,omitempty"`
	FontSize    float64 `yaml:"fontSize,omitempty"`
	IncludeDate bool    `yaml:"includeDate,omitempty"`
	// Date is YYYY-MM-DD and defaults to today.
	Date string `yaml:"date,omitempty"`
}

type DrawingSpec struct {
	Strokes  [][]imaging.Point `yaml:"strokes"`
	Color    string            `yaml:"color,omitempty"`
	PenWidth float64           `yaml:"penWidth,omitempty"`
}

// Copy duplicates everything on page From onto the pages in To.
type Copy struct {
	From int   `yaml:"from"`
	To   []int `yaml:"to"`
}

var ErrInvalidPlan = errors.New("invalid plan")

// LoadPlan reads a YAML plan. Relative image paths are resolved against the
// plan's directory.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}
	var plan Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := plan.validate(); err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, p := range plan.Placements {
		if p.Image != "" && !filepath.IsAbs(p.Image) {
			plan.Placements[i].Image = filepath.Join(dir, p.Image)
		}
	}
	return plan, nil
}

func (p Plan) validate() error {
	if len(p.Placements) == 0 {
		return fmt.Errorf("%w: no placements", ErrInvalidPlan)
	}
	for i, pl := range p.Placements {
		n := 0
		if pl.Image != "" {
			n++
		}
		if pl.Stamp != nil {
			n++
		}
		if pl.Drawing != nil {
			n++
		}
		if n != 1 {
			return fmt.Errorf("%w: placement %d needs exactly one of image, stamp or drawing", ErrInvalidPlan, i+1)
		}
		if pl.Stamp != nil && pl.Stamp.Date != "" {
			if _, err := time.Parse(time.DateOnly, pl.Stamp.Date); err != nil {
				return fmt.Errorf("%w: placement %d: stamp date %q", ErrInvalidPlan, i+1, pl.Stamp.Date)
			}
		}
	}
	for i, c := range p.Copies {
		if len(c.To) == 0 {
			return fmt.Errorf("%w: copy %d has no target pages", ErrInvalidPlan, i+1)
		}
	}
	return nil
}

func (pl Placement) source(font *opentype.Font) (imaging.Source, error) {
	switch {
	case pl.Stamp != nil:
		s := imaging.GeneratedStamp{
			Name:        pl.Stamp.Name,
			Shape:       imaging.StampShape(pl.Stamp.Shape),
			Color:       pl.Stamp.Color,
			BorderWidth: pl.Stamp.BorderWidth,
			FontSize:    pl.Stamp.FontSize,
			IncludeDate: pl.Stamp.IncludeDate,
			Font:        font,
		}
		if pl.Stamp.Date != "" {
			s.Date, _ = time.Parse(time.DateOnly, pl.Stamp.Date)
		}
		return s, nil
	case pl.Drawing != nil:
		return imaging.FreehandDrawing{
			Strokes:  pl.Drawing.Strokes,
			Color:    pl.Drawing.Color,
			PenWidth: pl.Drawing.PenWidth,
		}, nil
	default:
		data, err := os.ReadFile(pl.Image)
		if err != nil {
			return nil, err
		}
		return imaging.UploadedImage{Data: data}, nil
	}
}

// Apply carries out plan on the document open in ed and returns the signed
// PDF with its file name.
func Apply(ctx context.Context, ed *editor.Editor, plan Plan, font *opentype.Font) ([]byte, string, error) {
	for i, pl := range plan.Placements {
		if err := showAtPointScale(ed, pl.Page); err != nil {
			return nil, "", fmt.Errorf("placement %d: %w", i+1, err)
		}
		src, err := pl.source(font)
		if err != nil {
			return nil, "", fmt.Errorf("placement %d: %w", i+1, err)
		}
		a, err := ed.Add(src)
		if err != nil {
			return nil, "", fmt.Errorf("placement %d: %w", i+1, err)
		}
		if _, err := ed.Place(a.ID, pl.X, pl.Y, pl.Width); err != nil {
			return nil, "", fmt.Errorf("placement %d: %w", i+1, err)
		}
	}

	for i, c := range plan.Copies {
		if err := ed.ShowPage(c.From); err != nil {
			return nil, "", fmt.Errorf("copy %d: %w", i+1, err)
		}
		if err := ed.SelectPages(append([]int{c.From}, c.To...)); err != nil {
			return nil, "", fmt.Errorf("copy %d: %w", i+1, err)
		}
		if _, err := ed.Duplicate(); err != nil {
			return nil, "", fmt.Errorf("copy %d: %w", i+1, err)
		}
	}

	return ed.Export(ctx)
}

// showAtPointScale shows page in a viewport that renders it at scale 1, so
// render pixels and PDF points coincide.
func showAtPointScale(ed *editor.Editor, page int) error {
	if err := ed.ShowPage(page); err != nil {
		return err
	}
	size := ed.Snapshot().Pages[page-1]
	return ed.SetViewport(viewer.Viewport{
		ContainerWidth: size.Width + viewer.ViewportPadding,
		MaxHeight:      size.Height,
	})
}

func newApplyCmd() *cobra.Command {
	var (
		planPath string
		output   string
		fontPath string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "apply INPUT",
		Short: "Sign a PDF from a placement plan",
		Long: `Places the images, stamps and drawings listed in a YAML plan and writes
the signed PDF. Positions are PDF points from the top-left corner of the
page; use "signpdf info" to see page sizes.`,
		Example: `  # plan.yaml
  placements:
    - page: 1
      image: signature.png
      x: 380
      y: 690
      width: 140
    - page: 1
      stamp: {name: KIM, shape: circle, includeDate: true}
      x: 460
      y: 660
      width: 80
  copies:
    - from: 1
      to: [2, 3]

  signpdf apply contract.pdf --plan plan.yaml -o contract_signed.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !verbose {
				cfg.LogLevel = max(cfg.LogLevel, slog.LevelWarn)
			}
			logger := cfg.NewLogger(cmd.ErrOrStderr())

			if fontPath == "" {
				fontPath = cfg.StampFontFile
			}
			var font *opentype.Font
			if fontPath != "" {
				if font, err = imaging.LoadFont(fontPath); err != nil {
					return err
				}
			}

			plan, err := LoadPlan(planPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ed := editor.New(editor.WithLogger(logger))
			if err := ed.Load(filepath.Base(args[0]), data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			signed, name, err := Apply(cmd.Context(), ed, plan, font)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), name)
			}
			if err := os.WriteFile(output, signed, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d annotations)\n", output, len(ed.Snapshot().Annotations))
			return nil
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "YAML placement plan")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default INPUT_signed.pdf next to INPUT)")
	cmd.Flags().StringVar(&fontPath, "font", "", "TrueType/OpenType font for stamps (overrides STAMP_FONT_FILE)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
