package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/imgstack/pkg/asset"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/pipeline"
)

// stitchOpts holds the command-line flags for the stitch command.
type stitchOpts struct {
	output       string // output file name; extension added when missing
	dir          string // output directory
	widest       bool   // scale to the widest image instead of the narrowest
	format       string // jpeg or png
	quality      int    // JPEG quality
	order        string // comma-separated permutation, e.g. "2,0,1"
	reverse      bool   // stack in reverse argument order
	interpolator string // scaler name
	background   string // fill colour behind transparent pixels
	refresh      bool   // re-download URL sources
	fixtures     bool   // prepend the built-in sample images
}

// sourceArgs requires at least one image unless --fixtures supplies them.
func sourceArgs(opts *stitchOpts) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if opts.fixtures {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	}
}

// stitchCommand creates the stitch command.
func (c *CLI) stitchCommand() *cobra.Command {
	var opts stitchOpts

	cmd := &cobra.Command{
		Use:   "stitch <image>...",
		Short: "Stack images vertically into one file",
		Long: `Stitch loads every image (local paths or http(s) URLs), scales them to a
common width and stacks them top to bottom in argument order.

By default every image is scaled to the narrowest width. Use --widest to
scale up to the widest image instead.`,
		Example: `  # Stitch three screenshots into joinedimage.jpg
  imgstack stitch a.png b.png c.png

  # Widest policy, PNG output, custom order
  imgstack stitch --widest --format png --order 2,0,1 -o strip a.png b.png c.png`,
		Args: sourceArgs(&opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStitch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file name (default from config, joinedimage)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "output directory (default from config, .)")
	cmd.Flags().BoolVar(&opts.widest, "widest", false, "scale every image to the widest width")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpeg (default), png")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", 0, "JPEG quality 1-100 (default 92)")
	cmd.Flags().StringVar(&opts.order, "order", "", "stacking order as source indices, e.g. 2,0,1")
	cmd.Flags().BoolVar(&opts.reverse, "reverse", false, "stack in reverse order")
	cmd.Flags().StringVar(&opts.interpolator, "interpolator", "", "scaler: nearest, approx, bilinear, catmullrom")
	cmd.Flags().StringVar(&opts.background, "background", "", "background colour, e.g. #ffffff")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-download URL sources")
	cmd.Flags().BoolVar(&opts.fixtures, "fixtures", false, "stitch the built-in sample images before any given ones")

	return cmd
}

func (c *CLI) runStitch(cmd *cobra.Command, args []string, opts stitchOpts) error {
	ctx := cmd.Context()

	popts, err := c.stitchOptions(cmd, args, opts)
	if err != nil {
		return err
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Stitching %d images...", len(popts.Sources)))
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	spinner.Stop()
	if err != nil {
		if spinner.Cancelled() {
			return ctx.Err()
		}
		return err
	}

	dir := opts.dir
	if dir == "" {
		dir = c.Config.Export.Dir
	}
	path, err := writeArtifact(ctx, dir, result)
	if err != nil {
		return err
	}

	printSuccess("Stitched %d images", result.Stats.Images)
	printStats(result.Stats)
	printDetail("Order: %s", strings.Join(result.Order, ", "))
	printFile(path)
	return nil
}

// stitchOptions merges config defaults with the flags the user set.
func (c *CLI) stitchOptions(cmd *cobra.Command, args []string, opts stitchOpts) (pipeline.Options, error) {
	if opts.fixtures {
		args = append(asset.FixtureLocators(), args...)
	}
	popts := c.pipelineOptions(args)
	flags := cmd.Flags()

	if opts.widest {
		popts.Policy = "widest"
	}
	if flags.Changed("format") {
		popts.Format = opts.format
	}
	if flags.Changed("quality") {
		popts.Quality = opts.quality
	}
	if flags.Changed("output") {
		popts.Filename = opts.output
		// -o strip.png implies PNG unless --format says otherwise
		if !flags.Changed("format") {
			if f, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(opts.output), ".")); err == nil && filepath.Ext(opts.output) != "" {
				popts.Format = string(f)
			}
		}
	}
	if flags.Changed("interpolator") {
		popts.Interpolator = opts.interpolator
	}
	if flags.Changed("background") {
		popts.Background = opts.background
	}
	popts.Reverse = opts.reverse
	popts.Refresh = opts.refresh

	order, err := pipeline.ParseOrder(opts.order)
	if err != nil {
		return popts, err
	}
	popts.Order = order
	return popts, nil
}

// writeArtifact writes the encoded composite into dir.
func writeArtifact(ctx context.Context, dir string, result *pipeline.Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, result.Filename)
	if err := os.WriteFile(path, result.Artifact, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
