package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seatplan/seatplan/internal/auth"
	"github.com/seatplan/seatplan/internal/config"
	"github.com/seatplan/seatplan/internal/convert"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/export"
	"github.com/seatplan/seatplan/internal/layout"
)

var errInvalidLayout = errors.New("layout is invalid")

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "seatctl",
		Short:         "Offline tools for seating layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChairsCmd(),
		newConvertCmd(),
		newValidateCmd(),
		newExportCmd(),
		newTokenCmd(),
	)
	return root
}

func newChairsCmd() *cobra.Command {
	var (
		shape         string
		x, y          float64
		width, height float64
		capacity      int
	)

	cmd := &cobra.Command{
		Use:   "chairs",
		Short: "Print chair placement for one table",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := layout.ParseTableShape(shape)
			if !ok {
				return fmt.Errorf("unknown shape %q", shape)
			}
			if capacity < 1 || capacity > layout.MaxTableCapacity {
				return fmt.Errorf("capacity must be between 1 and %d", layout.MaxTableCapacity)
			}
			size := layout.Size{Width: width, Height: height}
			if !size.Valid() {
				size = layout.DefaultTableSize(s)
			}
			chairs := layout.CalculateChairs(s, x, y, size.Width, size.Height, capacity)
			return writeIndented(cmd.OutOrStdout(), chairs)
		},
	}
	cmd.Flags().StringVar(&shape, "shape", string(layout.ShapeRound), "table shape (round, square, rectangular, custom)")
	cmd.Flags().Float64Var(&x, "x", 0, "table x")
	cmd.Flags().Float64Var(&y, "y", 0, "table y")
	cmd.Flags().Float64Var(&width, "width", 0, "table width (default for shape when unset)")
	cmd.Flags().Float64Var(&height, "height", 0, "table height (default for shape when unset)")
	cmd.Flags().IntVar(&capacity, "capacity", 8, "number of chairs")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		name   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert <sections.json>",
		Short: "Convert section descriptors into a layout document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read sections: %w", err)
			}
			sections, err := convert.ParseSections(data)
			if err != nil {
				return err
			}

			l := document.NewEmptyLayout("chart_local", name)
			l.Items = convert.ConvertSections(sections, convert.Options{})
			slog.Debug("converted sections", "sections", len(sections), "items", len(l.Items), "seats", l.TotalSeats())

			return withOutput(cmd, output, func(w io.Writer) error {
				return writeIndented(w, l)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Imported layout", "layout name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <layout.json>",
		Short: "Check a layout document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readLayout(args[0])
			if err != nil {
				return err
			}
			res := convert.ValidateCanvasItems(l.Items)
			out := cmd.OutOrStdout()
			if res.Valid {
				fmt.Fprintf(out, "ok: %d items, %d seats\n", len(l.Items), l.TotalSeats())
				return nil
			}
			for _, e := range res.Errors {
				fmt.Fprintln(out, e)
			}
			return fmt.Errorf("%w: %d problems", errInvalidLayout, len(res.Errors))
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <layout.json>",
		Short: "Render a layout document to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readLayout(args[0])
			if err != nil {
				return err
			}
			return withOutput(cmd, output, func(w io.Writer) error {
				return export.WriteSVG(w, l)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := auth.NewService(cfg.JWTSecret).IssueToken(userID, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func readLayout(path string) (*document.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	var l document.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &l, nil
}

// withOutput runs write against the named file, or the command's stdout
// when path is empty. The file is only created once write succeeds.
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Debug("wrote output", "path", path, "bytes", buf.Len())
	return nil
}

func writeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
