package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tilefeed/internal/tile"
)

// Plan output styling. Colors degrade to plain text when stdout is not a
// terminal.
var (
	planHeaderStyle  = lipgloss.NewStyle().Bold(true)
	planMutedStyle   = lipgloss.NewStyle().Faint(true)
	planPresentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// gridLimit caps the coverage grid; larger mosaics only get the listing.
const gridLimit = 32

// planCmd previews a feed run: order, metadata and coverage, no copying.
var planCmd = &cobra.Command{
	Use:   "plan <source-dir>",
	Short: "Preview the feed order and coverage without copying anything",
	Long: `Lists the staged tiles in the order a feed would deliver them, together
with their sidecar bounds, a row/column coverage grid and the combined
extent. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	source := args[0]

	tiles, err := tile.List(source)
	if err != nil {
		return err
	}

	// Sidecar reads are independent of each other; fan out and keep the
	// results indexed so the listing still prints in feed order.
	metas := make([]*tile.Metadata, len(tiles))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(8)
	for i, t := range tiles {
		g.Go(func() error {
			path := filepath.Join(source, t.SidecarName())
			if _, err := os.Stat(path); err != nil {
				return nil
			}
			md, err := tile.ReadMetadata(path)
			if err != nil {
				return err
			}
			metas[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, planHeaderStyle.Render(fmt.Sprintf("Staging plan for %s", source)))

	var (
		extent    orb.Bound
		hasExtent bool
		sidecars  int
	)
	for i, t := range tiles {
		line := fmt.Sprintf("%3d. %-20s", i+1, t.Name)
		if md := metas[i]; md != nil {
			sidecars++
			fmt.Fprintf(out, "%s bounds %s\n", line, md.Bounds.Display())
			if r, ok := md.Bounds.Rect(); ok {
				if hasExtent {
					extent = extent.Union(r)
				} else {
					extent, hasExtent = r, true
				}
			}
		} else {
			fmt.Fprintf(out, "%s %s\n", line, planMutedStyle.Render("no metadata"))
		}
	}

	if grid := renderGrid(tiles); grid != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, grid)
	}

	if hasExtent {
		minLon, minLat := extent.Min.X(), extent.Min.Y()
		maxLon, maxLat := extent.Max.X(), extent.Max.Y()
		eb := tile.Bounds{MinLon: &minLon, MinLat: &minLat, MaxLon: &maxLon, MaxLat: &maxLat}
		fmt.Fprintf(out, "Extent: %s\n", eb.Display())
	}
	fmt.Fprintf(out, "Found %d tiles (%d with metadata)\n", len(tiles), sidecars)
	return nil
}

// renderGrid draws row/column coverage, one rune per grid cell.
func renderGrid(tiles []tile.Tile) string {
	if len(tiles) == 0 {
		return ""
	}

	var maxRow, maxCol int
	present := make(map[[2]int]bool, len(tiles))
	for _, t := range tiles {
		present[[2]int{t.Row, t.Col}] = true
		if t.Row > maxRow {
			maxRow = t.Row
		}
		if t.Col > maxCol {
			maxCol = t.Col
		}
	}
	if maxRow >= gridLimit || maxCol >= gridLimit {
		return ""
	}

	var b strings.Builder
	for r := 0; r <= maxRow; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c <= maxCol; c++ {
			if present[[2]int{r, c}] {
				b.WriteString(planPresentStyle.Render("█"))
			} else {
				b.WriteString(planMutedStyle.Render("·"))
			}
		}
	}
	return b.String()
}
