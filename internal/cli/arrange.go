package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/imgstack/pkg/asset"
	"github.com/matzehuels/imgstack/pkg/compositor"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/reorder"
	"github.com/matzehuels/imgstack/pkg/session"
	"github.com/matzehuels/imgstack/pkg/viewport"
)

// arrangeCommand creates the arrange command for interactive reordering.
func (c *CLI) arrangeCommand() *cobra.Command {
	var opts stitchOpts

	cmd := &cobra.Command{
		Use:   "arrange <image>...",
		Short: "Reorder images interactively, then save the composite",
		Long: `Arrange loads the images and shows them as a list in the terminal.
Drag rows with the mouse or move them with J/K, toggle the scaling policy
with w and save the composite with s.`,
		Example: `  imgstack arrange top.png middle.jpg bottom.webp
  imgstack arrange -o poster.png shots/*.png

  # Try it out on the built-in sample images
  imgstack arrange --fixtures`,
		Args: sourceArgs(&opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runArrange(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file name (default from config, joinedimage)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "output directory (default from config, .)")
	cmd.Flags().BoolVar(&opts.widest, "widest", false, "start with the widest scaling policy")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpeg (default), png")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", 0, "JPEG quality 1-100 (default 92)")
	cmd.Flags().BoolVar(&opts.fixtures, "fixtures", false, "load the built-in sample images before any given ones")

	return cmd
}

func (c *CLI) runArrange(cmd *cobra.Command, args []string, opts stitchOpts) error {
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

	sess, err := runner.NewSession(popts)
	if err != nil {
		return err
	}
	defer sess.Reset()

	load := startStage(loggerFromContext(ctx), "loaded images")
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %d images...", len(popts.Sources)))
	spinner.Start()
	err = sess.LoadBatch(ctx, asset.ParseSources(popts.Sources))
	spinner.Stop()
	if err != nil {
		return err
	}
	load.done("images", len(popts.Sources))

	dir := opts.dir
	if dir == "" {
		dir = c.Config.Export.Dir
	}
	m := newArrangeModel(ctx, sess, dir, popts.Filename, popts.ExportOptions())

	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(arrangeModel); ok && fm.saved != "" {
		printSuccess("Saved composite")
		printFile(fm.saved)
	}
	return nil
}

// =============================================================================
// arrangeModel - Interactive list of loaded images
// =============================================================================

const (
	// arrangeHeaderLines is the number of lines above the first row.
	arrangeHeaderLines = 3
	// arrangeRowLines is the height of one list row.
	arrangeRowLines = 2
	// arrangeCompactWidth is the terminal width below which rows drop the
	// file name and the help line shortens.
	arrangeCompactWidth = 60
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	arrangeLabelStyle = lipgloss.NewStyle().Foreground(colorWhite)
	arrangeDragStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
)

// arrangeModel is the bubbletea model behind the arrange command. Rows are
// laid out as a uniform vertical list so mouse rows map directly onto
// reorder slots.
type arrangeModel struct {
	ctx      context.Context
	sess     *session.Session
	items    []session.Item
	cursor   int
	width    int
	dir      string
	filename string
	export   export.Options
	layout   compositor.Layout
	status   string
	err      error
	saved    string
	moveSeq  uint64
}

func newArrangeModel(ctx context.Context, sess *session.Session, dir, filename string, opts export.Options) arrangeModel {
	m := arrangeModel{
		ctx:      ctx,
		sess:     sess,
		dir:      dir,
		filename: filename,
		export:   opts,
	}
	m.refresh()
	return m
}

// refresh re-reads the list and the composite size after a change.
func (m *arrangeModel) refresh() {
	m.items = m.sess.Items()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	_, layout, err := m.sess.Composite(m.ctx)
	if err != nil {
		m.err = err
		return
	}
	m.layout = layout
}

func (m arrangeModel) geometry() reorder.Geometry {
	return reorder.Uniform{Origin: arrangeHeaderLines, Extent: arrangeRowLines, Direction: reorder.Vertical}
}

// rowAt maps a terminal line to a list index.
func (m arrangeModel) rowAt(y int) (int, bool) {
	if y < arrangeHeaderLines {
		return 0, false
	}
	idx := (y - arrangeHeaderLines) / arrangeRowLines
	return idx, idx < len(m.items)
}

// pointer places the pointer in the middle of the terminal cell.
func pointer(msg tea.MouseMsg) reorder.Point {
	return reorder.Point{X: float64(msg.X) + 0.5, Y: float64(msg.Y) + 0.5}
}

func (m arrangeModel) itemID(idx int) (uuid.UUID, error) {
	if idx < 0 || idx >= len(m.items) {
		return uuid.Nil, errs.New(errs.ErrCodeInvalidIndex, "no image at position %d", idx+1)
	}
	return uuid.Parse(m.items[idx].ID)
}

func (m arrangeModel) Init() tea.Cmd {
	return nil
}

func (m arrangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctrl := m.sess.Controller()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if _, ok := ctrl.Active(); !ok {
				return m, tea.Quit
			}
			m.err = ctrl.CancelDrag()
			m.status = "Drag cancelled"
			m.refresh()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "K", "shift+up":
			m.move(ctrl.RequestMoveUp, -1)
		case "J", "shift+down":
			m.move(ctrl.RequestMoveDown, 1)
		case "w":
			p := m.sess.TogglePolicy()
			m.status = "Scaling to " + p.String()
			m.refresh()
		case "s":
			path, err := m.sess.ExportFile(m.ctx, m.dir, m.filename, m.export)
			if err != nil {
				m.err = err
				break
			}
			m.saved = path
			m.status = "Saved " + path
		}

	case tea.MouseMsg:
		switch msg.Action {
		case tea.MouseActionPress:
			if msg.Button != tea.MouseButtonLeft {
				break
			}
			idx, ok := m.rowAt(msg.Y)
			if !ok {
				break
			}
			id, err := m.itemID(idx)
			if err != nil {
				m.err = err
				break
			}
			m.cursor = idx
			m.moveSeq = m.lastSeq()
			m.gestureErr(ctrl.BeginDrag(id, pointer(msg), m.geometry()))
		case tea.MouseActionMotion:
			if _, ok := ctrl.Active(); !ok {
				break
			}
			changed, err := ctrl.MovePointer(pointer(msg))
			m.gestureErr(err)
			if changed {
				m.refresh()
				if d, ok := ctrl.Active(); ok {
					m.cursor = d.CurrentIndex
				}
			}
		case tea.MouseActionRelease:
			if _, ok := ctrl.Active(); ok {
				m.gestureErr(ctrl.EndDrag())
				m.reportMove(m.moveSeq)
			}
		}
	}
	return m, nil
}

// gestureErr records a mouse gesture error. Out-of-order gesture events
// from the terminal are logged and otherwise ignored.
func (m *arrangeModel) gestureErr(err error) {
	switch {
	case err == nil:
	case errs.IsCallerBug(err):
		loggerFromContext(m.ctx).Debug("ignored gesture", "error", err)
	default:
		m.err = err
	}
}

// move applies an explicit move to the row under the cursor and keeps the
// cursor on the moved image.
func (m *arrangeModel) move(fn func(uuid.UUID) error, delta int) {
	id, err := m.itemID(m.cursor)
	if err != nil {
		m.err = err
		return
	}
	seq := m.lastSeq()
	if err := fn(id); err != nil {
		m.err = err
		return
	}
	m.refresh()
	switch {
	case m.reportMove(seq):
	case delta < 0:
		m.status = "Already at the top"
	default:
		m.status = "Already at the bottom"
	}
}

func (m arrangeModel) lastSeq() uint64 {
	mv, _ := m.sess.LastMove()
	return mv.Seq
}

// reportMove puts the latest reorder after seq into the status line and
// moves the cursor onto the moved image.
func (m *arrangeModel) reportMove(seq uint64) bool {
	mv, ok := m.sess.LastMove()
	if !ok || mv.Seq <= seq {
		return false
	}
	idx := m.sess.Collection().IndexOf(mv.AssetID)
	if idx < 0 || idx >= len(m.items) {
		return false
	}
	m.cursor = idx
	m.status = fmt.Sprintf("Moved %s to position %d", m.items[idx].Name, idx+1)
	return true
}

func (m arrangeModel) View() string {
	var b strings.Builder
	compact := viewport.Narrow(m.width, arrangeCompactWidth)

	b.WriteString(StyleTitle.Render("Arrange Images"))
	b.WriteString("\n")
	if compact {
		b.WriteString(listDimStyle.Render("j/k J/K w s q"))
	} else {
		b.WriteString(listDimStyle.Render("↑/↓ select  J/K move  drag to reorder  w policy  s save  q quit"))
	}
	b.WriteString("\n\n")

	drag, dragging := m.sess.Controller().Active()
	for i, it := range m.items {
		b.WriteString(m.renderRow(i, it, compact, dragging && drag.AssetID.String() == it.ID))
	}

	b.WriteString("\n")
	summary := fmt.Sprintf("%s · %d×%d px", m.sess.Policy(), m.layout.Width, m.layout.Height)
	b.WriteString(listDimStyle.Render(summary))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(StyleError.Render(errs.UserMessage(m.err)))
	case m.status != "":
		b.WriteString(StyleHighlight.Render(m.status))
	}
	return b.String()
}

// renderRow renders one image as exactly arrangeRowLines lines.
func (m arrangeModel) renderRow(i int, it session.Item, compact, dragged bool) string {
	marker := "  "
	label := arrangeLabelStyle
	switch {
	case dragged:
		marker = "≡ "
		label = arrangeDragStyle
	case i == m.cursor:
		marker = "▸ "
		label = listSelectedStyle
	}

	swatch := lipgloss.NewStyle().Background(lipgloss.Color(it.Accent)).Render("  ")
	line := marker + swatch + " " + label.Render(it.Label)
	if !compact {
		line += "  " + listDimStyle.Render(it.Name)
	}

	arrows := ""
	if it.CanMoveUp {
		arrows += "↑"
	} else {
		arrows += " "
	}
	if it.CanMoveDown {
		arrows += "↓"
	}
	detail := fmt.Sprintf("     %s %s", listDimStyle.Render(fmt.Sprintf("%d×%d %s", it.Width, it.Height, it.Format)), listNormalStyle.Render(arrows))
	return line + "\n" + detail + "\n"
}
