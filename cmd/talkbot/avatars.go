package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"talkbot/internal/avatar"
	"talkbot/internal/render"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "List the available avatars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := loadCatalog(catalogPath)
		if err != nil {
			return err
		}
		printAvatars(cmd.OutOrStdout(), cat, cfg.Avatar)
		return nil
	},
}

// maxRenderSize bounds --size; a frame is size*size*4 bytes in memory.
const maxRenderSize = 4096

type renderOptions struct {
	id       string
	size     int
	speaking bool
	emotion  string
	at       time.Duration
}

var (
	renderOut  string
	renderOpts renderOptions
)

var renderCmd = &cobra.Command{
	Use:   "render [avatar-id]",
	Short: "Render one avatar frame to a PNG file",
	Long: `Render one frame of an avatar. Examples:

  render robot --out robot.png
  render female_friendly --speaking --at 150ms
  render calm --emotion happy --size 256`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (default <avatar-id>.png, - for stdout)")
	renderCmd.Flags().IntVar(&renderOpts.size, "size", 500, "Image width and height in pixels (at most 4096)")
	renderCmd.Flags().BoolVar(&renderOpts.speaking, "speaking", false, "Render with the mouth animating")
	renderCmd.Flags().StringVar(&renderOpts.emotion, "emotion", "neutral", "Emotion: neutral, happy, sad, angry, surprised")
	renderCmd.Flags().DurationVar(&renderOpts.at, "at", 0, "Animation time of the frame")
}

func runRender(cmd *cobra.Command, args []string) error {
	opts := renderOpts
	opts.id = cfg.Avatar
	if len(args) == 1 {
		opts.id = args[0]
	}

	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}

	out := renderOut
	if out == "" {
		out = opts.id + ".png"
	}
	if out == "-" {
		return renderAvatar(cat, opts, cmd.OutOrStdout())
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := renderAvatar(cat, opts, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
	return nil
}

// renderAvatar draws one frame of opts.id and writes it to w as PNG.
func renderAvatar(cat *avatar.Catalog, opts renderOptions, w io.Writer) error {
	if opts.size <= 0 || opts.size > maxRenderSize {
		return fmt.Errorf("invalid size %d: must be between 1 and %d", opts.size, maxRenderSize)
	}
	session, err := avatarSession(cat, opts.id)
	if err != nil {
		return err
	}
	session.SetSpeaking(opts.speaking)
	session.SetEmotion(avatar.ParseEmotion(opts.emotion))

	surface, err := render.NewImageSurface(opts.size, opts.size)
	if err != nil {
		return err
	}
	session.Frame(surface, opts.at)
	if err := surface.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// avatarSession opens a render session on the store that holds id.
func avatarSession(cat *avatar.Catalog, id string) (*render.Session, error) {
	p, ok := cat.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", avatar.ErrUnknownAvatar, id)
	}
	store, err := cat.Store(p.Kind)
	if err != nil {
		return nil, err
	}
	return render.NewSession(store, p.ID)
}

func loadCatalog(path string) (*avatar.Catalog, error) {
	cat, err := avatar.LoadCatalog()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return cat, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	if err := cat.Merge(f); err != nil {
		return nil, fmt.Errorf("merge %s: %w", path, err)
	}
	return cat, nil
}

func printAvatars(w io.Writer, cat *avatar.Catalog, current string) {
	for i, store := range []*avatar.Store{cat.Stylized, cat.Human} {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headerStyle.Render(string(store.Kind())))
		for _, p := range store.List() {
			line := fmt.Sprintf("  %s %-20s %s", p.Icon, p.ID, mutedStyle.Render(p.DisplayName))
			if p.ID == current {
				line = currentStyle.Render(fmt.Sprintf("* %s %-20s %s", p.Icon, p.ID, p.DisplayName))
			}
			fmt.Fprintln(w, line)
		}
	}
}
