// Command probe runs single pipeline steps from the terminal: resolving the
// artwork of a page, sampling the accent of an image and listing the MPRIS
// players on the session bus.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/genricoloni/musicbar/internal/config"
	"github.com/genricoloni/musicbar/internal/dom"
	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/fetcher"
	"github.com/genricoloni/musicbar/internal/monitor"
	"github.com/genricoloni/musicbar/internal/palette"
	"github.com/genricoloni/musicbar/internal/resolver"
	"github.com/genricoloni/musicbar/internal/sampler"
	"github.com/genricoloni/musicbar/internal/sink"
	"github.com/genricoloni/musicbar/internal/surface"
	"go.uber.org/zap"
)

var version = "dev"

// CLI is the top-level command structure for probe
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Verbose bool             `help:"Log pipeline internals to stderr." short:"v"`
	Timeout time.Duration    `help:"Overall deadline for network work." default:"15s"`

	Resolve ResolveCmd `cmd:"" help:"Find the artwork a page shows."`
	Sample  SampleCmd  `cmd:"" help:"Compute the accent colour of an image."`
	Players PlayersCmd `cmd:"" help:"List MPRIS players on the session bus."`
}

// env carries what every command needs
type env struct {
	ctx    context.Context
	logger *zap.Logger
	cfg    *config.AppConfig
	out    io.Writer
}

// ResolveCmd resolves the artwork of a web page
type ResolveCmd struct {
	URL       string `arg:"" help:"Page URL (http, https or file)."`
	Selectors string `help:"Selector table to use instead of the configured one." type:"path"`
}

// Run executes the resolve command
func (c *ResolveCmd) Run(e *env) error {
	path := c.Selectors
	if path == "" {
		path = e.cfg.GetSelectorsPath()
	}
	table, err := dom.LoadTable(path)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	page := surface.NewPage(e.logger, fetcher.NewPageFetcher(e.logger), c.URL, e.cfg.GetPageTTL())
	url := resolver.NewArtworkResolver(e.logger, table).Resolve(e.ctx, nil, page)
	if url == "" {
		return fmt.Errorf("resolve: no artwork found on %s", c.URL)
	}

	fmt.Fprintln(e.out, url)
	return nil
}

// SampleCmd samples the accent of an image
type SampleCmd struct {
	URL string `arg:"" help:"Image URL (http, https or file)."`
	CSS bool   `help:"Print the stylesheet the css sink would write."`
}

// Run executes the sample command
func (c *SampleCmd) Run(e *env) error {
	s := sampler.NewPixelSampler(e.logger, fetcher.NewHTTPFetcher(e.logger), e.cfg)

	raw, err := s.Sample(e.ctx, c.URL)
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	accent := palette.Default
	if raw != nil {
		accent = palette.Normalize(*raw)
	}

	if c.CSS {
		_, err := e.out.Write(sink.Render(c.URL, &accent))
		return err
	}

	fmt.Fprintf(e.out, "%s  %s  %s\n", swatch(accent), palette.Hex(accent), palette.CSS(accent))
	if raw == nil {
		fmt.Fprintln(e.out, lipgloss.NewStyle().Faint(true).Render("nothing to sample, default accent"))
	}
	return nil
}

// PlayersCmd lists the players the daemon would see
type PlayersCmd struct{}

// Run executes the players command
func (c *PlayersCmd) Run(e *env) error {
	host := monitor.NewMprisHost(e.logger, monitor.NewStdDBusClient, func(locate func() string) domain.Surface {
		return surface.NewDynamicPage(e.logger, fetcher.NewPageFetcher(e.logger), locate, e.cfg.GetPageTTL())
	})
	defer host.Close()

	if host.Locate() == nil {
		return fmt.Errorf("players: session bus unavailable")
	}

	active, _ := host.Current()
	name := lipgloss.NewStyle().Bold(true)
	for _, p := range host.Players() {
		marker := " "
		if player, ok := active.(*monitor.Player); ok && player.Name() == p {
			marker = "*"
		}
		fmt.Fprintf(e.out, "%s %s\n", marker, name.Render(p))
	}

	if active == nil {
		return nil
	}
	meta, err := active.Metadata()
	if err != nil {
		return fmt.Errorf("players: %w", err)
	}
	for _, key := range []string{"title", "artist", "album", "artworkUrl", "url"} {
		if v := meta.String(key); v != "" {
			fmt.Fprintf(e.out, "    %-10s %s\n", key, v)
		}
	}
	return nil
}

// swatch renders a block filled with c
func swatch(c domain.Color) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(palette.Hex(c))).
		Render("      ")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("probe"),
		kong.Description("Inspect musicbar's artwork and accent pipeline."),
		kong.Vars{"version": version},
	)

	logger, err := newLogger(cli.Verbose)
	kctx.FatalIfErrorf(err)
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.NewAppConfig(logger)
	kctx.FatalIfErrorf(err)

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	if err := kctx.Run(&env{ctx: ctx, logger: logger, cfg: cfg, out: os.Stdout}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
