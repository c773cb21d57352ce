// Command hirezzie runs the curation pipeline from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TheGaf/hirezzie"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hirezzie:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "hirezzie",
		Usage:  "find high-resolution photos across image search providers",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file", EnvVars: []string{"HIREZZIE_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", EnvVars: []string{"HIREZZIE_LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", EnvVars: []string{"HIREZZIE_LOG_FORMAT"}},
			&cli.StringFlag{Name: "searxng-url", Usage: "SearXNG instance base URL", EnvVars: []string{"HIREZZIE_SEARXNG_URL"}},
			&cli.BoolFlag{Name: "openverse", Usage: "query the Openverse API", EnvVars: []string{"HIREZZIE_OPENVERSE"}},
			&cli.StringFlag{Name: "openverse-token", EnvVars: []string{"HIREZZIE_OPENVERSE_TOKEN"}},
			&cli.BoolFlag{Name: "bing", Usage: "scrape Bing image results", EnvVars: []string{"HIREZZIE_BING"}},
			&cli.StringFlag{Name: "brave-api-key", Usage: "Brave Search API key (paid)", EnvVars: []string{"HIREZZIE_BRAVE_API_KEY"}},
			&cli.DurationFlag{Name: "http-timeout", Value: 15 * time.Second, EnvVars: []string{"HIREZZIE_HTTP_TIMEOUT"}},
		},
		Before: func(c *cli.Context) error {
			logger, err := newLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "run a search and print the curated results as YAML",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "result pages to print (extra pages use load-more)"},
					&cli.IntFlag{Name: "page-size", Value: hirezzie.DefaultPageSize},
					&cli.IntFlag{Name: "min-width", Usage: "minimum image side in pixels"},
					&cli.Int64Flag{Name: "min-bytes", Usage: "minimum image file size"},
					&cli.IntFlag{Name: "floor", Usage: "results wanted before recovery stops"},
					&cli.StringFlag{Name: "sort", Value: string(hirezzie.SortRelevance), Usage: "relevance or resolution"},
					&cli.StringFlag{Name: "max-tier", Usage: "strict, relaxed or supplemental"},
					&cli.BoolFlag{Name: "paid", Usage: "allow paid providers", EnvVars: []string{"HIREZZIE_ALLOW_PAID"}},
					&cli.BoolFlag{Name: "perceptual", Usage: "collapse visually identical images"},
				},
				Action: searchAction,
			},
			{
				Name:      "analyze",
				Usage:     "print the entities and refined provider queries for QUERY",
				ArgsUsage: "QUERY",
				Action:    analyzeAction,
			},
		},
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// resolveConfig loads --config and layers the command-line flags on top.
func resolveConfig(c *cli.Context) (fileConfig, error) {
	fc, err := loadFileConfig(c.String("config"))
	if err != nil {
		return fc, err
	}
	if v := c.String("searxng-url"); v != "" {
		fc.SearXNG.URL = v
	}
	if c.Bool("openverse") {
		fc.Openverse.Enabled = true
	}
	if v := c.String("openverse-token"); v != "" {
		fc.Openverse.Token = v
	}
	if c.Bool("bing") {
		fc.Bing.Enabled = true
	}
	if v := c.String("brave-api-key"); v != "" {
		fc.Brave.APIKey = v
	}
	if c.IsSet("paid") {
		fc.AllowPaid = c.Bool("paid")
	}
	if c.IsSet("min-width") {
		fc.MinDimension = c.Int("min-width")
	}
	if c.IsSet("min-bytes") {
		fc.MinBytes = c.Int64("min-bytes")
	}
	if c.IsSet("floor") {
		fc.TargetFloor = c.Int("floor")
	}
	if c.IsSet("max-tier") {
		fc.MaxTier = c.String("max-tier")
	}
	if c.Bool("perceptual") {
		fc.PerceptualDedup = true
	}
	return fc, nil
}

func queryArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", cli.Exit("missing QUERY argument", 2)
	}
	return q, nil
}

func searchAction(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	fc, err := resolveConfig(c)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(fc, &http.Client{Timeout: c.Duration("http-timeout")})
	if err != nil {
		return err
	}
	if len(cfg.Providers) == 0 {
		slog.Warn("hirezzie: no providers configured, set --searxng-url, --openverse, --bing or --brave-api-key")
	}

	sortMode := hirezzie.SortMode(strings.ToLower(c.String("sort")))
	if sortMode != hirezzie.SortRelevance && sortMode != hirezzie.SortResolution {
		return cli.Exit(fmt.Sprintf("unknown sort mode %q", c.String("sort")), 2)
	}

	engine := hirezzie.New(cfg)
	dc := hirezzie.NewDedupContext()
	req := hirezzie.SearchRequest{
		Query:    query,
		PageSize: c.Int("page-size"),
		SortMode: sortMode,
	}

	rs, err := engine.Search(c.Context, dc, req)
	if err != nil {
		if errors.Is(err, hirezzie.ErrInvalidQuery) {
			return cli.Exit(err.Error(), 2)
		}
		return err
	}

	for page := 1; page < c.Int("pages"); page++ {
		if rs.NextOffset <= req.Offset {
			break
		}
		req.Offset = rs.NextOffset
		more, err := engine.More(c.Context, dc, req)
		if err != nil {
			return err
		}
		if len(more.Candidates) == 0 {
			break
		}
		rs.Candidates = append(rs.Candidates, more.Candidates...)
		rs.NextOffset = more.NextOffset
	}
	return writeYAML(c.App.Writer, rs)
}

type analysis struct {
	Query    string                 `yaml:"query"`
	Entities hirezzie.QueryEntities `yaml:"entities"`
	Strict   string                 `yaml:"strict_query"`
	Relaxed  string                 `yaml:"relaxed_query"`
}

func analyzeAction(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	fc, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	rewrites := lowerKeys(fc.Rewrites)
	q := hirezzie.Analyze(query)
	return writeYAML(c.App.Writer, analysis{
		Query:    query,
		Entities: q,
		Strict:   hirezzie.RefineQuery(query, q, rewrites, true),
		Relaxed:  hirezzie.RefineQuery(query, q, rewrites, false),
	})
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
