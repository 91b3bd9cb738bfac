package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	platformotel "github.com/louisbranch/indogram/internal/platform/otel"
	"github.com/louisbranch/indogram/internal/services/social/domain"
	"github.com/louisbranch/indogram/internal/services/social/storage"
	"github.com/louisbranch/indogram/internal/services/social/storage/sqlite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	modeCheckGraph  = "check-graph"
	modeRepairGraph = "repair-graph"
	modeRename      = "rename"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath      string        `env:"INDOGRAM_DB_PATH"`
	Timeout     time.Duration `env:"INDOGRAM_MAINTENANCE_TIMEOUT" envDefault:"10m"`
	CheckGraph  bool
	RepairGraph bool
	RenameFrom  string
	RenameTo    string
	EdgesCap    int
	JSONOutput  bool
}

type envConfig struct {
	DBPath  string        `env:"INDOGRAM_DB_PATH"`
	Timeout time.Duration `env:"INDOGRAM_MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:   envCfg.DBPath,
		Timeout:  envCfg.Timeout,
		EdgesCap: 25,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "indogram.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the social sqlite database (default: INDOGRAM_DB_PATH or data/indogram.db)")
	fs.BoolVar(&cfg.CheckGraph, "check-graph", false, "report follow relations recorded on only one index")
	fs.BoolVar(&cfg.RepairGraph, "repair-graph", false, "add the missing side of every one-sided follow relation")
	fs.StringVar(&cfg.RenameFrom, "rename-from", "", "handle of an interrupted rename to re-run")
	fs.StringVar(&cfg.RenameTo, "rename-to", "", "target handle of an interrupted rename to re-run")
	fs.IntVar(&cfg.EdgesCap, "edges-cap", cfg.EdgesCap, "max edges to print per side (0 = no limit)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if _, err := resolveMode(cfg); err != nil {
		return err
	}
	if cfg.EdgesCap < 0 {
		return errors.New("-edges-cap must be >= 0")
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("open social store %s: %w", cfg.DBPath, err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open social store: %w", err)
	}
	return runWithDeps(ctx, cfg, store, out, errOut)
}

// runWithDeps contains the core maintenance logic with an injectable store.
// It owns the store lifecycle (closing it on return).
func runWithDeps(ctx context.Context, cfg Config, store closableStore, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close social store: %v\n", err)
		}
	}()

	mode, err := resolveMode(cfg)
	if err != nil {
		return err
	}
	service, err := domain.NewService(domain.Config{
		Stores: domain.Stores{
			Users:         store,
			Followers:     store,
			Posts:         store,
			Groups:        store,
			Notifications: store,
		},
		Tokens: offlineTokens{},
	})
	if err != nil {
		return fmt.Errorf("new social service: %w", err)
	}

	result := runMode(ctx, service, mode, cfg)
	if cfg.JSONOutput {
		outputJSON(out, errOut, result)
	} else {
		printResult(out, errOut, result, cfg.EdgesCap)
	}
	if result.ExitCode != 0 {
		return errors.New("maintenance failed")
	}
	return nil
}

// offlineTokens refuses to sign; maintenance never opens sessions.
type offlineTokens struct{}

func (offlineTokens) Issue(string) (string, error) {
	return "", errors.New("token issuing is unavailable in maintenance")
}

func resolveMode(cfg Config) (string, error) {
	renameFrom := strings.TrimSpace(cfg.RenameFrom)
	renameTo := strings.TrimSpace(cfg.RenameTo)
	if (renameFrom == "") != (renameTo == "") {
		return "", errors.New("-rename-from and -rename-to must be set together")
	}

	var modes []string
	if cfg.CheckGraph {
		modes = append(modes, modeCheckGraph)
	}
	if cfg.RepairGraph {
		modes = append(modes, modeRepairGraph)
	}
	if renameFrom != "" {
		modes = append(modes, modeRename)
	}
	switch len(modes) {
	case 0:
		return "", errors.New("one of -check-graph, -repair-graph or -rename-from/-rename-to is required")
	case 1:
		return modes[0], nil
	default:
		return "", fmt.Errorf("flags cannot be combined: %s", strings.Join(modes, ", "))
	}
}

type edge struct {
	Handle   string `json:"handle"`
	Follower string `json:"follower"`
}

type graphReport struct {
	MissingFollower  []edge `json:"missing_follower"`
	MissingFollowing []edge `json:"missing_following"`
	Consistent       bool   `json:"consistent"`
}

type renameReport struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type runResult struct {
	Mode     string        `json:"mode"`
	Graph    *graphReport  `json:"graph,omitempty"`
	Rename   *renameReport `json:"rename,omitempty"`
	Error    string        `json:"error,omitempty"`
	ExitCode int           `json:"-"`
}

func runMode(ctx context.Context, service *domain.Service, mode string, cfg Config) (result runResult) {
	ctx, span := platformotel.Tracer("tools/maintenance").Start(ctx, "maintenance."+mode)
	defer func() {
		if result.Error != "" {
			span.SetStatus(codes.Error, result.Error)
		}
		if result.Graph != nil {
			span.SetAttributes(
				attribute.Int("indogram.graph.missing_follower", len(result.Graph.MissingFollower)),
				attribute.Int("indogram.graph.missing_following", len(result.Graph.MissingFollowing)),
			)
		}
		span.End()
	}()

	result = runResult{Mode: mode}
	switch mode {
	case modeCheckGraph:
		report, err := service.CheckFollowGraph(ctx)
		if err != nil {
			result.Error = fmt.Sprintf("check follow graph: %v", err)
			result.ExitCode = 1
			return result
		}
		result.Graph = toGraphReport(report)
		if !report.Consistent() {
			result.ExitCode = 1
		}
	case modeRepairGraph:
		report, err := service.RepairFollowGraph(ctx)
		if err != nil {
			result.Error = fmt.Sprintf("repair follow graph: %v", err)
			result.ExitCode = 1
			return result
		}
		result.Graph = toGraphReport(report)
	case modeRename:
		from := strings.TrimSpace(cfg.RenameFrom)
		to := strings.TrimSpace(cfg.RenameTo)
		result.Rename = &renameReport{From: from, To: to}
		if err := service.PropagateRename(ctx, from, to); err != nil {
			result.Error = fmt.Sprintf("propagate rename: %v", err)
			result.ExitCode = 1
		}
	}
	return result
}

func toGraphReport(report domain.GraphReport) *graphReport {
	return &graphReport{
		MissingFollower:  toEdges(report.MissingFollower),
		MissingFollowing: toEdges(report.MissingFollowing),
		Consistent:       report.Consistent(),
	}
}

func toEdges(edges []storage.FollowEdge) []edge {
	output := make([]edge, 0, len(edges))
	for _, e := range edges {
		output = append(output, edge{Handle: e.Handle, Follower: e.Follower})
	}
	return output
}

func capEdges(edges []edge, limit int) ([]edge, int) {
	total := len(edges)
	if limit == 0 || total <= limit {
		return edges, total
	}
	return edges[:limit], total
}

func outputJSON(out io.Writer, errOut io.Writer, result runResult) {
	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printResult(out io.Writer, errOut io.Writer, result runResult, edgesCap int) {
	if result.Error != "" {
		fmt.Fprintf(errOut, "Error: %s\n", result.Error)
	}
	if result.Rename != nil && result.Error == "" {
		fmt.Fprintf(out, "Propagated rename %s -> %s\n", result.Rename.From, result.Rename.To)
		return
	}
	if result.Graph == nil {
		return
	}

	verb := "Found"
	if result.Mode == modeRepairGraph {
		verb = "Repaired"
	}
	printEdges(out, errOut, verb+" follows missing from the follower index", result.Graph.MissingFollower, edgesCap)
	printEdges(out, errOut, verb+" followers missing from the following index", result.Graph.MissingFollowing, edgesCap)
	if result.Mode == modeCheckGraph && result.Graph.Consistent {
		fmt.Fprintln(out, "Follow graph is consistent")
	}
}

func printEdges(out io.Writer, errOut io.Writer, title string, edges []edge, edgesCap int) {
	shown, total := capEdges(edges, edgesCap)
	fmt.Fprintf(out, "%s: %d\n", title, total)
	for _, e := range shown {
		fmt.Fprintf(out, "  %s follows %s\n", e.Follower, e.Handle)
	}
	if total > len(shown) {
		fmt.Fprintf(errOut, "Warning: %d more edges suppressed\n", total-len(shown))
	}
}
