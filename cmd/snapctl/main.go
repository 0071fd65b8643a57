// Command snapctl runs maintenance jobs against the SnapScape database:
// migrations, the competition status updater and rating repairs. Results
// are printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/snapscape/internal/config"
	"github.com/iliyamo/snapscape/internal/database"
	"github.com/iliyamo/snapscape/internal/queue"
	"github.com/iliyamo/snapscape/internal/repository"
	"github.com/iliyamo/snapscape/internal/service"
	"github.com/iliyamo/snapscape/internal/utils"
)

const usage = `usage: snapctl <command> [flags]

commands:
  migrate               apply pending database migrations
  status-update         advance competition statuses (-bypass includes pinned ones)
  status-preview        list competitions whose status is out of date
  dedupe-ratings        remove duplicate votes and recompute affected photos
  recompute-aggregates  rebuild every photo's rating aggregates
  purge-tokens          delete refresh tokens expired or revoked more than -days ago
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "read .env:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, connect)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case err != nil:
		slog.Error("snapctl failed", "error", err)
		os.Exit(1)
	}
}

// toolkit is what the subcommands operate on.
type toolkit struct {
	migrate     func(ctx context.Context) (int, error)
	competition *service.CompetitionService
	maintenance *service.MaintenanceService
	purgeTokens func(ctx context.Context, cutoff time.Time) (int64, error)
	close       func() error
}

type connectFunc func(ctx context.Context) (*toolkit, error)

func connect(ctx context.Context) (*toolkit, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel)
	db, err := database.Open(ctx, cfg.DSN(), database.Pool{MaxOpen: cfg.DBMaxOpenConns})
	if err != nil {
		return nil, err
	}
	competitions := repository.NewCompetitionRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	results := service.NewResultService(competitions, submissions, repository.NewResultRepo(db))
	return &toolkit{
		migrate:     func(ctx context.Context) (int, error) { return database.Migrate(ctx, db) },
		competition: service.NewCompetitionService(competitions, results, queue.NewPublisher(cfg.RabbitURL)),
		maintenance: service.NewMaintenanceService(repository.NewRatingRepo(db)),
		purgeTokens: repository.NewTokenRepo(db).PurgeStale,
		close:       db.Close,
	}, nil
}

func run(ctx context.Context, args []string, out io.Writer, dial connectFunc) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bypass := fs.Bool("bypass", false, "include competitions with a pinned status")
	days := fs.Int("days", 0, "grace period for purge-tokens")
	switch cmd {
	case "migrate", "status-update", "status-preview", "dedupe-ratings", "recompute-aggregates", "purge-tokens":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *bypass && cmd != "status-update" {
		return fmt.Errorf("%w: -bypass only applies to status-update", errUsage)
	}
	if *days < 0 || (*days != 0 && cmd != "purge-tokens") {
		return fmt.Errorf("%w: -days must be non-negative and only applies to purge-tokens", errUsage)
	}

	tk, err := dial(ctx)
	if err != nil {
		return err
	}
	defer tk.close()

	var result any
	switch cmd {
	case "migrate":
		n, err := tk.migrate(ctx)
		if err != nil {
			return err
		}
		result = map[string]int{"applied": n}
	case "status-update":
		changes, err := tk.competition.UpdateAll(ctx, *bypass)
		if err != nil {
			return err
		}
		result = changes
	case "status-preview":
		previews, err := tk.competition.Preview(ctx)
		if err != nil {
			return err
		}
		result = previews
	case "dedupe-ratings":
		report, err := tk.maintenance.DedupeRatings(ctx)
		if err != nil {
			return err
		}
		result = report
	case "recompute-aggregates":
		n, err := tk.maintenance.RecomputeAggregates(ctx)
		if err != nil {
			return err
		}
		result = map[string]int64{"photosRecomputed": n}
	case "purge-tokens":
		n, err := tk.purgeTokens(ctx, time.Now().UTC().AddDate(0, 0, -*days))
		if err != nil {
			return err
		}
		result = map[string]int64{"tokensDeleted": n}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
