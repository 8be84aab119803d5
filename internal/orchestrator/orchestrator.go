package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"skyrating/internal/api"
	"skyrating/internal/config"
	"skyrating/internal/constants"
	"skyrating/internal/domain"
	"skyrating/internal/dump"
	"skyrating/internal/ipc"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type SeasonStore interface {
	GetActive(ctx context.Context) (*domain.Season, error)
	SetTotalRankedUsers(ctx context.Context, id, total int) error
}

type UserWriter interface {
	BulkUpdate(ctx context.Context, users []*domain.User) error
}

type MultiplierSink interface {
	SetMultipliers(metrics []domain.KillMetric)
}

type MultiplierPublisher interface {
	Publish(ctx context.Context, season int, metrics []domain.KillMetric) error
}

type HistoryExporter interface {
	ExportAll(ctx context.Context, users []*domain.User) int
}

type Alerter interface {
	Send(ctx context.Context, level api.AlertLevel, format string, args ...any) error
}

type CycleResult struct {
	Season       int
	ExitCode     int
	Duration     time.Duration
	Users        int
	TotalRanked  int
	DoneReceived bool
}

// Orchestrator runs one replay child per cycle and applies what it reports.
type Orchestrator struct {
	cfg       *config.Config
	seasons   SeasonStore
	events    dump.Source
	users     UserWriter
	live      MultiplierSink
	publisher MultiplierPublisher
	history   HistoryExporter
	alerts    Alerter
	command   func(ctx context.Context) *exec.Cmd
	running   atomic.Bool
	logger    zerolog.Logger
}

func New(cfg *config.Config, seasons SeasonStore, events dump.Source, users UserWriter, live MultiplierSink,
	publisher MultiplierPublisher, history HistoryExporter, alerts Alerter, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		seasons:   seasons,
		events:    events,
		users:     users,
		live:      live,
		publisher: publisher,
		history:   history,
		alerts:    alerts,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
	o.command = o.defaultCommand
	return o
}

func (o *Orchestrator) defaultCommand(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, o.cfg.ReplayBinary)
	cmd.Env = append(os.Environ(), "DUMP_DIR="+o.cfg.DumpDir, "DB_PATH="+o.cfg.DBPath)
	return cmd
}

// RunCycle dumps the active season, replays it in a child process and, only if
// the child exits cleanly after reporting done, persists the updated users.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn().Msg("replay cycle already running, skipping")
		return nil, nil
	}
	defer o.running.Store(false)

	start := time.Now()
	season, err := o.seasons.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	res := &CycleResult{Season: season.ID, ExitCode: -1}

	if err := dump.Clean(o.cfg.DumpDir); err != nil {
		return res, err
	}
	if _, err := dump.WriteSeason(ctx, o.events, o.cfg.DumpDir, season.ID, o.logger); err != nil {
		o.logger.Error().Err(err).Int("season", season.ID).Msg("failed to dump season, keeping current multipliers")
		return res, fmt.Errorf("failed to dump season: %w", err)
	}

	users, metrics, err := o.spawn(ctx, season, res)
	res.Duration = time.Since(start)
	if err != nil {
		o.logger.Error().Err(err).Int("season", season.ID).Int("exit_code", res.ExitCode).
			Dur("duration", res.Duration).Msg("replay failed, results discarded")
		o.alert(ctx, api.AlertCritical, "replay of season %d failed: %v", season.ID, err)
		return res, err
	}

	if metrics != nil {
		o.live.SetMultipliers(metrics)
		if o.publisher != nil {
			if err := o.publisher.Publish(ctx, season.ID, metrics); err != nil {
				o.logger.Warn().Err(err).Msg("failed to publish multipliers")
			}
		}
	}
	if err := o.users.BulkUpdate(ctx, users); err != nil {
		return res, fmt.Errorf("failed to persist replayed users: %w", err)
	}
	if err := o.seasons.SetTotalRankedUsers(ctx, season.ID, res.TotalRanked); err != nil {
		return res, err
	}
	if o.history != nil && len(users) > 0 {
		exported := o.history.ExportAll(ctx, users)
		o.logger.Debug().Int("exported", exported).Msg("histories exported")
	}

	o.logger.Info().
		Int("season", season.ID).
		Int("users", res.Users).
		Int("total_ranked", res.TotalRanked).
		Dur("duration", time.Since(start)).
		Msg("replay cycle complete")
	return res, nil
}

// spawn runs the child and buffers everything it sends. Nothing is applied here;
// the caller does that once the child has exited cleanly after done.
func (o *Orchestrator) spawn(ctx context.Context, season *domain.Season, res *CycleResult) ([]*domain.User, []domain.KillMetric, error) {
	tctx, cancel := context.WithTimeout(ctx, o.cfg.ReplayTimeout)
	defer cancel()

	cmd := o.command(tctx)
	cmd.WaitDelay = 5 * time.Second

	controlR, controlW, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create control pipe: %w", err)
	}
	defer controlR.Close()
	defer controlW.Close()
	msgR, msgW, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create message pipe: %w", err)
	}
	defer msgR.Close()
	defer msgW.Close()

	// fd 3 and fd 4 in the child
	cmd.ExtraFiles = []*os.File{controlR, msgW}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}

	spawnedAt := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start replay process: %w: %v", domain.ErrReplayProcess, err)
	}
	// the child holds its own copies now
	controlR.Close()
	msgW.Close()

	o.logger.Info().Int("pid", cmd.Process.Pid).Int("season", season.ID).Msg("replay process started")

	channel := ipc.NewChannel(msgR, controlW)
	sendErr := channel.Send(ipc.Start(season.ID))
	controlW.Close()
	if sendErr != nil {
		o.logger.Error().Err(sendErr).Msg("failed to send start message")
	}

	child := o.logger.With().Str("component", "replay").Int("pid", cmd.Process.Pid).Logger()

	var (
		users    []*domain.User
		metrics  []domain.KillMetric
		childErr string
	)
	g := new(errgroup.Group)
	g.Go(func() error { return ipc.Relay(stdout, child, zerolog.InfoLevel) })
	g.Go(func() error { return ipc.Relay(stderr, child, zerolog.WarnLevel) })
	g.Go(func() error {
		return channel.Receive(func(m ipc.Message) error {
			switch m.Type {
			case ipc.TypeMults:
				metrics = m.Metrics
				if metrics == nil {
					metrics = []domain.KillMetric{}
				}
			case ipc.TypeUsers:
				users = append(users, m.Users...)
				o.logger.Debug().Int("batch", len(m.Users)).Int("buffered", len(users)).Msg("user batch received")
			case ipc.TypeDone:
				res.DoneReceived = true
				res.TotalRanked = m.TotalRanked
			case ipc.TypeError:
				childErr = m.Error
			default:
				o.logger.Warn().Str("type", string(m.Type)).Msg("unknown message from replay process")
			}
			return nil
		})
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()
	res.ExitCode = cmd.ProcessState.ExitCode()
	res.Users = len(users)

	o.logger.Info().
		Int("exit_code", res.ExitCode).
		Dur("elapsed", time.Since(spawnedAt)).
		Bool("done", res.DoneReceived).
		Int("users", len(users)).
		Msg("replay process exited")

	switch {
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return nil, nil, fmt.Errorf("%w: timed out after %s", domain.ErrReplayProcess, o.cfg.ReplayTimeout)
	case childErr != "":
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrReplayProcess, childErr)
	case waitErr != nil || res.ExitCode != 0:
		return nil, nil, fmt.Errorf("%w: exit code %d", domain.ErrReplayProcess, res.ExitCode)
	case !res.DoneReceived:
		return nil, nil, fmt.Errorf("%w: exited without reporting done", domain.ErrReplayProcess)
	case streamErr != nil:
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrReplayProcess, streamErr)
	}
	return users, metrics, nil
}

func (o *Orchestrator) alert(ctx context.Context, level api.AlertLevel, format string, args ...any) {
	if o.alerts == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.AlertTimeout)
	defer cancel()
	if err := o.alerts.Send(actx, level, format, args...); err != nil {
		o.logger.Warn().Err(err).Msg("failed to send alert")
	}
}
