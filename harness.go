package conveyor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Task names as they appear in reporter lines.
const (
	TaskSampler    = "sampler"
	TaskController = "controller"
	TaskSort       = "sort"
	TaskSafety     = "safety"
)

// Options selects the per-run collaborators the environment config does not
// cover: the aperiodic server parameters, the input streams driving the
// core, and the run bound.
type Options struct {
	ServerPeriod   time.Duration // Ts; 0 means 10ms
	ServerBudget   time.Duration // Cs; 0 means half of Ts
	ServerPriority int

	RunFor time.Duration // 0 runs until the context is cancelled

	Input     io.Reader     // command stream; nil disables the driver
	JobScript io.Reader     // JSON-line job script; nil disables
	Limiter   *rate.Limiter // paces job-script submission; nil disables

	// Spin emulates task WCET; defaults to a busy wait. Tests substitute
	// time.Sleep so fake clocks advance.
	Spin func(time.Duration)
}

// Harness owns the whole task set: it builds the shared state, runs every
// task at its static priority and coordinates graceful shutdown.
type Harness struct {
	cfg  *Config
	opts Options

	clock   *Clock
	belt    *Belt
	journal *Journal
	queue   *JobQueue

	notify   *Signal
	sortSig  *Signal
	estopSig *Signal
	hmiSig   *Signal

	tasks map[string]*TaskStats

	sampler    *Sampler
	controller *Controller
	sortAct    *Actuator
	safety     *Actuator
	server     *Server
	reporter   *Reporter
	load       *LoadGenerator

	quit     chan struct{}
	quitOnce sync.Once
}

func NewHarness(cfg *Config, opts Options) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.ServerPeriod == 0 {
		opts.ServerPeriod = 10 * time.Millisecond
	}
	if opts.ServerBudget == 0 {
		opts.ServerBudget = opts.ServerPeriod / 2
	}
	if opts.ServerPriority == 0 {
		opts.ServerPriority = 50
	}
	if opts.Spin == nil {
		opts.Spin = Spin
	}

	h := &Harness{
		cfg:      cfg,
		opts:     opts,
		clock:    NewClock(),
		belt:     NewBelt(cfg.Setpoint),
		journal:  NewJournal(cfg.JournalLimit),
		notify:   NewSignal(),
		sortSig:  NewSignal(),
		estopSig: NewSignal(),
		hmiSig:   NewSignal(),
		quit:     make(chan struct{}),
	}
	h.queue = NewJobQueue(h.clock, cfg.QueueLimit)

	window := uint32(cfg.Window)
	h.tasks = map[string]*TaskStats{
		TaskSampler:    NewTaskStats(TaskSampler, window),
		TaskController: NewTaskStats(TaskController, window),
		TaskSort:       NewTaskStats(TaskSort, window),
		TaskSafety:     NewTaskStats(TaskSafety, window),
	}

	h.sampler = NewSampler(h.clock, h.belt, h.tasks[TaskSampler], h.notify, h.journal, cfg, opts.Spin)
	h.controller = NewController(h.clock, h.belt, h.tasks[TaskController], h.notify, h.hmiSig, h.journal, cfg, opts.Spin)
	h.sortAct = NewActuator(h.clock, h.tasks[TaskSort], h.sortSig, h.journal, cfg.SortDeadline, cfg.SortWork, nil, opts.Spin)
	h.safety = NewActuator(h.clock, h.tasks[TaskSafety], h.estopSig, h.journal, cfg.SafetyDeadline, cfg.SafetyWork, h.belt.Stop, opts.Spin)

	server, err := NewServer(h.clock, h.queue, opts.ServerPeriod, opts.ServerBudget)
	if err != nil {
		return nil, err
	}
	h.server = server
	h.load = NewLoadGenerator(h.queue, opts.Limiter, opts.Spin)
	h.reporter = NewReporter(h.clock, h.belt, []*TaskStats{
		h.tasks[TaskSampler], h.tasks[TaskController], h.tasks[TaskSort], h.tasks[TaskSafety],
	}, h.server, h.queue, cfg.ReportPeriod)
	return h, nil
}

func (h *Harness) Clock() *Clock     { return h.clock }
func (h *Harness) Belt() *Belt       { return h.belt }
func (h *Harness) Queue() *JobQueue  { return h.queue }
func (h *Harness) Journal() *Journal { return h.journal }
func (h *Harness) Server() *Server   { return h.server }

func (h *Harness) Stats(name string) *TaskStats { return h.tasks[name] }

// Command injects one driver command; at is the observation instant of the
// keypress, which becomes the release stamp of the resulting event.
func (h *Harness) Command(c byte, at int64) {
	switch c {
	case CmdSort:
		h.sortSig.Post(at)
	case CmdEStop:
		h.estopSig.Post(at)
	case CmdHMI:
		h.hmiSig.Post(at)
	case CmdAperiodic:
		h.load.SubmitOne(2 * time.Millisecond)
	case CmdQuit:
		h.quitOnce.Do(func() { close(h.quit) })
	default:
		logger.Debug("ignoring unknown command", slog.String("command", string(c)))
	}
}

// Run executes the task set until the context is cancelled, the run bound
// elapses, or a 'q' command arrives. It returns nil on a clean shutdown.
func (h *Harness) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	began := time.Now()

	if err := LockMemory(); err != nil {
		logger.Warn("could not lock memory; RT pages may fault", slog.Any("error", err))
	}

	wg := &sync.WaitGroup{}
	startRT := func(name string, priority int, run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := SetRealtime(priority); err != nil {
				logger.Warn("running at default priority", slog.String("task", name), slog.Any("error", err))
			}
			run(ctx)
		}()
	}

	startRT(TaskSafety, h.cfg.SafetyPriority, h.safety.Run)
	startRT(TaskSampler, h.cfg.SamplerPriority, h.sampler.Run)
	startRT(TaskController, h.cfg.ControllerPriority, h.controller.Run)
	startRT(TaskSort, h.cfg.SortPriority, h.sortAct.Run)
	startRT("reporter", h.cfg.ReporterPriority, h.reporter.Run)
	startRT("server", h.opts.ServerPriority, h.server.Run)

	if h.opts.RunFor > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Sleep(ctx, h.opts.RunFor) == nil {
				cancel(nil)
			}
		}()
	}

	if h.opts.JobScript != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := h.load.Submit(ctx, JobScriptGenerator(ctx, cancel, h.opts.JobScript))
			logger.Debug("job script submitted", slog.Int("accepted", n))
		}()
	}

	if h.opts.Input != nil {
		// not in the WaitGroup: a blocked stdin read only resolves when the
		// process exits
		go func() {
			for c := range CommandReader(h.opts.Input, cancel) {
				h.Command(c, h.clock.Now())
				if c == CmdQuit {
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case <-h.quit:
		cancel(nil)
	}
	h.queue.Close()
	wg.Wait()
	if n := h.queue.Drain(); n > 0 {
		logger.Info("discarded queued aperiodic jobs at shutdown", slog.Int("count", n))
	}

	h.reporter.Report()
	h.reporter.DumpJournal(h.journal)
	logger.Info("shutdown complete", slog.String("ran for", FriendlyDuration(time.Since(began))))

	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
