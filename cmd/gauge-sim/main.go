// Command gauge-sim binds a board configuration into a live core.App backed
// by simulated MAX17048 parts and logs every published reading.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"tinygo.org/x/drivers"

	"fuelgauge-go/drivers/max17048"
	"fuelgauge-go/services/codegen"
	"fuelgauge-go/services/config"
	"fuelgauge-go/services/hal/core"
	_ "fuelgauge-go/services/hal/devices/max17048"
	"fuelgauge-go/types"
	"fuelgauge-go/x/mathx"
)

func main() {
	configPath := flag.String("config", "", "Board configuration file (default: embedded board)")
	board := flag.String("board", "pico", "Embedded board config used when -config is empty")
	envFile := flag.String("env", "", "Optional dotenv file for ${NAME} substitution")
	heartbeat := flag.Duration("heartbeat", 10*time.Second, "Interval of status and discharge steps")
	verbose := flag.Bool("verbose", false, "Log debug output")
	logFile := flag.String("log-file", "", "Also write logs to this file, rotated at 5 MB")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	if *logFile != "" {
		rot := &lumberjack.Logger{Filename: *logFile, MaxSize: 5, MaxBackups: 3}
		defer rot.Close()
		out = io.MultiWriter(os.Stderr, rot)
	}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *configPath, *board, *envFile, *heartbeat); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, configPath, board, envFile string, heartbeat time.Duration) error {
	var (
		cfg types.BuildConfig
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath, envFile)
	} else {
		lookup, lerr := config.EnvLookup(envFile)
		if lerr != nil {
			return lerr
		}
		cfg, err = config.Embedded(board, lookup)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	plan, err := config.Build(cfg)
	if err != nil {
		return err
	}

	app := core.NewApp(core.WithLogger(log), core.WithJitter(50*time.Millisecond))
	sims := newSimBuses(app, cfg, plan)

	st := app.Stage()
	if err := plan.Replay(st); err != nil {
		st.Discard()
		return err
	}
	if err := st.Commit(); err != nil {
		return err
	}
	for _, s := range app.Sensors() {
		s.OnState(func(s *core.Sensor, v float64) {
			log.Info("state", "sensor", s.ID(), "value", s.Format(v))
		})
	}
	if err := app.Setup(ctx); err != nil {
		log.Warn("setup finished with errors", "err", err)
	}

	var ids []string
	for _, c := range plan.Calls {
		if c.Op == codegen.OpNewComponent {
			ids = append(ids, c.Component)
		}
	}
	go discharge(ctx, log, app, ids, sims, heartbeat)
	return app.Run(ctx)
}

// simBus routes transactions to the simulated part at the target address.
type simBus struct {
	mu    sync.Mutex
	parts map[uint16]*max17048.Sim
}

var _ drivers.I2C = (*simBus)(nil)

func (b *simBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	s, ok := b.parts[addr]
	b.mu.Unlock()
	if !ok {
		return max17048.ErrSimNack
	}
	return s.Tx(addr, w, r)
}

// newSimBuses adds one simulated bus per bus id and one part per device.
func newSimBuses(app *core.App, cfg types.BuildConfig, plan codegen.Plan) []*max17048.Sim {
	buses := map[string]*simBus{}
	for _, id := range config.BusIDs(cfg, plan) {
		b := &simBus{parts: map[uint16]*max17048.Sim{}}
		buses[id] = b
		app.AddI2CBus(id, b)
	}
	var sims []*max17048.Sim
	for _, c := range plan.Calls {
		if c.Op != codegen.OpRegisterI2CDevice {
			continue
		}
		b := buses[c.Bus]
		if b == nil {
			continue
		}
		if _, ok := b.parts[c.Address]; !ok {
			s := max17048.NewSim(c.Address)
			b.parts[c.Address] = s
			sims = append(sims, s)
		}
	}
	return sims
}

// discharge logs component status and drains every simulated cell by 1 %
// per heartbeat.
func discharge(ctx context.Context, log *slog.Logger, app *core.App, ids []string, sims []*max17048.Sim, every time.Duration) {
	if every <= 0 {
		return
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	soc := int64(85 << 8)
	for {
		select {
		case <-ctx.Done():
			log.Debug("heartbeat stopping")
			return
		case t := <-tick.C:
			soc = mathx.Clamp(soc-256, 0, 100<<8)
			uv := 3_300_000 + mathx.ScaleRound(soc, 900_000, 100<<8)
			for _, s := range sims {
				s.SetStateOfChargeX256(uint16(soc))
				s.SetCellMicroVolts(uint32(uv))
				s.SetChargeRateRaw(-48)
			}
			log.Info("heartbeat", "time", t.Format("15:04:05"), "soc_pct", soc>>8)
			for _, id := range ids {
				log.Debug("status", "component", id, "status", app.Status(id))
			}
		}
	}
}
