package vtprobe

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Agent is an attached validation environment bound to one Host. It owns
// the negotiated capabilities and the mount-path completion flag. Methods
// are safe to call concurrently with mount-notification deliveries.
type Agent struct {
	host      Host
	log       *zap.Logger
	completed atomic.Bool
}

// Option configures an Agent at attach time.
type Option func(*config)

type config struct {
	log *zap.Logger
}

func defaultConfig() config {
	return config{log: zap.NewNop()}
}

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// Attach negotiates RequiredCapabilities with host and registers the
// virtual-thread mount handler. Any refusal is a fatal configuration
// error: no Agent is returned and no validation must be attempted.
func Attach(host Host, opts ...Option) (*Agent, error) {
	if host == nil {
		return nil, ErrDetached
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Agent{host: host, log: cfg.log}

	if err := host.AddCapabilities(RequiredCapabilities); err != nil {
		return nil, fmt.Errorf("add capabilities: %w", err)
	}

	caps, err := host.GetCapabilities()
	if err != nil {
		return nil, fmt.Errorf("get capabilities: %w", err)
	}
	if !caps.Has(RequiredCapabilities) {
		return nil, Errf(TI_MUST_POSSESS_CAPABILITY,
			"ti: host granted [%s], need [%s]", caps, RequiredCapabilities)
	}

	if err := host.SetMountHandler(a.onMounted); err != nil {
		return nil, fmt.Errorf("register mount handler: %w", err)
	}

	a.log.Info("agent attached", zap.String("capabilities", caps.String()))
	return a, nil
}

// Completed reports whether the mount-notification path has finished at
// least one successful validation. Reads may race an in-flight write and
// can observe either value until the first success; the flag never
// regresses once set.
func (a *Agent) Completed() bool {
	return a.completed.Load()
}

// onMounted is the mount-notification handler. The host delivers it on an
// arbitrary OS thread with the just-mounted virtual thread, so there is
// no need to search for a carrier here.
func (a *Agent) onMounted(v Thread) {
	recordMountEvent()
	a.log.Debug("virtual thread mounted", zap.Uint64("vthread", uint64(v)))

	if err := a.Validate(v); err != nil {
		a.log.Error("mount-path validation failed",
			zap.Uint64("vthread", uint64(v)), zap.Error(err))
		return
	}
	a.completed.Store(true)
}
