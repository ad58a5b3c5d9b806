package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// DefaultTimeout bounds executor I/O when the monitor does not configure
// its own.
const DefaultTimeout = 10 * time.Second

// Result holds the outcome of one probe.
type Result struct {
	Status  storage.Status
	Message string
	Ping    *int64         // milliseconds, nil when not measured
	Details map[string]any // optional structured payload
}

func down(format string, args ...any) *Result {
	return &Result{Status: storage.StatusDown, Message: fmt.Sprintf(format, args...)}
}

func invalidConfig(format string, args ...any) *Result {
	return &Result{Status: storage.StatusDown, Message: "配置无效: " + fmt.Sprintf(format, args...)}
}

// Checker performs a type-specific probe against a monitor.
type Checker interface {
	// Type returns the monitor type this checker handles.
	Type() string
	// Check performs the probe. Implementations report failures through
	// the Result; a non-nil error means the checker itself broke.
	Check(ctx context.Context, monitor *storage.Monitor) (*Result, error)
}

// Registry holds all registered checkers by monitor type.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Type()] = c
}

func (r *Registry) Get(typ string) (Checker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checkers[typ]
	if !ok {
		return nil, fmt.Errorf("no checker registered for type: %s", typ)
	}
	return c, nil
}

// Options tune checker behavior that is not per-monitor.
type Options struct {
	// CertExpiryDays is how many days before expiry an http monitor with
	// notifyCertExpiry set starts reporting down.
	CertExpiryDays int
	// PushTolerance multiplies a push monitor's interval when judging
	// heartbeat freshness.
	PushTolerance float64
}

// DefaultRegistry creates a registry with all built-in checkers. The store
// is needed by the push checker, which probes repository state instead of
// the network.
func DefaultRegistry(store storage.Store, opts Options) *Registry {
	if opts.CertExpiryDays <= 0 {
		opts.CertExpiryDays = 14
	}
	if opts.PushTolerance <= 0 {
		opts.PushTolerance = 1.5
	}

	r := NewRegistry()
	r.Register(&HTTPChecker{CertExpiryDays: opts.CertExpiryDays})
	r.Register(&KeywordChecker{})
	r.Register(&CertChecker{})
	r.Register(&PortChecker{})
	r.Register(&MySQLChecker{})
	r.Register(&RedisChecker{})
	r.Register(&ICMPChecker{})
	r.Register(&PushChecker{Store: store, Tolerance: opts.PushTolerance})
	return r
}

func timeoutOf(m *storage.Monitor) time.Duration {
	if m.Timeout > 0 {
		return time.Duration(m.Timeout) * time.Second
	}
	return DefaultTimeout
}

func pingMs(start time.Time) *int64 {
	ms := time.Since(start).Milliseconds()
	return &ms
}
