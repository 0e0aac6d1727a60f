package guard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	nodex "github.com/tanpawarit/Chative-Drift-Guard/agent/nodes"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

var (
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	Tracker statex.TrackerConfig
	// Classifier is optional; without it missing intent flags default to false.
	Classifier contractx.IntentClassifier
	Observers  []contractx.TurnObserver
}

// Guard runs the per-turn drift pipeline. Safe for concurrent use; turns of
// the same session are serialized.
type Guard struct {
	store      statex.Store
	classifier contractx.IntentClassifier
	sink       contractx.AuditSink
	observers  []contractx.TurnObserver
	controller *control.Controller
	trackerCfg statex.TrackerConfig

	locks *xsync.MapOf[string, *sessionLock]

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(store statex.Store, sink contractx.AuditSink, cfg Config) (*Guard, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if sink == nil {
		sink = noopSink{}
	}

	trackerCfg := cfg.Tracker
	if trackerCfg == (statex.TrackerConfig{}) {
		trackerCfg = statex.DefaultTrackerConfig()
	}
	if err := trackerCfg.Validate(); err != nil {
		return nil, err
	}

	g := &Guard{
		store:      store,
		classifier: cfg.Classifier,
		sink:       sink,
		observers:  cfg.Observers,
		controller: control.NewController(),
		trackerCfg: trackerCfg,
		locks:      xsync.NewMapOf[string, *sessionLock](),
		now:        time.Now,
	}

	graphRunner, err := g.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	g.graphRunner = graphRunner

	return g, nil
}

func (g *Guard) HandleTurn(ctx context.Context, in contractx.TurnInput) (contractx.TurnResult, error) {
	if key := strings.TrimSpace(in.SessionID); key != "" {
		release := g.lockSession(key)
		defer release()
	}

	out, err := g.graphRunner.Invoke(ctx, in)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return out, nil
}

// EndSession forgets all state for the session.
func (g *Guard) EndSession(ctx context.Context, sessionID string) error {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return ErrInvalidSession
	}
	release := g.lockSession(key)
	defer release()

	return g.store.Delete(ctx, key)
}

// sessionLock is shared by every caller holding or waiting on a session.
// refs is only touched inside locks.Compute.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession blocks until the caller owns the session. The entry is dropped
// once the last holder or waiter releases it, so the map stays bounded by the
// number of sessions in flight.
func (g *Guard) lockSession(key string) (release func()) {
	l, _ := g.locks.Compute(key, func(old *sessionLock, loaded bool) (*sessionLock, bool) {
		if !loaded {
			old = &sessionLock{}
		}
		old.refs++
		return old, false
	})
	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		g.locks.Compute(key, func(old *sessionLock, loaded bool) (*sessionLock, bool) {
			if !loaded {
				return nil, true
			}
			old.refs--
			return old, old.refs == 0
		})
	}
}

type noopSink struct{}

func (noopSink) Write(context.Context, contractx.TurnRecord) error { return nil }

func (noopSink) Close() error { return nil }
