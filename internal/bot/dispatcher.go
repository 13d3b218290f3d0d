package bot

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whisper/groupguard/internal/platform"
)

// Kind is the routing key of an update.
type Kind string

const (
	KindText       Kind = "text"
	KindVideo      Kind = "video"
	KindCommand    Kind = "command"
	KindCallback   Kind = "callback"
	KindNewMembers Kind = "new_members"
)

// Handler processes one update.
type Handler func(ctx context.Context, u platform.Update)

// CommandFilter runs on every command message before it is looked up.
// Returning false drops the message.
type CommandFilter func(ctx context.Context, u platform.Update) bool

// KindOf returns the routing key of u. ok is false for updates that carry
// nothing the bot handles.
func KindOf(u platform.Update) (Kind, bool) {
	switch {
	case u.Callback != nil:
		return KindCallback, true
	case u.Message == nil:
		return "", false
	case len(u.Message.NewMembers) > 0:
		return KindNewMembers, true
	case u.Message.Video != nil:
		return KindVideo, true
	case u.Message.Command != "":
		return KindCommand, true
	case u.Message.Text != "":
		return KindText, true
	}
	return "", false
}

// Dispatcher routes updates to registered handlers based on their kind.
// Commands are routed a second time by name. Handlers run on a bounded
// worker pool and a panic inside one only ends that update.
type Dispatcher struct {
	handlers map[Kind]Handler
	commands map[string]Handler
	filter   CommandFilter
	log      *zap.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[Kind]Handler),
		commands: make(map[string]Handler),
		log:      log.Named("dispatch"),
	}
}

// Register associates a handler with an update kind. A previous handler for
// the kind is replaced.
func (d *Dispatcher) Register(kind Kind, h Handler) {
	d.handlers[kind] = h
}

// RegisterCommand associates a handler with a command name, without the
// leading slash.
func (d *Dispatcher) RegisterCommand(name string, h Handler) {
	d.commands[name] = h
}

// FilterCommands installs f in front of command routing. Unknown commands
// pass through f as well.
func (d *Dispatcher) FilterCommands(f CommandFilter) {
	d.filter = f
}

// Dispatch handles one update synchronously. Unknown commands and update
// kinds without a handler are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, u platform.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic",
				zap.Int("update_id", u.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	kind, ok := KindOf(u)
	if !ok {
		return
	}

	if kind == KindCommand {
		if d.filter != nil && !d.filter(ctx, u) {
			return
		}
		if h, ok := d.commands[u.Message.Command]; ok {
			h(ctx, u)
			return
		}
		d.log.Debug("unknown command", zap.String("command", u.Message.Command))
		return
	}

	h, ok := d.handlers[kind]
	if !ok {
		d.log.Debug("no handler", zap.String("kind", string(kind)), zap.Int("update_id", u.ID))
		return
	}
	h(ctx, u)
}

// Run consumes updates until ctx is cancelled or updates is closed, running
// at most workers handlers at once. It returns after every in-flight handler
// has finished.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan platform.Update, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	defer d.log.Info("dispatcher stopped")
	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case u, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				d.Dispatch(ctx, u)
				return nil
			})
		}
	}
}
