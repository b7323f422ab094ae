package vcore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-vcore/pkg/activity"
	"github.com/goliatone/go-vcore/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version identifies this build of vcore.
const Version = "0.1.0"

// Constructor is one node of a subclassing chain. The root is created with
// NewRoot; every other constructor comes from Extend.
//
// Constructors share mutable state with their whole tree and are NOT safe for
// concurrent use. Mutation (Mixin, Extend, asset registration) is expected to
// be rare compared to instantiation; ResolveOptions relies on identity checks
// instead of locks to observe it.
type Constructor struct {
	cid    uint64
	super  *Constructor
	global *globalState

	options       *Options
	superOptions  *Options
	extendOptions *Options
	sealedOptions *Options

	eval *ctorEvaluator
}

type globalState struct {
	root      *Constructor
	config    Config
	logger    *zap.Logger
	sessionID string

	ctors     map[uint64]*Constructor
	nextCID   uint64
	installed map[any]struct{}

	scheduler        *scheduler.Queue
	mounter          Mounter
	activity         *activity.Emitter
	evaluatorFactory EvaluatorFactory
	programCache     ProgramCache
	evaluatorLogger  EvaluatorLogger
	evaluatorGen     uint64
}

func (c *Constructor) componentOptions() *Options {
	return c.options
}

// CID returns the constructor id. The root is 0.
func (c *Constructor) CID() uint64 {
	return c.cid
}

// Super returns the parent constructor, nil for the root.
func (c *Constructor) Super() *Constructor {
	return c.super
}

// IsRoot reports whether c is the root constructor.
func (c *Constructor) IsRoot() bool {
	return c.super == nil
}

// Root returns the root constructor of the chain.
func (c *Constructor) Root() *Constructor {
	return c.global.root
}

// Lookup returns the constructor registered under cid in this tree.
func (c *Constructor) Lookup(cid uint64) (*Constructor, bool) {
	ctor, ok := c.global.ctors[cid]
	return ctor, ok
}

// Options returns the cached effective options. They may be stale when an
// ancestor changed; use ResolveOptions for the up-to-date bag.
func (c *Constructor) Options() *Options {
	return c.options
}

// SuperOptions returns the parent options seen at the last resolution.
func (c *Constructor) SuperOptions() *Options {
	return c.superOptions
}

// ExtendOptions returns the bag passed to Extend, including late
// modifications folded in by ResolveOptions.
func (c *Constructor) ExtendOptions() *Options {
	return c.extendOptions
}

// SealedOptions returns the snapshot taken when the constructor was created.
func (c *Constructor) SealedOptions() *Options {
	return c.sealedOptions
}

// NewRoot creates a root constructor with its own configuration, plugin
// registry and asset registries.
func NewRoot(opts ...RootOption) *Constructor {
	cfg := applyRootOptions(opts)

	g := &globalState{
		config:           cfg.config.clone(),
		logger:           cfg.logger,
		sessionID:        uuid.NewString(),
		ctors:            map[uint64]*Constructor{},
		installed:        map[any]struct{}{},
		scheduler:        cfg.scheduler,
		mounter:          cfg.mounter,
		activity:         activity.NewEmitter(cfg.activityHooks, activity.Config{Enabled: len(cfg.activityHooks) > 0, Channel: "components"}),
		evaluatorFactory: cfg.evaluatorFactory,
		programCache:     cfg.programCache,
		evaluatorLogger:  cfg.evaluatorLogger,
	}
	if g.scheduler == nil {
		g.scheduler = scheduler.New()
	}
	if g.programCache == nil {
		g.programCache = NewMemoryProgramCache()
	}

	root := &Constructor{global: g}
	g.root = root
	g.ctors[0] = root

	root.options = &Options{
		Components: builtInComponents(),
		Directives: map[string]*Directive{},
		Filters:    map[string]Filter{},
		Base:       root,
	}
	return root
}

// Extend creates a subclass whose options are the merge of c's options and
// extendOptions. Extending the same bag from the same constructor twice
// returns the same subclass. The bag must not be modified afterwards.
func (c *Constructor) Extend(extendOptions *Options) (*Constructor, error) {
	return c.extend(extendOptions, "")
}

// extend is Extend with a fallback name used when the bag declares none.
// The subclass is cached on the bag the caller passed in.
func (c *Constructor) extend(extendOptions *Options, defaultName string) (*Constructor, error) {
	if extendOptions == nil {
		extendOptions = &Options{}
	}
	if cached, ok := extendOptions.ctorCache[c]; ok {
		return cached, nil
	}
	cacheOwner := extendOptions
	if extendOptions.Name == "" && defaultName != "" {
		extendOptions = extendOptions.clone()
		extendOptions.Name = defaultName
	}

	g := c.global
	name := extendOptions.Name
	if name == "" {
		name = c.options.Name
	}
	if name != "" {
		g.validateComponentName(name)
	}

	options, err := mergeOptions(g, c.options, extendOptions, nil)
	if err != nil {
		return nil, fmt.Errorf("vcore: extend %q: %w", name, err)
	}

	g.nextCID++
	sub := &Constructor{
		cid:    g.nextCID,
		super:  c,
		global: g,
	}
	if name != "" {
		options = options.withComponent(name, sub)
	}
	sub.options = options
	sub.superOptions = c.options
	sub.extendOptions = extendOptions
	sub.sealedOptions = options.clone()

	if cacheOwner.ctorCache == nil {
		cacheOwner.ctorCache = map[*Constructor]*Constructor{}
	}
	cacheOwner.ctorCache[c] = sub
	g.ctors[sub.cid] = sub

	g.emit(activity.BuildComponentEvent(activity.VerbComponentExtended, activity.ComponentEventInput{
		Component: name,
		CID:       sub.cid,
		SuperCID:  c.cid,
		SessionID: g.sessionID,
	}))
	return sub, nil
}

// Mixin merges mixin into c's own options. Every later subclass resolution
// and instantiation observes it.
func (c *Constructor) Mixin(mixin *Options) error {
	options, err := mergeOptions(c.global, c.options, mixin, nil)
	if err != nil {
		return fmt.Errorf("vcore: mixin: %w", err)
	}
	c.options = options
	c.global.emit(activity.BuildComponentEvent(activity.VerbOptionsMixin, activity.ComponentEventInput{
		Component: options.Name,
		CID:       c.cid,
		SessionID: c.global.sessionID,
	}))
	return nil
}

func (g *globalState) emit(event activity.Event) {
	if err := g.activity.Emit(context.Background(), event); err != nil {
		g.log().Debug("activity hook failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}
