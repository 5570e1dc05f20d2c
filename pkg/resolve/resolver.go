// SPDX-License-Identifier: MPL-2.0

// Package resolve turns a list of requested packages into an ordered,
// conflict-checked install plan.
//
// Resolution is a breadth-first fixed point. Each wave of newly discovered
// packages is evaluated concurrently at the resolve level; the resulting
// relations are merged on the calling goroutine in discovery order, which
// keeps the outcome deterministic. Conflicts and explicit dependencies are
// checked once nothing new is discovered, after which every package is
// evaluated again at the install level to collect its addons.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcvm-launcher/mcvm-sub002/internal/dag"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

// DefaultConcurrency is the number of packages evaluated at once unless
// WithConcurrency says otherwise.
const DefaultConcurrency = 8

type (
	// PackageEvaluator locates packages and evaluates them. Implementations
	// must be safe for concurrent use and return an error wrapping
	// ErrUnknownPackage for packages they cannot find.
	PackageEvaluator interface {
		Properties(ctx context.Context, req *pkgreq.Request) (*pkgdesc.Properties, error)
		Eval(ctx context.Context, req *pkgreq.Request, level evalctx.Level, in *evalctx.Input) (*eval.Result, error)
	}

	// Advisor is implemented by evaluators that know repository flags for
	// packages. Every returned flag becomes a WarnAdvisory warning.
	Advisor interface {
		Advisories(id pkgreq.ID) []string
	}

	// PackageConfig overrides the evaluation parameters of one package.
	PackageConfig struct {
		Features []string
		// NoDefaultFeatures disables the package's default features.
		NoDefaultFeatures bool
		Permissions       *evalctx.Permissions
		Stability         pkgdesc.Stability
		ContentVersion    string
	}

	// Config is the consumer configuration a resolution runs under.
	Config struct {
		Constants *evalctx.Constants
		Side      loader.Side
		// Permissions applies to packages without an override. The zero
		// value is evalctx.Standard.
		Permissions evalctx.Permissions
		Stability   pkgdesc.Stability
		Packages    map[pkgreq.ID]PackageConfig
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver resolves install plans. Evaluations are memoised for the
	// lifetime of the Resolver, so reusing one across resolutions with the
	// same constants avoids repeated work. Safe for concurrent use.
	Resolver struct {
		memo        *memo
		ev          PackageEvaluator
		logger      *log.Logger
		concurrency int
	}

	node struct {
		req     *pkgreq.Request
		in      *evalctx.Input
		result  *eval.Result
		install *eval.Result
	}

	pendingCompat struct {
		owner pkgreq.ID
		pair  pkgreq.Compat
	}

	// state is owned by the goroutine running Resolve.
	state struct {
		logger  *log.Logger
		nodes   map[pkgreq.ID]*node
		order   []pkgreq.ID
		pending []*node
		compats []pendingCompat
	}
)

// WithLogger sets the logger used for resolution tracing.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithConcurrency limits how many packages are evaluated at once. A
// non-positive value removes the limit.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// New creates a Resolver over ev.
func New(ev PackageEvaluator, opts ...Option) *Resolver {
	r := &Resolver{
		memo:        newMemo(ev),
		ev:          ev,
		logger:      log.New(io.Discard),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve is a convenience for resolving ids the consumer configured
// directly with a fresh Resolver.
func Resolve(ctx context.Context, ev PackageEvaluator, initial []pkgreq.ID, cfg Config, opts ...Option) (*Plan, error) {
	reqs := make([]*pkgreq.Request, 0, len(initial))
	for _, id := range initial {
		reqs = append(reqs, pkgreq.NewUserRequest(id))
	}
	return New(ev, opts...).Resolve(ctx, reqs, cfg)
}

// Resolve computes the install plan for the initial requests. Resolution is
// all or nothing: any evaluation failure, conflict, missing explicit
// dependency or unfulfilled extension aborts it.
func (r *Resolver) Resolve(ctx context.Context, initial []*pkgreq.Request, cfg Config) (*Plan, error) {
	if cfg.Constants == nil {
		cfg.Constants = &evalctx.Constants{}
	}

	s := &state{logger: r.logger, nodes: make(map[pkgreq.ID]*node)}
	for _, req := range initial {
		if err := req.ID.Validate(); err != nil {
			return nil, err
		}
		s.enqueue(req)
	}

	for len(s.pending) > 0 {
		wave := s.pending
		s.pending = nil
		r.logger.Debug("evaluating wave", "packages", len(wave))

		if err := r.fanOut(ctx, wave, func(ctx context.Context, n *node) error {
			in, err := r.input(ctx, n.req, &cfg)
			if err != nil {
				return err
			}
			res, err := r.memo.eval(ctx, n.req, evalctx.LevelResolve, in)
			if err != nil {
				return wrapEvalError(n.req, evalctx.LevelResolve, err)
			}
			n.in, n.result = in, res
			return nil
		}); err != nil {
			return nil, err
		}

		for _, n := range wave {
			s.expand(n)
			s.requireCompats()
		}
	}

	if err := s.checkConflicts(); err != nil {
		return nil, err
	}
	if err := s.checkExplicit(); err != nil {
		return nil, err
	}
	if err := s.checkExtensions(); err != nil {
		return nil, err
	}

	order, err := s.planOrder()
	if err != nil {
		return nil, err
	}
	return r.install(ctx, s, order)
}

// fanOut runs fn for every node, at most r.concurrency at a time. The first
// error cancels the others.
func (r *Resolver) fanOut(ctx context.Context, nodes []*node, fn func(context.Context, *node) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for _, n := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, n)
		})
	}
	return g.Wait()
}

// input builds the evaluation input of a request from the configuration.
func (r *Resolver) input(ctx context.Context, req *pkgreq.Request, cfg *Config) (*evalctx.Input, error) {
	props, err := r.ev.Properties(ctx, req)
	if err != nil {
		return nil, wrapEvalError(req, evalctx.LevelProperties, err)
	}
	in, err := cfg.Input(req, props)
	if err != nil {
		return nil, wrapEvalError(req, evalctx.LevelProperties, err)
	}
	return in, nil
}

// Input builds the evaluation input of req, whose package declares props.
// Per-package overrides win over the global policy, and unknown requested
// features are rejected.
func (c *Config) Input(req *pkgreq.Request, props *pkgdesc.Properties) (*evalctx.Input, error) {
	pc := c.Packages[req.ID]
	params := evalctx.Params{
		Side:           c.Side,
		Permissions:    c.Permissions,
		Stability:      c.Stability,
		ContentVersion: req.ContentVersion,
	}
	if pc.Permissions != nil {
		params.Permissions = *pc.Permissions
	}
	if pc.Stability != "" {
		params.Stability = pc.Stability
	}
	if params.ContentVersion == "" {
		params.ContentVersion = pc.ContentVersion
	}
	if err := eval.CheckFeatures(pc.Features, props); err != nil {
		return nil, err
	}
	params.Features = props.EnabledFeatures(pc.Features, !pc.NoDefaultFeatures)

	return &evalctx.Input{Constants: c.Constants, Params: params}, nil
}

func wrapEvalError(req *pkgreq.Request, level evalctx.Level, err error) error {
	switch {
	case errors.Is(err, ErrUnknownPackage):
		return &UnknownPackageError{Request: req}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &PackageError{Request: req, Level: level.String(), Err: err}
	}
}

// install evaluates every applicable package at the install level and
// assembles the plan.
func (r *Resolver) install(ctx context.Context, s *state, order []pkgreq.ID) (*Plan, error) {
	nodes := make([]*node, 0, len(order))
	for _, id := range order {
		if n := s.nodes[id]; !n.result.Skipped {
			nodes = append(nodes, n)
		}
	}

	if err := r.fanOut(ctx, nodes, func(ctx context.Context, n *node) error {
		res, err := r.memo.eval(ctx, n.req, evalctx.LevelInstall, n.in)
		if err != nil {
			return wrapEvalError(n.req, evalctx.LevelInstall, err)
		}
		n.install = res
		return nil
	}); err != nil {
		return nil, err
	}

	plan := &Plan{Entries: make([]Entry, 0, len(order))}
	for _, id := range order {
		n := s.nodes[id]
		entry := Entry{Request: n.req, Skipped: n.result.Skipped}
		if res := n.install; res != nil {
			entry.Addons = res.Addons
			entry.Commands = res.Commands
			entry.Notices = res.Notices
		}
		entry.Extends = slices.Clone(n.result.Relations.Extensions)
		plan.Entries = append(plan.Entries, entry)
		plan.Warnings = append(plan.Warnings, s.recommendationWarnings(n)...)
		if adv, ok := r.ev.(Advisor); ok {
			for _, flag := range adv.Advisories(id) {
				plan.Warnings = append(plan.Warnings, Warning{Kind: WarnAdvisory, Package: id, Target: flag})
			}
		}
	}
	return plan, nil
}

// enqueue adds req to the next wave, or unifies it with the request already
// known for the same package.
func (s *state) enqueue(req *pkgreq.Request) {
	if n, ok := s.nodes[req.ID]; ok {
		s.unify(n, req)
		return
	}
	n := &node{req: req}
	s.nodes[req.ID] = n
	s.order = append(s.order, req.ID)
	s.pending = append(s.pending, n)
	s.logger.Debug("requested", "package", req.ID, "source", req.Source.Kind, "chain", req.Chain())
}

// unify keeps the most authoritative explanation for a package. A
// replacement that would make the package its own ancestor is ignored so
// provenance chains stay acyclic.
func (s *state) unify(n *node, req *pkgreq.Request) {
	if !req.MoreAuthoritative(n.req) || s.descendsFrom(req, n.req.ID) {
		return
	}
	if req.ContentVersion == "" && n.req.ContentVersion != "" {
		clone := *req
		clone.ContentVersion = n.req.ContentVersion
		req = &clone
	}
	s.logger.Debug("provenance replaced", "package", req.ID, "from", n.req.Source.Kind, "to", req.Source.Kind)
	n.req = req
}

// descendsFrom reports whether id appears among the current ancestors of
// req.
func (s *state) descendsFrom(req *pkgreq.Request, id pkgreq.ID) bool {
	p := req.Source.Parent
	for steps := 0; p != nil && steps <= len(s.nodes); steps++ {
		if p.ID == id {
			return true
		}
		if cur, ok := s.nodes[p.ID]; ok {
			p = cur.req.Source.Parent
		} else {
			p = p.Source.Parent
		}
	}
	return false
}

// expand enqueues what an evaluated package pulls in.
func (s *state) expand(n *node) {
	rel := &n.result.Relations

	for _, group := range rel.Deps {
		if slices.ContainsFunc(group, func(m pkgreq.RequiredPackage) bool {
			_, ok := s.nodes[m.ID]
			return ok
		}) {
			continue
		}
		// Explicit members are only satisfied by configuration.
		i := slices.IndexFunc(group, func(m pkgreq.RequiredPackage) bool { return !m.Explicit })
		if i < 0 {
			continue
		}
		s.enqueue(pkgreq.NewChild(group[i].ID, pkgreq.SourceDependency, n.req))
	}

	for _, id := range rel.Bundled {
		s.enqueue(pkgreq.NewChild(id, pkgreq.SourceBundled, n.req))
	}

	for _, c := range rel.Compats {
		s.compats = append(s.compats, pendingCompat{owner: n.req.ID, pair: c})
	}
}

// requireCompats pulls in the second package of every compat pair whose
// first package is known.
func (s *state) requireCompats() {
	for _, c := range s.compats {
		if _, ok := s.nodes[c.pair.Package]; !ok {
			continue
		}
		if _, ok := s.nodes[c.pair.With]; ok {
			continue
		}
		owner := s.nodes[c.owner].req
		s.logger.Debug("compat", "package", c.pair.Package, "with", c.pair.With, "declared_by", c.owner)
		s.enqueue(pkgreq.NewChild(c.pair.With, pkgreq.SourceDependency, owner))
	}
}

func (s *state) checkConflicts() error {
	for _, id := range s.order {
		n := s.nodes[id]
		for _, other := range n.result.Relations.Conflicts {
			if other == id {
				continue
			}
			if o, ok := s.nodes[other]; ok {
				return &ConflictError{
					A:       n.req,
					B:       o.req,
					Refused: pkgreq.NewChild(other, pkgreq.SourceRefused, n.req),
				}
			}
		}
	}
	return nil
}

// checkExplicit verifies that every dependency group with explicit members
// is satisfied by a package the consumer configured, or by a non-explicit
// member that is present.
func (s *state) checkExplicit() error {
	for _, id := range s.order {
		n := s.nodes[id]
		for _, group := range n.result.Relations.Deps {
			first := slices.IndexFunc(group, func(m pkgreq.RequiredPackage) bool { return m.Explicit })
			if first < 0 {
				continue
			}
			if slices.ContainsFunc(group, s.satisfies) {
				continue
			}
			return &MissingExplicitError{Package: n.req, Dependency: group[first].ID}
		}
	}
	return nil
}

// checkExtensions verifies that every extended package is in the plan.
// Extensions never pull their target in.
func (s *state) checkExtensions() error {
	for _, id := range s.order {
		n := s.nodes[id]
		for _, target := range n.result.Relations.Extensions {
			if _, ok := s.nodes[target]; !ok {
				return &ExtensionError{Package: n.req, Target: target}
			}
		}
	}
	return nil
}

func (s *state) satisfies(m pkgreq.RequiredPackage) bool {
	n, ok := s.nodes[m.ID]
	if !ok {
		return false
	}
	if !m.Explicit {
		return true
	}
	return n.req.Source.Kind == pkgreq.SourceUserRequire || n.req.IsUserBundled()
}

func (s *state) recommendationWarnings(n *node) []Warning {
	var out []Warning
	for _, rec := range n.result.Relations.Recommendations {
		_, present := s.nodes[rec.ID]
		switch {
		case rec.Invert && present:
			out = append(out, Warning{Kind: WarnRecommendedAgainst, Package: n.req.ID, Target: string(rec.ID)})
		case !rec.Invert && !present:
			out = append(out, Warning{Kind: WarnMissingRecommendation, Package: n.req.ID, Target: string(rec.ID)})
		}
	}
	return out
}

// planOrder puts every package before the package that pulled it in, ties
// broken by discovery order.
func (s *state) planOrder() ([]pkgreq.ID, error) {
	g := dag.New[pkgreq.ID]()
	for _, id := range s.order {
		g.AddNode(id)
	}
	for _, id := range s.order {
		parent := s.nodes[id].req.Source.Parent
		if parent == nil || parent.ID == id {
			continue
		}
		if _, ok := s.nodes[parent.ID]; ok {
			g.AddEdge(id, parent.ID)
		}
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering install plan: %w", err)
	}
	return order, nil
}
