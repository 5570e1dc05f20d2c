// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/evalctx"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
)

// memo runs at most one evaluation per (package, level, input key).
// Concurrent callers for the same key share the in-flight evaluation.
// Failures are not cached.
type memo struct {
	ev    PackageEvaluator
	group singleflight.Group

	mu      sync.Mutex
	results map[string]*eval.Result
}

func newMemo(ev PackageEvaluator) *memo {
	return &memo{ev: ev, results: make(map[string]*eval.Result)}
}

func memoKey(id pkgreq.ID, level evalctx.Level, in *evalctx.Input) string {
	return string(id) + "|" + level.String() + "|" + in.Key()
}

func (m *memo) eval(ctx context.Context, req *pkgreq.Request, level evalctx.Level, in *evalctx.Input) (*eval.Result, error) {
	key := memoKey(req.ID, level, in)

	m.mu.Lock()
	res, ok := m.results[key]
	m.mu.Unlock()
	if ok {
		return res, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// A call that finished between the lookup above and Do has
		// already stored its result.
		m.mu.Lock()
		res, ok := m.results[key]
		m.mu.Unlock()
		if ok {
			return res, nil
		}

		res, err := m.ev.Eval(ctx, req, level, in)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.results[key] = res
		m.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*eval.Result), nil
}
