package settings

import (
	"context"
	"slices"
	"sync"
)

type subscription struct {
	ctx       context.Context
	onLocales func([]string)
	onChange  func(Settings)
}

// hub fans settings changes out to subscribers until their context is done.
type hub struct {
	mu   sync.Mutex
	subs []subscription
}

func (h *hub) add(s subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, s)
}

// publish calls subscribers synchronously. Locale callbacks only run when the
// enabled locale set actually changed.
func (h *hub) publish(old, cur Settings) {
	h.mu.Lock()
	h.subs = slices.DeleteFunc(h.subs, func(s subscription) bool {
		return s.ctx.Err() != nil
	})
	subs := slices.Clone(h.subs)
	h.mu.Unlock()

	localesChanged := !slices.Equal(old.EnabledLocales, cur.EnabledLocales)
	for _, s := range subs {
		if s.onLocales != nil && localesChanged {
			s.onLocales(slices.Clone(cur.EnabledLocales))
		}
		if s.onChange != nil {
			s.onChange(cur.Clone())
		}
	}
}
