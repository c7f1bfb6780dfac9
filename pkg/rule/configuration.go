package rule

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/korniloval/fierix/pkg/types"
)

// Snapshot is an immutable view of a Configuration. Slices must not be
// modified by callers.
type Snapshot struct {
	Including []*types.MethodConfig
	Excluding []*types.MethodConfig
}

// Configuration is the set of including and excluding method configs that
// decides which methods get instrumented. Readers work on an immutable
// snapshot that writers replace atomically, so a reader never observes a
// half applied edit.
type Configuration struct {
	mu       sync.Mutex // serializes writers
	snapshot atomic.Pointer[Snapshot]
}

// NewConfiguration creates a configuration from the given rules.
func NewConfiguration(including, excluding []*types.MethodConfig) *Configuration {
	c := &Configuration{}
	c.snapshot.Store(&Snapshot{
		Including: dedup(slices.Clone(including)),
		Excluding: dedup(slices.Clone(excluding)),
	})
	return c
}

// Snapshot returns the current immutable view.
func (c *Configuration) Snapshot() *Snapshot {
	if s := c.snapshot.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Including returns the current including configs.
func (c *Configuration) Including() []*types.MethodConfig {
	return slices.Clone(c.Snapshot().Including)
}

// Excluding returns the current excluding configs.
func (c *Configuration) Excluding() []*types.MethodConfig {
	return slices.Clone(c.Snapshot().Excluding)
}

// Include adds configs to the including list. Configs already present are
// skipped.
func (c *Configuration) Include(configs ...*types.MethodConfig) {
	c.update(func(s *Snapshot) {
		s.Including = dedup(append(s.Including, configs...))
	})
}

// Exclude adds configs to the excluding list. Configs already present are
// skipped.
func (c *Configuration) Exclude(configs ...*types.MethodConfig) {
	c.update(func(s *Snapshot) {
		s.Excluding = dedup(append(s.Excluding, configs...))
	})
}

// Remove deletes every config equal to mc from both lists and reports
// whether anything was removed.
func (c *Configuration) Remove(mc *types.MethodConfig) bool {
	removed := false
	c.update(func(s *Snapshot) {
		before := len(s.Including) + len(s.Excluding)
		s.Including = slices.DeleteFunc(s.Including, mc.Equal)
		s.Excluding = slices.DeleteFunc(s.Excluding, mc.Equal)
		removed = len(s.Including)+len(s.Excluding) != before
	})
	return removed
}

// Replace swaps old for updated wherever old appears, keeping its position.
// It reports whether old was found.
func (c *Configuration) Replace(old, updated *types.MethodConfig) bool {
	found := false
	c.update(func(s *Snapshot) {
		for _, list := range [][]*types.MethodConfig{s.Including, s.Excluding} {
			for i, mc := range list {
				if mc.Equal(old) {
					list[i] = updated
					found = true
				}
			}
		}
		s.Including = dedup(s.Including)
		s.Excluding = dedup(s.Excluding)
	})
	return found
}

// IsMethodInstrumented reports whether the method is selected: no
// excluding config matches it and at least one including config does.
func (c *Configuration) IsMethodInstrumented(className, methodName string, params []string) bool {
	s := c.Snapshot()
	for _, mc := range s.Excluding {
		if mc.Matches(className, methodName, params) {
			return false
		}
	}
	for _, mc := range s.Including {
		if mc.Matches(className, methodName, params) {
			return true
		}
	}
	return false
}

// IncludingConfigs returns the including configs that match the method.
func (c *Configuration) IncludingConfigs(className, methodName string, params []string) []*types.MethodConfig {
	return matching(c.Snapshot().Including, className, methodName, params)
}

// ExcludingConfigs returns the excluding configs that match the method.
func (c *Configuration) ExcludingConfigs(className, methodName string, params []string) []*types.MethodConfig {
	return matching(c.Snapshot().Excluding, className, methodName, params)
}

// AppliesToClass reports whether any enabled including config could select
// a method of the class. Exclusions are not consulted since they may only
// cover some of its methods.
func (c *Configuration) AppliesToClass(className string) bool {
	for _, mc := range c.Snapshot().Including {
		if mc.Enabled() && mc.AppliesToClass(className) {
			return true
		}
	}
	return false
}

// Len returns the number of including and excluding configs.
func (c *Configuration) Len() (including, excluding int) {
	s := c.Snapshot()
	return len(s.Including), len(s.Excluding)
}

// Merge adds all configs of other into c.
func (c *Configuration) Merge(other *Configuration) {
	o := other.Snapshot()
	c.update(func(s *Snapshot) {
		s.Including = dedup(append(s.Including, o.Including...))
		s.Excluding = dedup(append(s.Excluding, o.Excluding...))
	})
}

// update applies edit to a private copy of the current snapshot and
// publishes the copy.
func (c *Configuration) update(edit func(s *Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.Snapshot()
	next := &Snapshot{
		Including: slices.Clone(cur.Including),
		Excluding: slices.Clone(cur.Excluding),
	}
	edit(next)
	c.snapshot.Store(next)
}

func matching(configs []*types.MethodConfig, className, methodName string, params []string) []*types.MethodConfig {
	var result []*types.MethodConfig
	for _, mc := range configs {
		if mc.Matches(className, methodName, params) {
			result = append(result, mc)
		}
	}
	return result
}

// dedup drops nil entries and configs equal to an earlier one.
func dedup(configs []*types.MethodConfig) []*types.MethodConfig {
	result := make([]*types.MethodConfig, 0, len(configs))
	for _, mc := range configs {
		if mc == nil || slices.ContainsFunc(result, mc.Equal) {
			continue
		}
		result = append(result, mc)
	}
	return result
}
