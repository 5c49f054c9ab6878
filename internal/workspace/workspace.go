// Package workspace holds the immutable snapshot of experiment, feature-flag
// and remote-config definitions, and the machinery that keeps it fresh.
//
// A Workspace is never mutated after construction. Publishers build a new
// one off to the side and swap it into a Holder; readers always observe a
// complete snapshot.
package workspace

import "github.com/rafaeljc/heimdall-sdk/internal/model"

// Workspace is an immutable, indexed snapshot of definitions.
type Workspace struct {
	experiments             map[int64]*model.Experiment
	featureFlags            map[int64]*model.Experiment
	buckets                 map[int64]*model.Bucket
	eventTypes              map[string]*model.EventType
	segments                map[string]*model.Segment
	containers              map[int64]*model.Container
	parameterConfigurations map[int64]*model.ParameterConfiguration
	remoteConfigParameters  map[string]*model.RemoteConfigParameter
}

// Contents lists the entities a Workspace is built from.
type Contents struct {
	Experiments             []*model.Experiment
	FeatureFlags            []*model.Experiment
	Buckets                 []*model.Bucket
	EventTypes              []*model.EventType
	Segments                []*model.Segment
	Containers              []*model.Container
	ParameterConfigurations []*model.ParameterConfiguration
	RemoteConfigParameters  []*model.RemoteConfigParameter
}

// New indexes c into a Workspace. Later entries win on duplicate keys.
func New(c Contents) *Workspace {
	return &Workspace{
		experiments:             index(c.Experiments, func(e *model.Experiment) int64 { return e.Key }),
		featureFlags:            index(c.FeatureFlags, func(e *model.Experiment) int64 { return e.Key }),
		buckets:                 index(c.Buckets, func(b *model.Bucket) int64 { return b.ID }),
		eventTypes:              index(c.EventTypes, func(e *model.EventType) string { return e.Key }),
		segments:                index(c.Segments, func(s *model.Segment) string { return s.Key }),
		containers:              index(c.Containers, func(c *model.Container) int64 { return c.ID }),
		parameterConfigurations: index(c.ParameterConfigurations, func(p *model.ParameterConfiguration) int64 { return p.ID }),
		remoteConfigParameters:  index(c.RemoteConfigParameters, func(p *model.RemoteConfigParameter) string { return p.Key }),
	}
}

func index[K comparable, V any](items []*V, key func(*V) K) map[K]*V {
	m := make(map[K]*V, len(items))
	for _, item := range items {
		if item != nil {
			m[key(item)] = item
		}
	}
	return m
}

// Experiment returns the A/B test with the given key, or nil.
func (w *Workspace) Experiment(key int64) *model.Experiment { return w.experiments[key] }

// FeatureFlag returns the feature flag with the given key, or nil.
func (w *Workspace) FeatureFlag(key int64) *model.Experiment { return w.featureFlags[key] }

// Bucket returns the bucket with the given id, or nil.
func (w *Workspace) Bucket(id int64) *model.Bucket { return w.buckets[id] }

// EventType returns the event type with the given key, or nil.
func (w *Workspace) EventType(key string) *model.EventType { return w.eventTypes[key] }

// Segment returns the segment with the given key, or nil.
func (w *Workspace) Segment(key string) *model.Segment { return w.segments[key] }

// Container returns the container with the given id, or nil.
func (w *Workspace) Container(id int64) *model.Container { return w.containers[id] }

// ParameterConfiguration returns the configuration with the given id, or nil.
func (w *Workspace) ParameterConfiguration(id int64) *model.ParameterConfiguration {
	return w.parameterConfigurations[id]
}

// RemoteConfigParameter returns the parameter with the given key, or nil.
func (w *Workspace) RemoteConfigParameter(key string) *model.RemoteConfigParameter {
	return w.remoteConfigParameters[key]
}

// Stats summarises the snapshot size for logging.
type Stats struct {
	Experiments            int
	FeatureFlags           int
	Segments               int
	RemoteConfigParameters int
}

// Stats returns entity counts.
func (w *Workspace) Stats() Stats {
	return Stats{
		Experiments:            len(w.experiments),
		FeatureFlags:           len(w.featureFlags),
		Segments:               len(w.segments),
		RemoteConfigParameters: len(w.remoteConfigParameters),
	}
}
