package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// document is the wire shape of a workspace snapshot.
// The same structure is accepted as JSON (server) or YAML (local files).
type document struct {
	Experiments             []experimentDTO             `json:"experiments" yaml:"experiments"`
	FeatureFlags            []experimentDTO             `json:"featureFlags" yaml:"featureFlags"`
	Buckets                 []bucketDTO                 `json:"buckets" yaml:"buckets"`
	Events                  []eventTypeDTO              `json:"events" yaml:"events"`
	Segments                []segmentDTO                `json:"segments" yaml:"segments"`
	Containers              []containerDTO              `json:"containers" yaml:"containers"`
	ParameterConfigurations []parameterConfigurationDTO `json:"parameterConfigurations" yaml:"parameterConfigurations"`
	RemoteConfigParameters  []remoteConfigParameterDTO  `json:"remoteConfigParameters" yaml:"remoteConfigParameters"`
}

type experimentDTO struct {
	ID                int64          `json:"id" yaml:"id"`
	Key               int64          `json:"key" yaml:"key"`
	Name              string         `json:"name" yaml:"name"`
	Version           int            `json:"version" yaml:"version"`
	IdentifierType    string         `json:"identifierType" yaml:"identifierType"`
	Variations        []variationDTO `json:"variations" yaml:"variations"`
	Execution         executionDTO   `json:"execution" yaml:"execution"`
	ContainerID       *int64         `json:"containerId" yaml:"containerId"`
	WinnerVariationID *int64         `json:"winnerVariationId" yaml:"winnerVariationId"`
}

type executionDTO struct {
	Status           string            `json:"status" yaml:"status"`
	Version          int               `json:"version" yaml:"version"`
	UserOverrides    []userOverrideDTO `json:"userOverrides" yaml:"userOverrides"`
	SegmentOverrides []targetRuleDTO   `json:"segmentOverrides" yaml:"segmentOverrides"`
	TargetAudiences  []targetDTO       `json:"targetAudiences" yaml:"targetAudiences"`
	TargetRules      []targetRuleDTO   `json:"targetRules" yaml:"targetRules"`
	DefaultRule      actionDTO         `json:"defaultRule" yaml:"defaultRule"`
}

type variationDTO struct {
	ID                       int64  `json:"id" yaml:"id"`
	Key                      string `json:"key" yaml:"key"`
	Status                   string `json:"status" yaml:"status"`
	ParameterConfigurationID *int64 `json:"parameterConfigurationId" yaml:"parameterConfigurationId"`
}

type userOverrideDTO struct {
	UserID      string `json:"userId" yaml:"userId"`
	VariationID int64  `json:"variationId" yaml:"variationId"`
}

type targetRuleDTO struct {
	Target targetDTO `json:"target" yaml:"target"`
	Action actionDTO `json:"action" yaml:"action"`
}

type targetDTO struct {
	Conditions []conditionDTO `json:"conditions" yaml:"conditions"`
}

type conditionDTO struct {
	Key struct {
		Type string `json:"type" yaml:"type"`
		Name string `json:"name" yaml:"name"`
	} `json:"key" yaml:"key"`
	Match struct {
		Type      string `json:"type" yaml:"type"`
		Operator  string `json:"operator" yaml:"operator"`
		ValueType string `json:"valueType" yaml:"valueType"`
		Values    []any  `json:"values" yaml:"values"`
	} `json:"match" yaml:"match"`
}

type actionDTO struct {
	Type        string `json:"type" yaml:"type"`
	VariationID *int64 `json:"variationId" yaml:"variationId"`
	BucketID    *int64 `json:"bucketId" yaml:"bucketId"`
}

type bucketDTO struct {
	ID       int64 `json:"id" yaml:"id"`
	Seed     int32 `json:"seed" yaml:"seed"`
	SlotSize int   `json:"slotSize" yaml:"slotSize"`
	Slots    []struct {
		StartInclusive int   `json:"startInclusive" yaml:"startInclusive"`
		EndExclusive   int   `json:"endExclusive" yaml:"endExclusive"`
		VariationID    int64 `json:"variationId" yaml:"variationId"`
	} `json:"slots" yaml:"slots"`
}

type eventTypeDTO struct {
	ID  int64  `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

type segmentDTO struct {
	ID      int64       `json:"id" yaml:"id"`
	Key     string      `json:"key" yaml:"key"`
	Type    string      `json:"type" yaml:"type"`
	Targets []targetDTO `json:"targets" yaml:"targets"`
}

type containerDTO struct {
	ID       int64 `json:"id" yaml:"id"`
	BucketID int64 `json:"bucketId" yaml:"bucketId"`
	Groups   []struct {
		ID          int64   `json:"id" yaml:"id"`
		Experiments []int64 `json:"experiments" yaml:"experiments"`
	} `json:"groups" yaml:"groups"`
}

type parameterConfigurationDTO struct {
	ID         int64 `json:"id" yaml:"id"`
	Parameters []struct {
		Key   string `json:"key" yaml:"key"`
		Value any    `json:"value" yaml:"value"`
	} `json:"parameters" yaml:"parameters"`
}

type remoteConfigValueDTO struct {
	ID    int64 `json:"id" yaml:"id"`
	Value any   `json:"value" yaml:"value"`
}

type remoteConfigParameterDTO struct {
	ID             int64  `json:"id" yaml:"id"`
	Key            string `json:"key" yaml:"key"`
	Type           string `json:"type" yaml:"type"`
	IdentifierType string `json:"identifierType" yaml:"identifierType"`
	TargetRules    []struct {
		Key      string               `json:"key" yaml:"key"`
		Name     string               `json:"name" yaml:"name"`
		Target   targetDTO            `json:"target" yaml:"target"`
		BucketID int64                `json:"bucketId" yaml:"bucketId"`
		Value    remoteConfigValueDTO `json:"value" yaml:"value"`
	} `json:"targetRules" yaml:"targetRules"`
	DefaultValue remoteConfigValueDTO `json:"defaultValue" yaml:"defaultValue"`
}

// ParseJSON decodes a server snapshot.
// Entities carrying unknown type tags are skipped and logged, never fatal.
func ParseJSON(data []byte, logger *slog.Logger) (*Workspace, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode workspace json: %w", err)
	}
	return newDecoder(logger).build(&doc), nil
}

// ParseYAML decodes a snapshot written as YAML.
func ParseYAML(data []byte, logger *slog.Logger) (*Workspace, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode workspace yaml: %w", err)
	}
	return newDecoder(logger).build(&doc), nil
}

type decoder struct {
	logger *slog.Logger
}

func newDecoder(logger *slog.Logger) *decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &decoder{logger: logger}
}

func (d *decoder) build(doc *document) *Workspace {
	var c Contents

	for _, e := range doc.Experiments {
		if exp := d.experiment(e, model.ExperimentTypeABTest); exp != nil {
			c.Experiments = append(c.Experiments, exp)
		}
	}
	for _, e := range doc.FeatureFlags {
		if exp := d.experiment(e, model.ExperimentTypeFeatureFlag); exp != nil {
			c.FeatureFlags = append(c.FeatureFlags, exp)
		}
	}
	for _, b := range doc.Buckets {
		c.Buckets = append(c.Buckets, bucket(b))
	}
	for _, e := range doc.Events {
		c.EventTypes = append(c.EventTypes, &model.EventType{ID: e.ID, Key: e.Key})
	}
	for _, s := range doc.Segments {
		if seg := d.segment(s); seg != nil {
			c.Segments = append(c.Segments, seg)
		}
	}
	for _, ct := range doc.Containers {
		c.Containers = append(c.Containers, container(ct))
	}
	for _, p := range doc.ParameterConfigurations {
		c.ParameterConfigurations = append(c.ParameterConfigurations, parameterConfiguration(p))
	}
	for _, p := range doc.RemoteConfigParameters {
		if param := d.remoteConfigParameter(p); param != nil {
			c.RemoteConfigParameters = append(c.RemoteConfigParameters, param)
		}
	}

	return New(c)
}

func (d *decoder) experiment(dto experimentDTO, kind model.ExperimentType) *model.Experiment {
	status, err := model.ParseExperimentStatus(dto.Execution.Status)
	if err != nil {
		d.logger.Warn("skipping experiment with unsupported status",
			slog.Int64("experiment_key", dto.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	defaultRule, err := action(dto.Execution.DefaultRule)
	if err != nil {
		d.logger.Warn("skipping experiment with unsupported default rule",
			slog.Int64("experiment_key", dto.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	exp := &model.Experiment{
		ID:                dto.ID,
		Key:               dto.Key,
		Name:              dto.Name,
		Type:              kind,
		IdentifierType:    dto.IdentifierType,
		Status:            status,
		Version:           dto.Version,
		ExecutionVersion:  dto.Execution.Version,
		UserOverrides:     make(map[string]int64, len(dto.Execution.UserOverrides)),
		DefaultRule:       defaultRule,
		ContainerID:       dto.ContainerID,
		WinnerVariationID: dto.WinnerVariationID,
	}

	for _, v := range dto.Variations {
		exp.Variations = append(exp.Variations, model.Variation{
			ID:                       v.ID,
			Key:                      v.Key,
			Dropped:                  v.Status == "DROPPED",
			ParameterConfigurationID: v.ParameterConfigurationID,
		})
	}
	for _, o := range dto.Execution.UserOverrides {
		exp.UserOverrides[o.UserID] = o.VariationID
	}
	for _, r := range dto.Execution.SegmentOverrides {
		if rule, ok := d.targetRule(r, model.TargetingIdentifier); ok {
			exp.SegmentOverrides = append(exp.SegmentOverrides, rule)
		}
	}
	for _, t := range dto.Execution.TargetAudiences {
		if target, ok := d.target(t, model.TargetingProperty); ok {
			exp.TargetAudiences = append(exp.TargetAudiences, target)
		}
	}
	for _, r := range dto.Execution.TargetRules {
		if rule, ok := d.targetRule(r, model.TargetingProperty); ok {
			exp.TargetRules = append(exp.TargetRules, rule)
		}
	}

	return exp
}

func action(dto actionDTO) (model.Action, error) {
	t, err := model.ParseActionType(dto.Type)
	if err != nil {
		return model.Action{}, err
	}
	return model.Action{Type: t, VariationID: dto.VariationID, BucketID: dto.BucketID}, nil
}

func (d *decoder) targetRule(dto targetRuleDTO, targeting model.TargetingType) (model.TargetRule, bool) {
	target, ok := d.target(dto.Target, targeting)
	if !ok {
		return model.TargetRule{}, false
	}
	act, err := action(dto.Action)
	if err != nil {
		d.logger.Debug("dropping target rule", slog.String("error", err.Error()))
		return model.TargetRule{}, false
	}
	return model.TargetRule{Target: target, Action: act}, true
}

// target keeps only the conditions supported by the targeting context.
// A target left with no conditions is dropped.
func (d *decoder) target(dto targetDTO, targeting model.TargetingType) (model.Target, bool) {
	var conditions []model.Condition
	for _, c := range dto.Conditions {
		if cond, ok := d.condition(c, targeting); ok {
			conditions = append(conditions, cond)
		}
	}
	if len(conditions) == 0 {
		return model.Target{}, false
	}
	return model.Target{Conditions: conditions}, true
}

func (d *decoder) condition(dto conditionDTO, targeting model.TargetingType) (model.Condition, bool) {
	keyType, err := model.ParseTargetKeyType(dto.Key.Type)
	if err != nil {
		d.logger.Debug("dropping condition", slog.String("error", err.Error()))
		return model.Condition{}, false
	}
	if !targeting.Supports(keyType) {
		return model.Condition{}, false
	}

	matchType, err := model.ParseMatchType(dto.Match.Type)
	if err != nil {
		d.logger.Debug("dropping condition", slog.String("error", err.Error()))
		return model.Condition{}, false
	}
	operator, err := model.ParseOperator(dto.Match.Operator)
	if err != nil {
		d.logger.Debug("dropping condition", slog.String("error", err.Error()))
		return model.Condition{}, false
	}
	valueType, err := model.ParseValueType(dto.Match.ValueType)
	if err != nil {
		d.logger.Debug("dropping condition", slog.String("error", err.Error()))
		return model.Condition{}, false
	}

	return model.Condition{
		Key: model.TargetKey{Type: keyType, Name: dto.Key.Name},
		Match: model.TargetMatch{
			Type:      matchType,
			Operator:  operator,
			ValueType: valueType,
			Values:    dto.Match.Values,
		},
	}, true
}

func bucket(dto bucketDTO) *model.Bucket {
	b := &model.Bucket{ID: dto.ID, Seed: dto.Seed, SlotSize: dto.SlotSize}
	for _, s := range dto.Slots {
		b.Slots = append(b.Slots, model.Slot{
			StartInclusive: s.StartInclusive,
			EndExclusive:   s.EndExclusive,
			VariationID:    s.VariationID,
		})
	}
	return b
}

func (d *decoder) segment(dto segmentDTO) *model.Segment {
	t, err := model.ParseSegmentType(dto.Type)
	if err != nil {
		d.logger.Warn("skipping segment with unsupported type",
			slog.String("segment_key", dto.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	seg := &model.Segment{ID: dto.ID, Key: dto.Key, Type: t}
	for _, td := range dto.Targets {
		if target, ok := d.target(td, model.TargetingSegment); ok {
			seg.Targets = append(seg.Targets, target)
		}
	}
	return seg
}

func container(dto containerDTO) *model.Container {
	c := &model.Container{ID: dto.ID, BucketID: dto.BucketID}
	for _, g := range dto.Groups {
		c.Groups = append(c.Groups, model.ContainerGroup{ID: g.ID, Experiments: g.Experiments})
	}
	return c
}

func parameterConfiguration(dto parameterConfigurationDTO) *model.ParameterConfiguration {
	p := &model.ParameterConfiguration{ID: dto.ID, Parameters: make(map[string]any, len(dto.Parameters))}
	for _, kv := range dto.Parameters {
		p.Parameters[kv.Key] = kv.Value
	}
	return p
}

func (d *decoder) remoteConfigParameter(dto remoteConfigParameterDTO) *model.RemoteConfigParameter {
	t, err := model.ParseValueType(dto.Type)
	if err != nil {
		d.logger.Warn("skipping remote config parameter with unsupported type",
			slog.String("parameter_key", dto.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	p := &model.RemoteConfigParameter{
		ID:             dto.ID,
		Key:            dto.Key,
		Type:           t,
		IdentifierType: dto.IdentifierType,
		DefaultValue:   model.RemoteConfigValue{ID: dto.DefaultValue.ID, RawValue: dto.DefaultValue.Value},
	}
	for _, r := range dto.TargetRules {
		target, ok := d.target(r.Target, model.TargetingProperty)
		if !ok {
			continue
		}
		p.TargetRules = append(p.TargetRules, model.RemoteConfigTargetRule{
			Key:      r.Key,
			Name:     r.Name,
			Target:   target,
			BucketID: r.BucketID,
			Value:    model.RemoteConfigValue{ID: r.Value.ID, RawValue: r.Value.Value},
		})
	}
	return p
}
