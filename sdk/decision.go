package sdk

import (
	"github.com/rafaeljc/heimdall-sdk/internal/evaluation"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// DecisionReason explains a decision.
type DecisionReason = model.DecisionReason

// ParameterConfig is the typed view over a variation's parameters.
type ParameterConfig = evaluation.ParameterConfig

const (
	ReasonSDKNotReady                    = model.ReasonSDKNotReady
	ReasonException                      = model.ReasonException
	ReasonInvalidInput                   = model.ReasonInvalidInput
	ReasonExperimentNotFound             = model.ReasonExperimentNotFound
	ReasonExperimentDraft                = model.ReasonExperimentDraft
	ReasonExperimentPaused               = model.ReasonExperimentPaused
	ReasonExperimentCompleted            = model.ReasonExperimentCompleted
	ReasonOverridden                     = model.ReasonOverridden
	ReasonTrafficNotAllocated            = model.ReasonTrafficNotAllocated
	ReasonTrafficAllocated               = model.ReasonTrafficAllocated
	ReasonTrafficAllocatedByTargeting    = model.ReasonTrafficAllocatedByTargeting
	ReasonNotInMutualExclusionExperiment = model.ReasonNotInMutualExclusionExperiment
	ReasonIdentifierNotFound             = model.ReasonIdentifierNotFound
	ReasonVariationDropped               = model.ReasonVariationDropped
	ReasonNotInExperimentTarget          = model.ReasonNotInExperimentTarget
	ReasonFeatureFlagNotFound            = model.ReasonFeatureFlagNotFound
	ReasonFeatureFlagInactive            = model.ReasonFeatureFlagInactive
	ReasonIndividualTargetMatch          = model.ReasonIndividualTargetMatch
	ReasonTargetRuleMatch                = model.ReasonTargetRuleMatch
	ReasonDefaultRule                    = model.ReasonDefaultRule
	ReasonRemoteConfigParameterNotFound  = model.ReasonRemoteConfigParameterNotFound
	ReasonTypeMismatch                   = model.ReasonTypeMismatch
)

// Decision is the outcome of an A/B test.
type Decision struct {
	Variation string
	Reason    DecisionReason
	Config    ParameterConfig
}

// FeatureFlagDecision is the outcome of a feature flag.
type FeatureFlagDecision struct {
	IsOn   bool
	Reason DecisionReason
	Config ParameterConfig
}

// RemoteConfigDecision is the outcome of a remote-config parameter.
type RemoteConfigDecision struct {
	Value  any
	Reason DecisionReason
}

// Event is a custom event sent with Track.
type Event struct {
	Key        string
	Value      *float64
	Properties map[string]any
}
