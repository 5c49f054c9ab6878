package model

// DecisionReason explains why an evaluation produced its outcome.
// The values are emitted verbatim in analytics events.
type DecisionReason string

const (
	ReasonSDKNotReady                    DecisionReason = "SDK_NOT_READY"
	ReasonException                      DecisionReason = "EXCEPTION"
	ReasonInvalidInput                   DecisionReason = "INVALID_INPUT"
	ReasonExperimentNotFound             DecisionReason = "EXPERIMENT_NOT_FOUND"
	ReasonExperimentDraft                DecisionReason = "EXPERIMENT_DRAFT"
	ReasonExperimentPaused               DecisionReason = "EXPERIMENT_PAUSED"
	ReasonExperimentCompleted            DecisionReason = "EXPERIMENT_COMPLETED"
	ReasonOverridden                     DecisionReason = "OVERRIDDEN"
	ReasonTrafficNotAllocated            DecisionReason = "TRAFFIC_NOT_ALLOCATED"
	ReasonTrafficAllocated               DecisionReason = "TRAFFIC_ALLOCATED"
	ReasonTrafficAllocatedByTargeting    DecisionReason = "TRAFFIC_ALLOCATED_BY_TARGETING"
	ReasonNotInMutualExclusionExperiment DecisionReason = "NOT_IN_MUTUAL_EXCLUSION_EXPERIMENT"
	ReasonIdentifierNotFound             DecisionReason = "IDENTIFIER_NOT_FOUND"
	ReasonVariationDropped               DecisionReason = "VARIATION_DROPPED"
	ReasonNotInExperimentTarget          DecisionReason = "NOT_IN_EXPERIMENT_TARGET"
	ReasonFeatureFlagNotFound            DecisionReason = "FEATURE_FLAG_NOT_FOUND"
	ReasonFeatureFlagInactive            DecisionReason = "FEATURE_FLAG_INACTIVE"
	ReasonIndividualTargetMatch          DecisionReason = "INDIVIDUAL_TARGET_MATCH"
	ReasonTargetRuleMatch                DecisionReason = "TARGET_RULE_MATCH"
	ReasonDefaultRule                    DecisionReason = "DEFAULT_RULE"
	ReasonRemoteConfigParameterNotFound  DecisionReason = "REMOTE_CONFIG_PARAMETER_NOT_FOUND"
	ReasonTypeMismatch                   DecisionReason = "TYPE_MISMATCH"
)

func (r DecisionReason) String() string { return string(r) }
