package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

func TestContext_Evaluations(t *testing.T) {
	t.Parallel()

	// Arrange
	ectx := NewContext()
	first := &ExperimentEvaluation{Experiment: &model.Experiment{ID: 1}}
	second := &RemoteConfigEvaluation{}
	ectx.Add(first)

	// Act
	snapshot := ectx.Evaluations()
	ectx.Add(second)

	// Assert
	assert.Len(t, snapshot, 1, "earlier copies must not see later additions")
	assert.Equal(t, []Evaluation{first, second}, ectx.Evaluations())
	assert.Same(t, first, ectx.ExperimentEvaluation(1))
	assert.Nil(t, ectx.ExperimentEvaluation(2))
}

func TestExperimentEvaluation(t *testing.T) {
	t.Parallel()

	pcID := int64(500)
	ws := workspace.New(workspace.Contents{
		ParameterConfigurations: []*model.ParameterConfiguration{{ID: 500, Parameters: map[string]any{"color": "red"}}},
	})
	exp := &model.Experiment{
		ID: 1,
		Variations: []model.Variation{
			{ID: 11, Key: "A"},
			{ID: 12, Key: "B", ParameterConfigurationID: &pcID},
		},
	}

	t.Run("Should attach the parameter configuration of the variation", func(t *testing.T) {
		req := NewExperimentRequest(ws, model.User{}, exp, "A")

		got := NewExperimentEvaluation(req, NewContext(), exp.VariationByKey("B"), model.ReasonTrafficAllocated)

		require.NotNil(t, got.VariationID)
		assert.Equal(t, int64(12), *got.VariationID)
		assert.Equal(t, "B", got.VariationKey)
		assert.Equal(t, "red", got.ParameterConfig().GetString("color", ""))
	})

	t.Run("Should resolve the default key to a known variation", func(t *testing.T) {
		req := NewExperimentRequest(ws, model.User{}, exp, "A")

		got := DefaultExperimentEvaluation(req, NewContext(), model.ReasonTrafficNotAllocated)

		require.NotNil(t, got.VariationID)
		assert.Equal(t, int64(11), *got.VariationID)
		assert.Equal(t, model.ReasonTrafficNotAllocated, got.Reason)
	})

	t.Run("Should keep an unknown default key without a variation id", func(t *testing.T) {
		req := NewExperimentRequest(ws, model.User{}, exp, "Z")

		got := DefaultExperimentEvaluation(req, NewContext(), model.ReasonExperimentDraft)

		assert.Nil(t, got.VariationID)
		assert.Equal(t, "Z", got.VariationKey)
		assert.Nil(t, got.Config)
		assert.Empty(t, got.ParameterConfig().Parameters())
	})

	t.Run("Should copy on With", func(t *testing.T) {
		req := NewExperimentRequest(ws, model.User{}, exp, "A")
		orig := DefaultExperimentEvaluation(req, NewContext(), model.ReasonTrafficAllocated)

		rewritten := orig.With(model.ReasonTrafficAllocatedByTargeting)

		assert.Equal(t, model.ReasonTrafficAllocated, orig.Reason)
		assert.Equal(t, model.ReasonTrafficAllocatedByTargeting, rewritten.Reason)
		assert.Equal(t, orig.VariationKey, rewritten.VariationKey)
	})

	t.Run("Should capture nested evaluations at creation time", func(t *testing.T) {
		ectx := NewContext()
		nested := &ExperimentEvaluation{Experiment: &model.Experiment{ID: 9}}
		ectx.Add(nested)
		req := NewExperimentRequest(ws, model.User{}, exp, "A")

		got := DefaultExperimentEvaluation(req, ectx, model.ReasonTrafficAllocated)
		ectx.Add(&ExperimentEvaluation{Experiment: &model.Experiment{ID: 10}})

		assert.Equal(t, []Evaluation{nested}, got.Targets())
	})
}

func TestRemoteConfigEvaluation(t *testing.T) {
	t.Parallel()

	req := NewRemoteConfigRequest(nil, model.User{}, &model.RemoteConfigParameter{ID: 3}, model.ValueTypeString, "dft")
	props := map[string]any{"requestValueType": "STRING"}

	got := DefaultRemoteConfigEvaluation(req, NewContext(), model.ReasonTypeMismatch, props)

	assert.Nil(t, got.ValueID)
	assert.Equal(t, "dft", got.Value)
	assert.Equal(t, map[string]any{"requestValueType": "STRING", "returnValue": "dft"}, got.Properties)
	assert.NotContains(t, props, "returnValue", "the caller's map must not be modified")
	assert.Equal(t, Key{Kind: KindRemoteConfig, ID: 3}, req.Key())
}
