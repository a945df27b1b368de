package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"qwencode/internal/types"
)

func TestClassify_CommandTakesPriority(t *testing.T) {
	a := NewAbstraction()
	ctx := a.Classify(ClassifyInput{Query: "fix the bug", IsCommand: true, IsCodeGen: true})
	assert.Equal(t, types.TaskCommand, ctx.TaskType)
	assert.Equal(t, types.RiskLow, ctx.RiskLevel)
	assert.Equal(t, types.ProfileFastDev, ctx.ValidationProfile)
}

func TestClassify_SecuritySWECASForcesCritical(t *testing.T) {
	a := NewAbstraction()
	ctx := a.Classify(ClassifyInput{
		Query:      "fix the auth bypass",
		SWECAS:     SWECASResult{Code: 512, Confidence: 0.9},
		Complexity: types.ComplexityModerate,
	})
	assert.Equal(t, types.RiskCritical, ctx.RiskLevel)
	assert.Equal(t, types.ProfileCritical, ctx.ValidationProfile)
	assert.True(t, ctx.HasSWECAS)
}

func TestClassify_BugFixWithSWECASIsHighRisk(t *testing.T) {
	a := NewAbstraction()
	ctx := a.Classify(ClassifyInput{
		Query:      "fix this crash",
		SWECAS:     SWECASResult{Code: 120, Confidence: 0.8},
		Complexity: types.ComplexityModerate,
	})
	assert.Equal(t, types.TaskBugFix, ctx.TaskType)
	assert.Equal(t, types.RiskHigh, ctx.RiskLevel)
	assert.Equal(t, types.ProfileSafeFix, ctx.ValidationProfile)
}

func TestClassify_TrivialCodeGenIsLowRiskFastDev(t *testing.T) {
	a := NewAbstraction()
	ctx := a.Classify(ClassifyInput{
		Query:      "write a getter",
		IsCodeGen:  true,
		Complexity: types.ComplexityTrivial,
	})
	assert.Equal(t, types.TaskCodeGen, ctx.TaskType)
	assert.Equal(t, types.RiskLow, ctx.RiskLevel)
	assert.True(t, ctx.UseMultiCandidate)
}

func TestClassify_InfrastructureKeyword(t *testing.T) {
	a := NewAbstraction()
	ctx := a.Classify(ClassifyInput{Query: "write a kubernetes deployment yaml", IsCodeGen: true})
	assert.Equal(t, types.TaskCodeGen, ctx.TaskType, "is_codegen flag wins over keyword detection")

	ctx2 := a.Classify(ClassifyInput{Query: "set up a kubernetes deployment"})
	assert.Equal(t, types.TaskInfra, ctx2.TaskType)
}

func TestValidationConfigFor_Profiles(t *testing.T) {
	names, failFast, parallel := ValidationConfigFor(types.ProfileCritical)
	assert.Len(t, names, 8)
	assert.True(t, failFast)
	assert.False(t, parallel, "critical profile runs rules sequentially")

	names, failFast, parallel = ValidationConfigFor(types.ProfileFastDev)
	assert.Equal(t, []string{"ast_syntax"}, names)
	assert.False(t, failFast)
	assert.True(t, parallel)
}

func TestValidationConfigForContent_DevOpsOverride(t *testing.T) {
	names, _, _ := ValidationConfigForContent("kubernetes", types.ProfileBalanced)
	assert.Equal(t, []string{"yamllint", "kubeval", "kube-linter"}, names)

	names, _, _ = ValidationConfigForContent("python", types.ProfileBalanced)
	assert.Contains(t, names, "ast_syntax")
}

func TestScoringWeightsFor_CriticalEmphasizesSecurity(t *testing.T) {
	weights := ScoringWeightsFor(types.ProfileCritical)
	assert.Greater(t, weights["static_bandit"], weights["complexity"])
}
