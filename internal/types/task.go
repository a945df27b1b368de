// Package types holds the data model shared across the routing, generation,
// validation, correction, and outcome-tracking packages: TaskContext,
// GenerationPlan, Candidate, ValidationScore, CandidatePool, and their
// persisted counterparts.
package types

import "time"

// TaskType classifies what kind of work a query represents.
type TaskType string

const (
	TaskCommand  TaskType = "command"
	TaskCodeGen  TaskType = "code_gen"
	TaskBugFix   TaskType = "bug_fix"
	TaskRefactor TaskType = "refactor"
	TaskExplain  TaskType = "explain"
	TaskSearch   TaskType = "search"
	TaskInfra    TaskType = "infra"
	TaskGeneral  TaskType = "general"
)

// RiskLevel is the safety classification assigned to a task.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Complexity is a 5-level label used to pick generation breadth.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityCritical Complexity = "critical"
)

// ValidationProfile names a bundle of validation settings (rule set, fail_fast, parallel).
type ValidationProfile string

const (
	ProfileFastDev  ValidationProfile = "fast_dev"
	ProfileBalanced ValidationProfile = "balanced"
	ProfileSafeFix  ValidationProfile = "safe_fix"
	ProfileCritical ValidationProfile = "critical"
)

// TaskContext is immutable after classification. It is constructed once per
// run by TaskAbstraction (and possibly adjusted once by ProfileAdapter) and
// discarded after the outcome is recorded.
type TaskContext struct {
	Query string

	TaskType          TaskType
	RiskLevel         RiskLevel
	Complexity        Complexity
	ValidationProfile ValidationProfile

	// Optional classifier fields.
	DUCSCode          int
	DUCSConfidence    float64
	SWECASCode        int
	HasSWECAS         bool
	SWECASConfidence  float64
	FixHint           string

	// Derived flags.
	IsCodeGeneration   bool
	IsCommand          bool
	UseMultiCandidate  bool
	UseDeepMode        bool
	FailFast           bool
	ParallelValidation bool

	CreatedAt time.Time
}

// SWECASInRange reports whether the task carries a SWECAS code within [lo, hi).
func (tc *TaskContext) SWECASInRange(lo, hi int) bool {
	return tc.HasSWECAS && tc.SWECASCode >= lo && tc.SWECASCode < hi
}

// GenerationPlan is produced by AdaptiveStrategy and consumed by CandidateGenerator.
type GenerationPlan struct {
	NCandidates   int
	Temperatures  []float64
	Complexity    Complexity
	EstimatedTime time.Duration
	Reasoning     string
	Confidence    float64
}

// CandidateStatus is the lifecycle state of a Candidate.
type CandidateStatus string

const (
	CandidatePending    CandidateStatus = "pending"
	CandidateGenerating CandidateStatus = "generating"
	CandidateGenerated  CandidateStatus = "generated"
	CandidateValidated  CandidateStatus = "validated"
	CandidateFailed     CandidateStatus = "failed"
	CandidateRejected   CandidateStatus = "rejected"
)

// Severity classifies a ValidationScore's importance.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationScore is the result of a single rule check against one candidate.
type ValidationScore struct {
	ValidatorName string
	Passed        bool
	Score         float64
	Errors        []string
	Warnings      []string
	Weight        float64
	Severity      Severity
}

// DeepModeResult is attached to a Candidate when deep-mode escalation ran.
type DeepModeResult struct {
	Tier       string // "fast" | "deep"
	Escalated  bool
	Reason     string
}

// Candidate is one attempt at code generation for a single task at a
// specific temperature.
type Candidate struct {
	ID       string
	TaskID   string
	Code     string
	Temperature float64
	Seed     int64
	Model    string
	Status   CandidateStatus

	ValidationScores []ValidationScore
	TotalScore       float64

	GenerationTime time.Duration
	ValidationTime time.Duration

	DeepMode *DeepModeResult
}

// CandidatePool is the set of candidates produced for one task.
type CandidatePool struct {
	TaskID     string
	Candidates []*Candidate
	Best       *Candidate
	AllPassed  bool
}
