// Package agent wires every component package into the end-to-end
// pipeline: query modification, routing, task abstraction, adaptive
// strategy, profile adaptation, candidate generation (with optional
// deep-mode escalation), validation, self-correction, and outcome
// tracking. CoreServices is the long-lived handle constructed once at
// startup and shared across requests; Process is the per-query entry
// point.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qwencode/internal/config"
	"qwencode/internal/correction"
	"qwencode/internal/embedding"
	"qwencode/internal/generation"
	"qwencode/internal/logging"
	"qwencode/internal/memory"
	"qwencode/internal/osspatterns"
	"qwencode/internal/outcomes"
	"qwencode/internal/profile"
	"qwencode/internal/querymod"
	"qwencode/internal/router"
	"qwencode/internal/strategy"
	"qwencode/internal/task"
	"qwencode/internal/types"
	"qwencode/internal/validation"
)

// CoreServices owns every long-lived dependency: the outcome tracker's
// SQLite connection, the neural router's index, and the adaptive
// strategy's learned history. Build one with NewCoreServices at process
// startup and Close it once at shutdown.
type CoreServices struct {
	Config *config.Config

	QueryModifier *querymod.Engine
	Router        *router.HybridRouter
	Neural        *router.NeuralRouter
	Abstraction   *task.Abstraction
	Strategy      *strategy.AdaptiveStrategy
	Profile       *profile.Adapter
	Generator     *generation.Generator
	DeepMode      *generation.DeepModeEscalator
	Validators    *validation.ValidatorRegistry
	Pipeline      *validation.Pipeline
	Patterns      *osspatterns.Store
	Tracker       *outcomes.Tracker
}

// NewCoreServices builds every collaborator from cfg. client is the LLM
// client used for both fast-tier generation and (if deepClient is nil)
// deep-mode escalation; pass a distinct deepClient to use a stronger
// model for escalation only.
func NewCoreServices(cfg *config.Config, client, deepClient generation.LLMClient) (*CoreServices, error) {
	if deepClient == nil {
		deepClient = client
	}

	tracker, err := outcomes.NewTracker(cfg.Outcomes.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening outcome tracker: %w", err)
	}

	patterns := osspatterns.New()
	registry := validation.NewValidatorRegistry()
	validation.RegisterAllRules(registry, patterns)

	var neural *router.NeuralRouter
	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		logging.RouterWarn("embedding engine unavailable, neural routing tier disabled: %v", err)
	} else {
		neural = router.NewNeuralRouter(engine, 5, cfg.Adaptive.HistoryPath+".router")
		if err := neural.Load(context.Background()); err != nil {
			logging.RouterWarn("neural router index not loaded: %v", err)
		}
	}

	pattern := router.NewPatternMatcher()
	hybrid := router.NewHybridRouter(pattern, neural, nil, cfg.Router.MinConfidence)

	return &CoreServices{
		Config:        cfg,
		QueryModifier: querymod.New(cfg.QueryModifier),
		Router:        hybrid,
		Neural:        neural,
		Abstraction:   task.NewAbstraction(),
		Strategy:      strategy.New(cfg.Adaptive.HistoryPath, true, cfg.Adaptive.CriticalShare),
		Profile:       profile.NewAdapter(tracker),
		Generator:     generation.NewGenerator(client, 3, 60*time.Second),
		DeepMode:      generation.NewDeepModeEscalator(deepClient, cfg.DeepMode.ConfidenceThreshold, cfg.DeepMode.Model),
		Validators:    registry,
		Pipeline:      validation.NewPipeline(registry),
		Patterns:      patterns,
		Tracker:       tracker,
	}, nil
}

// WatchConfig starts hot-reloading the config from path on every save,
// without restarting the process: each reload replaces s.Config and
// rebuilds the query modifier. The HybridRouter keeps the MinConfidence
// it was built with. The
// returned *config.Watcher must be stopped by the caller (via its Stop
// method) when services is closed.
func (s *CoreServices) WatchConfig(path string) (*config.Watcher, error) {
	w, err := config.NewWatcher(path, func(c *config.Config) {
		s.Config = c
		s.QueryModifier = querymod.New(c.QueryModifier)
		logging.Get(logging.CategoryBoot).Info("config reloaded from %s", path)
	})
	if err != nil {
		return nil, err
	}
	w.Start()
	return w, nil
}

// Close releases every resource CoreServices holds (currently the
// outcome tracker's database connection).
func (s *CoreServices) Close() error {
	if s.Tracker != nil {
		return s.Tracker.Close()
	}
	return nil
}

// Result is everything Process produced for one query, returned so a CLI
// or higher-level caller can render it and so its fields can be folded
// into the persisted OutcomeRecord.
type Result struct {
	Query            string
	ModifiedQuery    string
	AppliedModifiers []string

	RouterMatch  router.Match
	ToolCommand  bool
	TaskContext  *types.TaskContext
	Plan         types.GenerationPlan
	Pool         *types.CandidatePool
	Best         *types.Candidate
	Correction   *correction.Result
	Memory       *memory.WorkingMemory
	ProfileOverridden bool

	GenerationTime time.Duration
	ValidationTime time.Duration
	TotalTime      time.Duration
}

// Process runs one query through the full pipeline described by the
// agent's data-flow contract: QueryModifier rewrites surface text, then
// HybridRouter classifies it; a command-type match returns immediately
// without generation. Otherwise TaskAbstraction, AdaptiveStrategy, and
// ProfileAdapter produce a TaskContext and GenerationPlan, the
// CandidateGenerator (with DeepModeEscalator when requested) produces
// candidates, ValidationPipeline scores them, and SelfCorrectionLoop
// runs when the best candidate falls short. The final outcome is always
// recorded, even on a partial failure, so the history keeps learning.
func (s *CoreServices) Process(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryBoot, "process")
	defer timer.Stop()

	modified, applied := s.QueryModifier.Process(query)
	res := &Result{Query: query, ModifiedQuery: modified, AppliedModifiers: applied, Memory: memory.New(query)}

	match := s.Router.Route(ctx, modified)
	res.RouterMatch = match
	if match.TaskType == types.TaskCommand {
		res.ToolCommand = true
		res.TotalTime = time.Since(start)
		return res, nil
	}

	complexity := s.Strategy.ClassifyComplexity(modified, 0)
	tc := s.Abstraction.Classify(task.ClassifyInput{
		Query:      modified,
		IsCodeGen:  match.TaskType == types.TaskCodeGen || match.TaskType == types.TaskInfra,
		Complexity: complexity,
	})

	plan := s.Strategy.GetStrategy(modified, tc.SWECASCode)
	res.Plan = plan

	if s.Profile != nil {
		before := tc.ValidationProfile
		*tc = s.Profile.Apply(ctx, *tc)
		res.ProfileOverridden = tc.ValidationProfile != before
	}
	res.TaskContext = tc

	taskID := uuid.NewString()
	genStart := time.Now()
	pool, err := s.Generator.Generate(ctx, taskID, modified, s.ossContextSnippet(modified), plan)
	if err != nil {
		s.recordFailure(ctx, tc, time.Since(start))
		return res, err
	}
	res.GenerationTime = time.Since(genStart)

	if tc.UseDeepMode {
		for _, c := range pool.Candidates {
			dmr, err := s.DeepMode.MaybeEscalate(ctx, tc, c, preliminaryConfidence(c))
			if err != nil {
				logging.GenerationWarn("deep mode escalation failed for candidate %s: %v", c.ID, err)
				continue
			}
			c.DeepMode = dmr
		}
	}

	contentType := detectPoolContentType(pool)
	ruleNames, failFast, parallel := task.ValidationConfigForContent(contentType, tc.ValidationProfile)
	weights := task.ScoringWeightsFor(tc.ValidationProfile)
	vctx := validation.ValidationContext{TaskContext: tc, ContentType: contentType}

	valStart := time.Now()
	for _, c := range pool.Candidates {
		scores := s.Pipeline.Run(ctx, c.Code, vctx, ruleNames, failFast, parallel, s.Config.Validation.PerRuleTimeout)
		c.ValidationScores = scores
		c.TotalScore = validation.Score(scores, weights)
		c.Status = types.CandidateValidated
	}
	res.ValidationTime = time.Since(valStart)

	pool.Best = pickBest(pool.Candidates)
	pool.AllPassed = pool.Best != nil && allPassed(pool.Best)
	res.Pool = pool
	res.Best = pool.Best

	scoreFloor := s.Config.SelfCorrection.MinScoreForCorrection
	if pool.Best != nil && !pool.AllPassed && pool.Best.TotalScore >= scoreFloor {
		loop := correction.New(s.Generator, s.Pipeline, s.Config.SelfCorrection.MaxIterations, scoreFloor, s.Config.Validation.PerRuleTimeout)
		corrResult, cErr := loop.Run(ctx, taskID, tc, plan, "", contentType)
		if cErr != nil {
			logging.CorrectionDebug("self-correction loop failed: %v", cErr)
		} else {
			res.Correction = corrResult
			res.Best = corrResult.BestCandidate
			pool.AllPassed = corrResult.BestCandidate != nil && allPassed(corrResult.BestCandidate)
		}
	}

	res.TotalTime = time.Since(start)

	if err := s.Strategy.RecordOutcome(tc.Complexity, bestScore(res.Best), pool.AllPassed, res.TotalTime, modified); err != nil {
		logging.CorrectionDebug("recording adaptive outcome failed: %v", err)
	}
	s.record(ctx, tc, res)

	return res, nil
}

// preliminaryConfidence derives a generation-metadata confidence signal
// for deep-mode escalation from the candidate's code length alone: 0 for
// empty code, 0.3 for code under 40 bytes, and 0.7 otherwise. This is
// never derived from a validation score, per the
// escalator's contract.
func preliminaryConfidence(c *types.Candidate) float64 {
	if c == nil || c.Code == "" {
		return 0
	}
	if len(c.Code) < 40 {
		return 0.3
	}
	return 0.7
}

// detectPoolContentType picks the first non-empty candidate's code as a
// representative sample and runs signature-based content-type detection
// on it. Every candidate in a pool answers the same generation request,
// so they share one content type; detecting once avoids re-running the
// signature checks per candidate.
func detectPoolContentType(pool *types.CandidatePool) string {
	for _, c := range pool.Candidates {
		if c != nil && c.Code != "" {
			return validation.DetectContentType(c.Code)
		}
	}
	return "python"
}

// ossContextSnippet looks up a known-good shape for the query's detected
// framework and formats it as system-prompt guidance, when the operator
// has OSS context enabled and a pattern store is wired in. Returns "" to
// leave the generation request's system prompt untouched when nothing
// applies.
func (s *CoreServices) ossContextSnippet(query string) string {
	if s.Config == nil || !s.Config.EnableOSSContext || s.Patterns == nil {
		return ""
	}
	framework := validation.DetectFramework(query)
	snippet, found := s.Patterns.Lookup(framework, "idiomatic_shape")
	if !found {
		return ""
	}
	return fmt.Sprintf("Follow the idiomatic %s pattern used by established projects:\n%s", framework, snippet)
}

func pickBest(candidates []*types.Candidate) *types.Candidate {
	var best *types.Candidate
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || c.TotalScore > best.TotalScore {
			best = c
		}
	}
	return best
}

func allPassed(c *types.Candidate) bool {
	for _, score := range c.ValidationScores {
		if !score.Passed {
			return false
		}
	}
	return true
}

func bestScore(c *types.Candidate) float64 {
	if c == nil {
		return 0
	}
	return c.TotalScore
}

func (s *CoreServices) recordFailure(ctx context.Context, tc *types.TaskContext, elapsed time.Duration) {
	if s.Tracker == nil {
		return
	}
	rec := &types.OutcomeRecord{
		Timestamp:         time.Now(),
		QueryHash:         tc.Query,
		TaskType:          tc.TaskType,
		RiskLevel:         tc.RiskLevel,
		ValidationProfile: tc.ValidationProfile,
		Complexity:        tc.Complexity,
		TotalTime:         elapsed,
		SWECASCode:        tc.SWECASCode,
		HasSWECAS:         tc.HasSWECAS,
	}
	if err := s.Tracker.Record(ctx, rec); err != nil {
		logging.OutcomesError("recording failed-generation outcome: %v", err)
	}
}

func (s *CoreServices) record(ctx context.Context, tc *types.TaskContext, res *Result) {
	if s.Tracker == nil || res.Best == nil {
		return
	}
	var rulesRun, rulesPassed, rulesFailed []string
	for _, score := range res.Best.ValidationScores {
		rulesRun = append(rulesRun, score.ValidatorName)
		if score.Passed {
			rulesPassed = append(rulesPassed, score.ValidatorName)
		} else {
			rulesFailed = append(rulesFailed, score.ValidatorName)
		}
	}

	rec := &types.OutcomeRecord{
		Timestamp:         time.Now(),
		QueryHash:         tc.Query,
		TaskType:          tc.TaskType,
		RiskLevel:         tc.RiskLevel,
		ValidationProfile: tc.ValidationProfile,
		Complexity:        tc.Complexity,
		NCandidates:       len(res.Pool.Candidates),
		BestScore:         res.Best.TotalScore,
		AllPassed:         res.Pool.AllPassed,
		GenerationTime:    res.GenerationTime,
		ValidationTime:    res.ValidationTime,
		TotalTime:         res.TotalTime,
		RulesRun:          rulesRun,
		RulesPassed:       rulesPassed,
		RulesFailed:       rulesFailed,
		NRulesRun:         len(rulesRun),
		NRulesPassed:      len(rulesPassed),
		NRulesFailed:      len(rulesFailed),
		SWECASCode:        tc.SWECASCode,
		HasSWECAS:         tc.HasSWECAS,
	}
	if err := s.Tracker.Record(ctx, rec); err != nil {
		logging.OutcomesError("recording outcome: %v", err)
	}
}
