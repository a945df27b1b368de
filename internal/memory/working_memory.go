// Package memory implements WorkingMemory, the capped scratchpad that
// keeps a multi-iteration tool loop coherent: after 3-4 iterations a
// small model loses track of the original goal and what it has already
// discovered, so WorkingMemory auto-extracts facts from tool results and
// produces a compact, budgeted prompt section ahead of every subsequent
// LLM call. Extraction never reads LLM output, only tool results, so the
// same sequence of calls always produces the same memory state.
package memory

import (
	"strconv"
	"strings"
)

const (
	maxFacts     = 15
	maxDecisions = 5
	maxToolLog   = 10
	maxPlanSteps = 10
)

// StepStatus is a plan step's lifecycle state.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepActive  StepStatus = "active"
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
)

// PlanStep is one step of the task plan.
type PlanStep struct {
	Description string
	Status      StepStatus
}

// ToolRecord is a compressed record of one tool invocation.
type ToolRecord struct {
	Tool    string
	Summary string
	Success bool
}

type fact struct {
	key   string
	value string
}

// WorkingMemory is a structured scratchpad persisting across tool-loop
// iterations. It is not safe for concurrent use from multiple goroutines;
// callers own serialization of the loop that drives it.
type WorkingMemory struct {
	Goal string
	Plan []PlanStep

	facts     []fact // ordered oldest->newest, capacity maxFacts, LRU on insert
	decisions []string
	toolLog   []ToolRecord

	currentStep int
	iteration   int
}

// New builds a WorkingMemory for the given goal.
func New(goal string) *WorkingMemory {
	return &WorkingMemory{Goal: goal}
}

// SetPlan replaces the plan with the given step descriptions, capped at
// maxPlanSteps, and activates the first step.
func (m *WorkingMemory) SetPlan(steps []string) {
	if len(steps) > maxPlanSteps {
		steps = steps[:maxPlanSteps]
	}
	m.Plan = make([]PlanStep, len(steps))
	for i, s := range steps {
		m.Plan[i] = PlanStep{Description: s, Status: StepPending}
	}
	if len(m.Plan) > 0 {
		m.Plan[0].Status = StepActive
	}
	m.currentStep = 0
}

// AdvanceStep marks the current step done and activates the next one.
func (m *WorkingMemory) AdvanceStep() {
	if len(m.Plan) == 0 {
		return
	}
	if m.currentStep < len(m.Plan) {
		m.Plan[m.currentStep].Status = StepDone
	}
	m.currentStep++
	if m.currentStep < len(m.Plan) {
		m.Plan[m.currentStep].Status = StepActive
	}
}

// SkipStep marks the current step skipped and activates the next one.
func (m *WorkingMemory) SkipStep() {
	if len(m.Plan) == 0 {
		return
	}
	if m.currentStep < len(m.Plan) {
		m.Plan[m.currentStep].Status = StepSkipped
	}
	m.currentStep++
	if m.currentStep < len(m.Plan) {
		m.Plan[m.currentStep].Status = StepActive
	}
}

// CurrentStepDescription returns the active step's description, or "".
func (m *WorkingMemory) CurrentStepDescription() string {
	if m.currentStep < len(m.Plan) {
		return m.Plan[m.currentStep].Description
	}
	return ""
}

// PlanProgress returns e.g. "2/5 steps done".
func (m *WorkingMemory) PlanProgress() string {
	if len(m.Plan) == 0 {
		return ""
	}
	done := 0
	for _, s := range m.Plan {
		if s.Status == StepDone {
			done++
		}
	}
	return strconv.Itoa(done) + "/" + strconv.Itoa(len(m.Plan)) + " steps done"
}

// AddFact stores a discovered fact, overwriting and moving to
// most-recent if key already exists, evicting the oldest fact once over
// capacity.
func (m *WorkingMemory) AddFact(key, value string) {
	for i, f := range m.facts {
		if f.key == key {
			m.facts = append(m.facts[:i], m.facts[i+1:]...)
			break
		}
	}
	m.facts = append(m.facts, fact{key: key, value: value})
	for len(m.facts) > maxFacts {
		m.facts = m.facts[1:]
	}
}

// GetFact returns a previously stored fact's value, if present.
func (m *WorkingMemory) GetFact(key string) (string, bool) {
	for _, f := range m.facts {
		if f.key == key {
			return f.value, true
		}
	}
	return "", false
}

// RecordDecision appends a decision, capped at maxDecisions (oldest
// dropped first).
func (m *WorkingMemory) RecordDecision(decision string) {
	m.decisions = append(m.decisions, decision)
	if len(m.decisions) > maxDecisions {
		m.decisions = m.decisions[len(m.decisions)-maxDecisions:]
	}
}

// ToolResult is the generic shape a tool invocation reports, deliberately
// loose (map-typed fields) to match the variety of real tool outputs
// without a type per tool.
type ToolResult struct {
	Success  bool
	Error    string
	Fields   map[string]any
}

// UpdateFromToolResult auto-extracts facts from a tool result and
// appends to the tool log. This is the main integration point, called
// after every tool execution.
func (m *WorkingMemory) UpdateFromToolResult(toolName string, params map[string]any, result ToolResult) {
	m.iteration++
	summary := m.extractSummary(toolName, params, result)
	m.toolLog = append(m.toolLog, ToolRecord{Tool: toolName, Summary: summary, Success: result.Success})
	if len(m.toolLog) > maxToolLog {
		m.toolLog = m.toolLog[len(m.toolLog)-maxToolLog:]
	}

	if !result.Success {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		m.AddFact("error_"+strconv.Itoa(m.iteration), truncate(errMsg, 200))
		return
	}

	switch toolName {
	case "read":
		m.extractReadFacts(params, result)
	case "grep":
		m.extractGrepFacts(params, result)
	case "bash", "git":
		m.extractBashFacts(toolName, params, result)
	case "glob":
		m.extractGlobFacts(params, result)
	case "edit", "write":
		m.extractWriteFacts(toolName, params, result)
	case "ls":
		m.extractLsFacts(params, result)
	}
}

func (m *WorkingMemory) extractSummary(toolName string, params map[string]any, result ToolResult) string {
	status := "OK"
	if !result.Success {
		status = "FAIL"
	}

	switch toolName {
	case "read":
		path := stringParam(params, "file_path", "path")
		lines := fieldString(result.Fields, "total_lines")
		return "read(" + basename(path) + ") -> " + lines + " lines [" + status + "]"
	case "grep":
		pattern := stringParam(params, "pattern")
		matches := fieldLen(result.Fields, "matches")
		return "grep(" + pattern + ") -> " + strconv.Itoa(matches) + " matches [" + status + "]"
	case "bash", "git":
		cmd := truncate(stringParam(params, "command"), 40)
		return toolName + "(" + cmd + ") [" + status + "]"
	case "glob":
		pattern := stringParam(params, "pattern")
		files := fieldLen(result.Fields, "files")
		return "glob(" + pattern + ") -> " + strconv.Itoa(files) + " files [" + status + "]"
	case "edit", "write":
		path := stringParam(params, "file_path", "path")
		return toolName + "(" + basename(path) + ") [" + status + "]"
	case "ls":
		path := stringParam(params, "path", "directory")
		items := fieldLen(result.Fields, "items")
		return "ls(" + basename(path) + ") -> " + strconv.Itoa(items) + " items [" + status + "]"
	default:
		return toolName + "() [" + status + "]"
	}
}

func (m *WorkingMemory) extractReadFacts(params map[string]any, result ToolResult) {
	path := stringParam(params, "file_path", "path")
	content := fieldString(result.Fields, "content")
	totalLines := fieldString(result.Fields, "total_lines")
	if totalLines == "" {
		totalLines = strconv.Itoa(strings.Count(content, "\n") + 1)
	}
	preview := strings.TrimSpace(strings.ReplaceAll(truncate(content, 300), "\n", " "))
	if preview != "" {
		m.AddFact("file:"+basename(path), totalLines+" lines. "+preview+"...")
	}
}

func (m *WorkingMemory) extractGrepFacts(params map[string]any, result ToolResult) {
	pattern := stringParam(params, "pattern")
	matches, _ := result.Fields["matches"].([]string)
	if len(matches) > 0 {
		sample := matches
		if len(sample) > 3 {
			sample = sample[:3]
		}
		m.AddFact("grep:"+truncate(pattern, 30), strconv.Itoa(len(matches))+" matches. First: "+strings.Join(sample, " | "))
	} else {
		m.AddFact("grep:"+truncate(pattern, 30), "no matches")
	}
}

func (m *WorkingMemory) extractBashFacts(toolName string, params map[string]any, result ToolResult) {
	cmd := stringParam(params, "command")
	stdout := fieldString(result.Fields, "stdout")
	stderr := fieldString(result.Fields, "stderr")
	exitCode := fieldString(result.Fields, "exit_code")
	output := stdout
	if output == "" {
		output = stderr
	}
	m.AddFact(toolName+":"+truncate(cmd, 25), "exit="+exitCode+". "+strings.TrimSpace(truncate(output, 200)))
}

func (m *WorkingMemory) extractGlobFacts(params map[string]any, result ToolResult) {
	pattern := stringParam(params, "pattern")
	files, _ := result.Fields["files"].([]string)
	names := make([]string, 0, len(files))
	for i, f := range files {
		if i >= 8 {
			break
		}
		names = append(names, basename(f))
	}
	m.AddFact("glob:"+truncate(pattern, 25), strconv.Itoa(len(files))+" files: "+strings.Join(names, ", "))
}

func (m *WorkingMemory) extractWriteFacts(toolName string, params map[string]any, result ToolResult) {
	path := stringParam(params, "file_path", "path")
	m.AddFact("modified:"+basename(path), toolName+" applied successfully")
}

func (m *WorkingMemory) extractLsFacts(params map[string]any, result ToolResult) {
	path := stringParam(params, "path", "directory")
	items, _ := result.Fields["items"].([]string)
	names := make([]string, 0, len(items))
	for i, it := range items {
		if i >= 8 {
			break
		}
		names = append(names, it)
	}
	m.AddFact("ls:"+basename(path), strconv.Itoa(len(items))+" items: "+strings.Join(names, ", "))
}

// Compact produces a structured, budgeted memory section for the LLM
// prompt. Deterministic: depends only on the accumulated state, never on
// LLM output.
func (m *WorkingMemory) Compact(maxChars int) string {
	var sections []string

	if m.Goal != "" {
		sections = append(sections, "GOAL: "+truncate(m.Goal, 200))
	}

	if len(m.Plan) > 0 {
		var lines []string
		for i, step := range m.Plan {
			icon := map[StepStatus]string{
				StepDone:    "done",
				StepActive:  ">>>",
				StepSkipped: "skip",
				StepPending: "...",
			}[step.Status]
			lines = append(lines, "  ["+icon+"] "+strconv.Itoa(i+1)+". "+truncate(step.Description, 60))
		}
		sections = append(sections, "PLAN:\n"+strings.Join(lines, "\n"))
	}

	if len(m.facts) > 0 {
		var lines []string
		for _, f := range m.facts {
			lines = append(lines, "  - "+f.key+": "+truncate(f.value, 120))
		}
		sections = append(sections, "FACTS:\n"+strings.Join(lines, "\n"))
	}

	if len(m.decisions) > 0 {
		var lines []string
		for _, d := range m.decisions {
			lines = append(lines, "  - "+truncate(d, 100))
		}
		sections = append(sections, "DECISIONS:\n"+strings.Join(lines, "\n"))
	}

	if len(m.toolLog) > 0 {
		recent := m.toolLog
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		var parts []string
		for _, r := range recent {
			parts = append(parts, r.Summary)
		}
		sections = append(sections, "RECENT: "+strings.Join(parts, " | "))
	}

	output := "## Working Memory\n" + strings.Join(sections, "\n")
	if maxChars > 0 && len(output) > maxChars {
		cut := maxChars - len("\n[...truncated]")
		if cut < 0 {
			cut = 0
		}
		output = output[:cut] + "\n[...truncated]"
	}
	return output
}

// Clear resets all memory state, keeping the goal.
func (m *WorkingMemory) Clear() {
	m.Plan = nil
	m.facts = nil
	m.decisions = nil
	m.toolLog = nil
	m.currentStep = 0
	m.iteration = 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func basename(path string) string {
	if path == "" {
		return "?"
	}
	cleaned := strings.TrimRight(strings.ReplaceAll(path, "\\", "/"), "/")
	parts := strings.Split(cleaned, "/")
	if len(parts) == 0 {
		return path
	}
	return parts[len(parts)-1]
}

func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return "?"
}

func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}

func fieldLen(fields map[string]any, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	if s, ok := v.([]string); ok {
		return len(s)
	}
	return 0
}

