package memory

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkingMemory_PlanProgress(t *testing.T) {
	m := New("fix the bug")
	m.SetPlan([]string{"read file", "find issue", "fix it"})
	assert.Equal(t, "0/3 steps done", m.PlanProgress())
	assert.Equal(t, "read file", m.CurrentStepDescription())

	m.AdvanceStep()
	assert.Equal(t, "1/3 steps done", m.PlanProgress())
	assert.Equal(t, "find issue", m.CurrentStepDescription())
}

func TestWorkingMemory_AddFact_EvictsOldestOverCapacity(t *testing.T) {
	m := New("goal")
	for i := 0; i < maxFacts+5; i++ {
		m.AddFact("key"+strconv.Itoa(i), "value")
	}
	assert.Len(t, m.facts, maxFacts)
	_, ok := m.GetFact("key0")
	assert.False(t, ok, "oldest fact should have been evicted")
	_, ok = m.GetFact("key" + strconv.Itoa(maxFacts+4))
	assert.True(t, ok)
}

func TestWorkingMemory_AddFact_OverwriteMovesToMostRecent(t *testing.T) {
	m := New("goal")
	m.AddFact("a", "1")
	m.AddFact("b", "2")
	m.AddFact("a", "3")
	v, ok := m.GetFact("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestWorkingMemory_RecordDecision_Caps(t *testing.T) {
	m := New("goal")
	for i := 0; i < maxDecisions+3; i++ {
		m.RecordDecision("decision " + strconv.Itoa(i))
	}
	assert.Len(t, m.decisions, maxDecisions)
}

func TestWorkingMemory_UpdateFromToolResult_Read(t *testing.T) {
	m := New("goal")
	m.UpdateFromToolResult("read", map[string]any{"file_path": "/a/b/app.py"}, ToolResult{
		Success: true,
		Fields:  map[string]any{"content": "line1\nline2\n", "total_lines": 2},
	})
	v, ok := m.GetFact("file:app.py")
	assert.True(t, ok)
	assert.Contains(t, v, "2 lines")
}

func TestWorkingMemory_UpdateFromToolResult_Failure(t *testing.T) {
	m := New("goal")
	m.UpdateFromToolResult("bash", map[string]any{"command": "false"}, ToolResult{Success: false, Error: "exit status 1"})
	assert.Len(t, m.toolLog, 1)
	assert.False(t, m.toolLog[0].Success)
}

func TestWorkingMemory_Compact_IncludesAllSections(t *testing.T) {
	m := New("fix the import error")
	m.SetPlan([]string{"read app.py", "fix import"})
	m.AddFact("file:app.py", "10 lines")
	m.RecordDecision("use relative import")
	m.UpdateFromToolResult("read", map[string]any{"file_path": "app.py"}, ToolResult{Success: true, Fields: map[string]any{"total_lines": 10}})

	out := m.Compact(2000)
	assert.True(t, strings.HasPrefix(out, "## Working Memory"))
	assert.Contains(t, out, "GOAL:")
	assert.Contains(t, out, "PLAN:")
	assert.Contains(t, out, "FACTS:")
	assert.Contains(t, out, "DECISIONS:")
	assert.Contains(t, out, "RECENT:")
}

func TestWorkingMemory_Compact_RespectsMaxChars(t *testing.T) {
	m := New(strings.Repeat("x", 5000))
	out := m.Compact(100)
	assert.LessOrEqual(t, len(out), 100)
	assert.True(t, strings.HasSuffix(out, "[...truncated]"))
}
