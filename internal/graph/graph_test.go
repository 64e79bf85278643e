package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
)

const sampleGraph = `{
  "nodes": [
    {"type": "Entry"},
    {"type": "Action", "name": "wander", "actionGroup": "Motion", "functionID": 7, "functionName": "Wander",
     "rect": {"posX": 10, "posY": 20, "width": 100, "height": 40}},
    {"type": "condition", "conditionGroup": "perception", "functionID": "3", "reverse": true},
    {"type": "Loop", "minTime": 3, "maxTime": 1},
    {"type": "Skill", "skillName": "fireball", "executeSkill": true}
  ],
  "transitions": [
    {"startID": 0, "endID": 1, "type": "positive"},
    {"startID": 1, "endID": 2, "type": "positive", "minRate": 80, "maxRate": 20, "minCooldown": 2},
    {"startID": 2, "endID": 3, "type": "negative", "variants": [
      {"minRate": 150, "maxRate": 100, "minCooldown": -1, "maxCooldown": 4},
      {"minRate": 0, "maxRate": 0, "terminate": true}
    ]}
  ]
}`

func TestParse_Nodes(t *testing.T) {
	def, err := Parse([]byte(sampleGraph))
	require.NoError(t, err)
	require.Len(t, def.Nodes, 5)

	entry := def.Node(0)
	assert.Equal(t, KindEntry, entry.Kind)
	assert.Equal(t, []int{0}, entry.Outgoing)

	wander := def.Node(1)
	assert.Equal(t, KindAction, wander.Kind)
	assert.Equal(t, capability.Motion, wander.Category)
	assert.Equal(t, 7, wander.Ordinal)
	assert.Equal(t, "Wander", wander.FunctionName)
	assert.Equal(t, "wander", wander.Label())
	require.NotNil(t, wander.Rect)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 100, Height: 40}, *wander.Rect)

	cond := def.Node(2)
	assert.Equal(t, KindCondition, cond.Kind)
	assert.Equal(t, capability.Perception, cond.Category)
	assert.Equal(t, 3, cond.Ordinal)
	assert.True(t, cond.Negated)
	assert.Equal(t, "Condition#2", cond.Label())

	// Legacy time-window loops have no capability reference.
	tl := def.Node(3)
	assert.Equal(t, KindTimeLoop, tl.Kind)
	assert.Equal(t, 1.0, tl.MinTime)
	assert.Equal(t, 3.0, tl.MaxTime)

	skill := def.Node(4)
	assert.Equal(t, KindSkill, skill.Kind)
	assert.Equal(t, "fireball", skill.SkillName)
	assert.True(t, skill.ExecuteImmediately)
	assert.Equal(t, "fireball", skill.Label())
}

func TestParse_TransitionDefaults(t *testing.T) {
	def, err := Parse([]byte(sampleGraph))
	require.NoError(t, err)
	require.Len(t, def.Transitions, 3)

	first := def.Transitions[0]
	assert.False(t, first.Negated)
	assert.Equal(t, []Variant{DefaultVariant()}, first.Variants)

	second := def.Transitions[1]
	assert.Equal(t, []Variant{{MinRate: 20, MaxRate: 80, MinCooldown: 2, MaxCooldown: 2}}, second.Variants)

	third := def.Transitions[2]
	assert.True(t, third.Negated)
	want := []Variant{
		{MinRate: 100, MaxRate: 100, MinCooldown: 0, MaxCooldown: 4},
		{MinRate: 0, MaxRate: 0, Terminate: true},
	}
	if diff := cmp.Diff(want, third.Variants); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_FunctionIDAsName(t *testing.T) {
	def, err := Parse([]byte(`{"nodes":[{"type":"Action","actionGroup":"Motion","functionID":"Patrol"}],"transitions":[]}`))
	require.NoError(t, err)
	n := def.Node(0)
	assert.Equal(t, -1, n.Ordinal)
	assert.Equal(t, "Patrol", n.FunctionName)
}

func TestParse_FunctionIDOutOfIntRange(t *testing.T) {
	def, err := Parse([]byte(`{"nodes":[
		{"type":"Action","actionGroup":"Motion","functionID":9223372036854775808},
		{"type":"Action","actionGroup":"Motion","functionID":"7.0"}],"transitions":[]}`))
	require.NoError(t, err)
	assert.Equal(t, -1, def.Node(0).Ordinal)
	assert.Equal(t, 7, def.Node(1).Ordinal)
}

func TestParse_SingleNodeArray(t *testing.T) {
	def, err := Parse([]byte(`{"nodes":[{"type":"Entry"}],"transitions":[]}`))
	require.NoError(t, err)
	require.Len(t, def.Nodes, 1)
	assert.Equal(t, KindEntry, def.Nodes[0].Kind)
	assert.Empty(t, def.Transitions)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"nodes":[{"type":"Sequence"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sequence")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("   "))
	require.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	def, err := Parse([]byte(sampleGraph))
	require.NoError(t, err)

	again, err := Parse(def.Encode())
	require.NoError(t, err)

	if diff := cmp.Diff(def, again); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(sampleGraph), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	defs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Len(t, defs["a"].Nodes, 5)
}

func TestLoadFile_ShippedGraph(t *testing.T) {
	def, err := LoadFile(filepath.Join("..", "..", "graphs", "guard.json"))
	require.NoError(t, err)
	assert.Len(t, def.NodesOfKind(KindEntry), 1)
	assert.Len(t, def.NodesOfKind(KindTimeLoop), 1)
	assert.Len(t, def.NodesOfKind(KindSkill), 1)
}
