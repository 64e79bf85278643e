package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/behaviorgraph/internal/behavior"
	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/providers"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

var (
	_ providers.Motion      = (*Body)(nil)
	_ providers.Perception  = (*Body)(nil)
	_ providers.Inventory   = (*Body)(nil)
	_ providers.Resources   = (*Body)(nil)
	_ providers.General     = (*Body)(nil)
	_ providers.SkillCaster = (*Body)(nil)
)

func TestAttachCoversEveryCategory(t *testing.T) {
	set := New(1, DefaultOptions()).Attach(capability.NewSet())
	for _, cat := range capability.KnownCategories() {
		assert.True(t, set.Has(cat), "category %s", cat)
	}
}

func TestEnemyApproachesAndLeaves(t *testing.T) {
	b := New(1, Options{EnemyRate: 1000})
	b.Advance(0.1)
	require.True(t, b.Snapshot().Enemy)
	assert.True(t, b.HearsNoise())
	assert.False(t, b.SeesEnemy())

	// Standing still lets it close in.
	for i := 0; i < 30; i++ {
		b.Advance(0.1)
	}
	assert.True(t, b.SeesEnemy())

	b.opts.EnemyRate = 0
	b.Flee()
	for i := 0; i < 100 && b.Snapshot().Enemy; i++ {
		b.Advance(0.1)
	}
	assert.True(t, b.IsAlone())
}

func TestMotion(t *testing.T) {
	b := New(1, Options{})
	assert.False(t, b.IsMoving())

	b.Patrol()
	assert.True(t, b.IsMoving())
	for i := 0; i < 5; i++ {
		b.Advance(1)
	}
	assert.True(t, b.HasArrived())

	b.Wander()
	assert.False(t, b.HasArrived(), "new destination resets progress")

	b.Stop()
	assert.False(t, b.IsMoving())
}

func TestInventory(t *testing.T) {
	b := New(1, Options{Food: 1, Weapon: true})
	b.hunger = 80
	assert.True(t, b.IsHungry())

	assert.True(t, b.Eat())
	assert.False(t, b.Eat())
	assert.False(t, b.HasFood())
	assert.InDelta(t, 40, b.Snapshot().Hunger, 1e-9)

	assert.True(t, b.EquipWeapon())
	b.DropAll()
	assert.False(t, b.HasWeapon())
	assert.False(t, b.EquipWeapon())
}

func TestCastSkill(t *testing.T) {
	b := New(1, Options{})
	heal := &skills.Asset{Name: "heal", Cooldown: 2, Tags: []string{"support"}}
	b.health = 50

	assert.True(t, b.CastSkill(heal, false))
	assert.True(t, b.IsCasting())
	assert.InDelta(t, 70, b.Snapshot().Health, 1e-9)
	assert.False(t, b.CastSkill(heal, true), "still casting")

	b.Advance(1.5)
	assert.False(t, b.IsCasting())
	assert.False(t, b.CastSkill(heal, true), "cooling down")

	b.Advance(1)
	assert.True(t, b.CastSkill(heal, true))
	assert.False(t, b.IsCasting(), "immediate casts have no cast time")
}

func TestRunsShippedGraph(t *testing.T) {
	def, err := graph.LoadFile("../../graphs/guard.json")
	require.NoError(t, err)
	catalog, err := skills.Load("../../config/skills.yaml")
	require.NoError(t, err)

	b := New(3, Options{EnemyRate: 0.5, Food: 1, Weapon: true})
	in, err := behavior.Compile(def, behavior.Options{
		Providers: b.Attach(capability.NewSet()),
		Skills:    catalog,
		Rand:      behavior.NewRand(3),
		Observer:  behavior.ObserverFunc(func(string, map[string]interface{}) {}),
	})
	require.NoError(t, err)

	for i := 0; i < 2000 && !in.Finished(); i++ {
		b.Advance(0.05)
		require.NoError(t, in.Step(0.05))
	}
	assert.Positive(t, in.Clock())
}
