// Package providers defines the capability provider interfaces an agent body
// implements and the registration table that exposes them to behavior graphs.
//
// Adding, removing or renaming an entry in Table shifts the ordinals of the
// other entries in the same category. Graphs saved before such a change still
// carry functionName, which the compiler checks against the bound function.
package providers

import (
	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

// Motion drives locomotion. Implementations own any spatial state.
type Motion interface {
	Wander()
	Patrol()
	Chase()
	Flee()
	Stop()
	IsMoving() bool
	HasArrived() bool
	IsStuck() bool
}

// Perception answers what the agent currently senses.
type Perception interface {
	SeesEnemy() bool
	HearsNoise() bool
	TargetInRange() bool
	IsAlone() bool
	ForgetTarget()
}

// Inventory manages carried items.
type Inventory interface {
	HasWeapon() bool
	HasFood() bool
	IsFull() bool
	EquipWeapon() bool
	Eat() bool
	DropAll()
}

// Resources tracks consumable stats.
type Resources interface {
	IsHealthLow() bool
	IsTired() bool
	IsHungry() bool
	Rest(dt float64)
	Regenerate(dt float64)
}

// General holds agent-wide helpers that fit no other category.
type General interface {
	Idle()
	Alert()
	IsAlerted() bool
}

// SkillCaster executes skill assets for Skill nodes.
type SkillCaster interface {
	CastSkill(asset *skills.Asset, immediate bool) bool
	IsCasting() bool
}

// Table returns the static registration table. Order inside each slice is
// irrelevant; the registry sorts by name.
func Table() capability.Table {
	return capability.Table{
		capability.Motion: {
			capability.Action("Wander", Motion.Wander),
			capability.Action("Patrol", Motion.Patrol),
			capability.Action("Chase", Motion.Chase),
			capability.Action("Flee", Motion.Flee),
			capability.Action("Stop", Motion.Stop),
			capability.Query("IsMoving", Motion.IsMoving),
			capability.Query("HasArrived", Motion.HasArrived),
			capability.Query("IsStuck", Motion.IsStuck),
		},
		capability.Perception: {
			capability.Query("SeesEnemy", Perception.SeesEnemy),
			capability.Query("HearsNoise", Perception.HearsNoise),
			capability.Query("TargetInRange", Perception.TargetInRange),
			capability.Query("IsAlone", Perception.IsAlone),
			capability.Action("ForgetTarget", Perception.ForgetTarget),
		},
		capability.Inventory: {
			capability.Query("HasWeapon", Inventory.HasWeapon),
			capability.Query("HasFood", Inventory.HasFood),
			capability.Query("IsFull", Inventory.IsFull),
			capability.ActionResult("EquipWeapon", Inventory.EquipWeapon),
			capability.ActionResult("Eat", Inventory.Eat),
			capability.Action("DropAll", Inventory.DropAll),
		},
		capability.Resources: {
			capability.Query("IsHealthLow", Resources.IsHealthLow),
			capability.Query("IsTired", Resources.IsTired),
			capability.Query("IsHungry", Resources.IsHungry),
			capability.ActionDelta("Rest", Resources.Rest),
			capability.ActionDelta("Regenerate", Resources.Regenerate),
		},
		capability.General: {
			capability.Action("Idle", General.Idle),
			capability.Action("Alert", General.Alert),
			capability.Query("IsAlerted", General.IsAlerted),
			capability.Query("Always", func(any) bool { return true }),
			capability.Query("Never", func(any) bool { return false }),
		},
		capability.Skills: {
			capability.Query("IsCasting", SkillCaster.IsCasting),
		},
	}
}

// Registry builds the registry for Table.
func Registry() *capability.Registry {
	return capability.MustRegistry(Table())
}
