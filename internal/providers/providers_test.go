package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
)

// Persisted graphs depend on these exact ordinals. A failure here means a
// table change has shifted bindings for existing documents.
func TestTable_OrdinalsArePinned(t *testing.T) {
	r := Registry()

	want := map[capability.Category][]string{
		capability.Motion:     {"Chase", "Flee", "HasArrived", "IsMoving", "IsStuck", "Patrol", "Stop", "Wander"},
		capability.Perception: {"ForgetTarget", "HearsNoise", "IsAlone", "SeesEnemy", "TargetInRange"},
		capability.Inventory:  {"DropAll", "Eat", "EquipWeapon", "HasFood", "HasWeapon", "IsFull"},
		capability.Resources:  {"IsHealthLow", "IsHungry", "IsTired", "Regenerate", "Rest"},
		capability.General:    {"Alert", "Always", "Idle", "IsAlerted", "Never"},
		capability.Skills:     {"IsCasting"},
	}

	for cat, names := range want {
		require.Equal(t, len(names), r.Len(cat), "category %s", cat)
		for i, name := range names {
			d, err := r.Resolve(cat, i)
			require.NoError(t, err)
			assert.Equal(t, name, d.Name, "%s ordinal %d", cat, i)
		}
	}
}

func TestTable_Kinds(t *testing.T) {
	r := Registry()

	eat, err := r.ResolveByName(capability.Inventory, "Eat")
	require.NoError(t, err)
	assert.Equal(t, capability.KindAction, eat.Kind)

	sees, err := r.ResolveByName(capability.Perception, "SeesEnemy")
	require.NoError(t, err)
	assert.Equal(t, capability.KindQuery, sees.Kind)
}
