package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walker interface {
	Walk()
	Moving() bool
}

type fakeWalker struct {
	walks  int
	moving bool
	lastDt float64
}

func (f *fakeWalker) Walk()        { f.walks++ }
func (f *fakeWalker) Moving() bool { return f.moving }

func testTable() Table {
	return Table{
		Motion: {
			Action("Walk", walker.Walk),
			Query("IsMoving", walker.Moving),
			QueryDelta("Accelerate", func(w walker, dt float64) bool {
				w.(*fakeWalker).lastDt = dt
				return dt > 0
			}),
			Action("Brake", func(walker) {}),
		},
		General: {
			Query("Always", func(any) bool { return true }),
		},
	}
}

func TestRegistry_OrdinalsAreAlphabetic(t *testing.T) {
	r := MustRegistry(testTable())

	var names []string
	for _, d := range r.Describe(Motion) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Accelerate", "Brake", "IsMoving", "Walk"}, names)

	for i, d := range r.Describe(Motion) {
		assert.Equal(t, i, d.Ordinal)
		assert.Equal(t, Motion, d.Category)
	}
	assert.Equal(t, 4, r.Len(Motion))
	assert.Equal(t, []Category{General, Motion}, r.Categories())
}

func TestRegistry_ResolveIsStable(t *testing.T) {
	r := MustRegistry(testTable())

	for cat, n := range map[Category]int{Motion: 4, General: 1} {
		for i := 0; i < n; i++ {
			first, err := r.Resolve(cat, i)
			require.NoError(t, err)
			second, err := r.Resolve(cat, i)
			require.NoError(t, err)
			assert.Same(t, first, second)

			byName, err := r.ResolveByName(cat, first.Name)
			require.NoError(t, err)
			assert.Same(t, first, byName)
		}
	}
}

func TestRegistry_OrderIndependentOfRegistrationOrder(t *testing.T) {
	forward := testTable()
	reversed := Table{}
	for cat, entries := range forward {
		rev := make([]Entry, len(entries))
		for i, e := range entries {
			rev[len(entries)-1-i] = e
		}
		reversed[cat] = rev
	}

	a := MustRegistry(forward)
	b := MustRegistry(reversed)
	for i := 0; i < a.Len(Motion); i++ {
		da, _ := a.Resolve(Motion, i)
		db, _ := b.Resolve(Motion, i)
		assert.Equal(t, da.Name, db.Name)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := MustRegistry(testTable())

	_, err := r.Resolve(Inventory, 0)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.True(t, nf.UnknownCategory)

	_, err = r.Resolve(Motion, 4)
	require.True(t, errors.As(err, &nf))
	assert.False(t, nf.UnknownCategory)
	assert.Equal(t, 4, nf.Ordinal)

	_, err = r.Resolve(Motion, -1)
	assert.Error(t, err)

	_, err = r.ResolveByName(Motion, "Teleport")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Teleport", nf.Name)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(Table{
		Motion: {Action("Walk", walker.Walk), Action("Walk", walker.Walk)},
	})
	assert.Error(t, err)
}

func TestDescriptor_Call(t *testing.T) {
	r := MustRegistry(testTable())
	w := &fakeWalker{moving: true}
	set := NewSet().Attach(Motion, w)

	walk, err := r.ResolveByName(Motion, "Walk")
	require.NoError(t, err)
	ok, err := walk.Call(set, 0.1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, w.walks)

	moving, _ := r.ResolveByName(Motion, "IsMoving")
	ok, err = moving.Call(set, 0.1)
	require.NoError(t, err)
	assert.True(t, ok)

	accel, _ := r.ResolveByName(Motion, "Accelerate")
	ok, err = accel.Call(set, 0.25)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.25, w.lastDt)
}

func TestDescriptor_CallWithoutProvider(t *testing.T) {
	r := MustRegistry(testTable())
	walk, _ := r.ResolveByName(Motion, "Walk")

	set := NewSet()
	_, err := walk.Call(set, 0)
	var pm *ProviderMissingError
	require.True(t, errors.As(err, &pm))
	assert.Equal(t, Motion, pm.Category)

	set.Attach(Motion, "not a walker")
	assert.False(t, walk.Accepts("not a walker"))
	_, err = walk.Call(set, 0)
	require.True(t, errors.As(err, &pm))
	assert.Equal(t, "string", pm.Got)

	set.Attach(Motion, &fakeWalker{})
	_, err = walk.Call(set, 0)
	require.NoError(t, err)

	set.Detach(Motion)
	assert.False(t, set.Has(Motion))
	_, err = walk.Call(set, 0)
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("motion")
	assert.True(t, ok)
	assert.Equal(t, Motion, c)

	_, ok = ParseCategory("Physics")
	assert.False(t, ok)
}
