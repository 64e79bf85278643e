// Package sim provides a simulated agent body so graphs can run without a
// game engine. The model is deliberately abstract: distances are scalars and
// there is no geometry.
package sim

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

// Mode is what the body is currently doing with its legs.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeWander Mode = "wander"
	ModePatrol Mode = "patrol"
	ModeChase  Mode = "chase"
	ModeFlee   Mode = "flee"
)

const (
	sightRange  = 8.0
	attackRange = 3.0
	hearRange   = 12.0
	loseRange   = 15.0
	spawnRange  = 10.0
)

// Options tunes the environment around a body.
type Options struct {
	// EnemyRate is the chance per second that a hostile shows up.
	EnemyRate float64
	Food      int
	Weapon    bool
}

// DefaultOptions is what the daemon uses for every spawned body.
func DefaultOptions() Options {
	return Options{EnemyRate: 0.1, Food: 2, Weapon: true}
}

// State is a snapshot of a body.
type State struct {
	Mode     Mode    `json:"mode"`
	Health   float64 `json:"health"`
	Stamina  float64 `json:"stamina"`
	Hunger   float64 `json:"hunger"`
	Food     int     `json:"food"`
	Weapon   bool    `json:"weapon"`
	Equipped bool    `json:"equipped"`
	Alerted  bool    `json:"alerted"`
	Enemy    bool    `json:"enemy"`
	Distance float64 `json:"distance,omitempty"`
	Casting  bool    `json:"casting"`
}

// Body implements every provider interface in package providers.
type Body struct {
	mu   sync.Mutex
	rng  *rand.Rand
	opts Options

	mode     Mode
	progress float64
	stuck    float64

	health  float64
	stamina float64
	hunger  float64

	food     int
	weapon   bool
	equipped bool
	alerted  bool

	enemy    bool
	distance float64

	castLeft  float64
	cooldowns map[string]float64
}

// New creates a healthy idle body. The same seed and the same sequence of
// calls produce the same behavior.
func New(seed uint64, opts Options) *Body {
	return &Body{
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
		opts:      opts,
		mode:      ModeIdle,
		health:    100,
		stamina:   100,
		food:      opts.Food,
		weapon:    opts.Weapon,
		cooldowns: make(map[string]float64),
	}
}

// Attach registers b as the provider for every category.
func (b *Body) Attach(set *capability.Set) *capability.Set {
	for _, cat := range capability.KnownCategories() {
		set.Attach(cat, b)
	}
	return set
}

// Advance moves the environment forward by dt seconds.
func (b *Body) Advance(dt float64) {
	if !(dt > 0) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hunger = clamp(b.hunger + dt)
	if b.mode != ModeIdle {
		b.stamina = clamp(b.stamina - 2*dt)
		if b.stamina == 0 {
			b.stuck += dt
		} else {
			b.progress += 0.25 * dt
		}
	} else {
		b.stamina = clamp(b.stamina + dt)
		b.stuck = 0
	}

	if !b.enemy && b.rng.Float64() < b.opts.EnemyRate*dt {
		b.enemy = true
		b.distance = spawnRange
	}
	if b.enemy {
		switch b.mode {
		case ModeChase:
			b.distance -= 3 * dt
		case ModeFlee:
			b.distance += 3 * dt
		default:
			b.distance -= dt
		}
		if b.distance < 0 {
			b.distance = 0
		}
		if b.distance > loseRange {
			b.enemy = false
			b.distance = 0
		} else if b.distance < 2 {
			b.health = clamp(b.health - 5*dt)
		}
	}

	if b.castLeft > 0 {
		b.castLeft = math.Max(0, b.castLeft-dt)
	}
	for name, left := range b.cooldowns {
		if left -= dt; left <= 0 {
			delete(b.cooldowns, name)
		} else {
			b.cooldowns[name] = left
		}
	}
}

// Snapshot returns the current state.
func (b *Body) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Mode:     b.mode,
		Health:   b.health,
		Stamina:  b.stamina,
		Hunger:   b.hunger,
		Food:     b.food,
		Weapon:   b.weapon,
		Equipped: b.equipped,
		Alerted:  b.alerted,
		Enemy:    b.enemy,
		Distance: b.distance,
		Casting:  b.castLeft > 0,
	}
}

func (b *Body) move(m Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mode != m {
		b.progress = 0
	}
	b.mode = m
}

// Motion

func (b *Body) Wander() { b.move(ModeWander) }
func (b *Body) Patrol() { b.move(ModePatrol) }
func (b *Body) Chase()  { b.move(ModeChase) }
func (b *Body) Flee()   { b.move(ModeFlee) }
func (b *Body) Stop()   { b.move(ModeIdle) }

func (b *Body) IsMoving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode != ModeIdle
}

func (b *Body) HasArrived() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress >= 1
}

func (b *Body) IsStuck() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stuck > 3
}

// Perception

func (b *Body) SeesEnemy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enemy && b.distance < sightRange
}

func (b *Body) HearsNoise() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enemy && b.distance < hearRange
}

func (b *Body) TargetInRange() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enemy && b.distance < attackRange
}

func (b *Body) IsAlone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.enemy
}

func (b *Body) ForgetTarget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enemy = false
	b.distance = 0
}

// Inventory

func (b *Body) HasWeapon() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.weapon
}

func (b *Body) HasFood() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.food > 0
}

func (b *Body) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hunger < 10
}

func (b *Body) EquipWeapon() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.weapon {
		return false
	}
	b.equipped = true
	return true
}

func (b *Body) Eat() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.food == 0 {
		return false
	}
	b.food--
	b.hunger = clamp(b.hunger - 40)
	return true
}

func (b *Body) DropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.food = 0
	b.weapon = false
	b.equipped = false
}

// Resources

func (b *Body) IsHealthLow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health < 30
}

func (b *Body) IsTired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stamina < 20
}

func (b *Body) IsHungry() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hunger > 70
}

func (b *Body) Rest(dt float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = ModeIdle
	b.stamina = clamp(b.stamina + 10*dt)
}

func (b *Body) Regenerate(dt float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.health = clamp(b.health + 5*dt)
}

// General

func (b *Body) Idle() { b.move(ModeIdle) }

func (b *Body) Alert() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerted = true
}

func (b *Body) IsAlerted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alerted
}

// Skills

// CastSkill starts a cast unless one is running or the skill is cooling
// down. immediate skips the one second cast time. Ranged skills push the
// enemy back; support skills heal.
func (b *Body) CastSkill(a *skills.Asset, immediate bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a == nil || b.castLeft > 0 || b.cooldowns[a.Name] > 0 {
		return false
	}
	if !immediate {
		b.castLeft = 1
	}
	if a.Cooldown > 0 {
		b.cooldowns[a.Name] = a.Cooldown
	}
	switch {
	case a.HasTag("ranged") && b.enemy:
		b.distance += 5
	case a.HasTag("support"):
		b.health = clamp(b.health + 20)
	}
	return true
}

func (b *Body) IsCasting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.castLeft > 0
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
