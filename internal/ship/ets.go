package ship

import (
	"fmt"
	"math"

	"github.com/shipcore/shipcore/pkg/core"
)

const (
	// etsSteps is the highest index on the power dial; each step is 1/12.
	etsSteps = 12
	// etsBalanced is the per-channel index after Balance.
	etsBalanced = 4
	// allocationTolerance bounds how far a split may stray from 1.0.
	allocationTolerance = 0.01
)

// Indices are the discretised dial positions of the three channels.
type Indices struct {
	Shield int `json:"shield"`
	Weapon int `json:"weapon"`
	Engine int `json:"engine"`
}

// Allocation converts the dial positions back into fractions.
func (i Indices) Allocation() core.Allocation {
	return core.Allocation{
		Shield: float64(i.Shield) / etsSteps,
		Weapon: float64(i.Weapon) / etsSteps,
		Engine: float64(i.Engine) / etsSteps,
	}
}

func (i Indices) String() string {
	return fmt.Sprintf("%d/%d/%d", i.Shield, i.Weapon, i.Engine)
}

// ETSObserver is notified after every successful allocation change.
type ETSObserver interface {
	AllocationChanged(ship string, alloc core.Allocation, idx Indices)
}

// ETSObserverFunc adapts a function to ETSObserver.
type ETSObserverFunc func(ship string, alloc core.Allocation, idx Indices)

// AllocationChanged calls f.
func (f ETSObserverFunc) AllocationChanged(ship string, alloc core.Allocation, idx Indices) {
	f(ship, alloc, idx)
}

// ValidAllocation reports whether a split is usable: every channel in [0,1]
// and the total within tolerance of 1.0.
func ValidAllocation(a core.Allocation) bool {
	for _, v := range []float64{a.Shield, a.Weapon, a.Engine} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return math.Abs(a.Sum()-1) <= allocationTolerance
}

// quantize maps fractions onto the 13-step dial. Each channel rounds half
// up; if the rounded positions do not total 12, the channel whose rounding
// error leans furthest towards the excess moves one step, shield first on
// ties, until they do.
func quantize(a core.Allocation) Indices {
	raw := [3]float64{a.Shield * etsSteps, a.Weapon * etsSteps, a.Engine * etsSteps}
	var idx [3]int
	sum := 0
	for i, r := range raw {
		idx[i] = int(math.Floor(r + 0.5))
		sum += idx[i]
	}
	for sum != etsSteps {
		dir := 1
		if sum > etsSteps {
			dir = -1
		}
		best, bestErr := -1, math.Inf(-1)
		for i := range idx {
			next := idx[i] + dir
			if next < 0 || next > etsSteps {
				continue
			}
			// positive when moving this channel reduces its rounding error
			e := float64(dir) * (raw[i] - float64(idx[i]))
			if e > bestErr {
				best, bestErr = i, e
			}
		}
		if best < 0 {
			break
		}
		idx[best] += dir
		sum += dir
	}
	return Indices{Shield: idx[0], Weapon: idx[1], Engine: idx[2]}
}

// Allocation returns the stored shield/weapon/engine fractions.
func (s *Ship) Allocation() core.Allocation {
	return s.alloc
}

// Indices returns the current dial positions.
func (s *Ship) Indices() Indices {
	return s.idx
}

// AddETSObserver registers o for allocation changes.
func (s *Ship) AddETSObserver(o ETSObserver) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

// SetAllocation stores an exact split after validating it.
func (s *Ship) SetAllocation(shield, weapon, engine float64) bool {
	a := core.Allocation{Shield: shield, Weapon: weapon, Engine: engine}
	if !ValidAllocation(a) {
		s.log.Warn("rejected power allocation", "shield", shield, "weapon", weapon, "engine", engine)
		return false
	}
	s.alloc = a
	s.idx = quantize(a)
	s.allocationChanged()
	return true
}

// TransferToShields moves one step from weapons to shields.
func (s *Ship) TransferToShields() bool {
	return s.transfer(&s.idx.Weapon, &s.idx.Shield)
}

// TransferToEngines moves one step from weapons to engines.
func (s *Ship) TransferToEngines() bool {
	return s.transfer(&s.idx.Weapon, &s.idx.Engine)
}

// TransferToWeapons moves one step into weapons, drawn from shields or, when
// shields are already at zero, from engines.
func (s *Ship) TransferToWeapons() bool {
	if s.idx.Shield > 0 {
		return s.transfer(&s.idx.Shield, &s.idx.Weapon)
	}
	return s.transfer(&s.idx.Engine, &s.idx.Weapon)
}

func (s *Ship) transfer(from, to *int) bool {
	if *from <= 0 || *to >= etsSteps {
		return false
	}
	*from--
	*to++
	s.alloc = s.idx.Allocation()
	s.allocationChanged()
	return true
}

// Balance puts every channel at index 4.
func (s *Ship) Balance() {
	s.idx = Indices{Shield: etsBalanced, Weapon: etsBalanced, Engine: etsBalanced}
	s.alloc = s.idx.Allocation()
	s.allocationChanged()
}

func (s *Ship) allocationChanged() {
	s.emit(core.Event{Kind: core.EventAllocationChanged, To: s.idx.String()})
	for _, o := range s.observers {
		o.AllocationChanged(s.name, s.alloc, s.idx)
	}
}
