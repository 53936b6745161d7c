package effects

import (
	"github.com/google/uuid"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Layer orders the sources of continuous power modifiers.
type Layer int

const (
	LayerLeader Layer = 1 + iota
	LayerUtility
	LayerCharacter
	LayerBattle
)

var layerOrder = []Layer{
	LayerLeader,
	LayerUtility,
	LayerCharacter,
	LayerBattle,
}

var layerNames = map[Layer]string{
	LayerLeader:    "leader",
	LayerUtility:   "utility",
	LayerCharacter: "character",
	LayerBattle:    "battle",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return "unknown"
}

// Snapshot is the mutable view of a face-up character while continuous effects are evaluated.
type Snapshot struct {
	CardID     string
	OwnerID    state.PlayerID
	Zone       rules.Zone
	Definition catalog.CardDefinition
	BasePower  int
	Power      int
}

// NewSnapshot constructs a snapshot at base power.
func NewSnapshot(owner state.PlayerID, zone rules.Zone, card *state.PlacedCard) *Snapshot {
	s := &Snapshot{
		CardID:     card.CardID,
		OwnerID:    owner,
		Zone:       zone,
		Definition: card.Definition,
		BasePower:  card.Definition.Power,
	}
	s.Reset()
	return s
}

// Reset restores power to base.
func (s *Snapshot) Reset() {
	s.Power = s.BasePower
}

// ContinuousEffect modifies snapshots during a scoring pass.
type ContinuousEffect interface {
	ID() string
	Layer() Layer
	SourceID() string
	AppliesTo(*Snapshot) bool
	Apply(*Snapshot)
}

// LayerSystem holds the continuous effects of one scoring pass. It is built and read by a
// single goroutine. Effects in the same layer apply in registration order.
type LayerSystem struct {
	effects map[Layer][]ContinuousEffect
	index   map[string]Layer
}

// NewLayerSystem constructs an empty layer system.
func NewLayerSystem() *LayerSystem {
	return &LayerSystem{
		effects: make(map[Layer][]ContinuousEffect),
		index:   make(map[string]Layer),
	}
}

// AddEffect registers a continuous effect and returns its identifier.
// Registering an id twice is a no-op.
func (ls *LayerSystem) AddEffect(effect ContinuousEffect) string {
	if effect == nil {
		return ""
	}
	layer := effect.Layer()
	if layer == 0 {
		layer = LayerUtility
	}
	id := effect.ID()
	if id == "" {
		id = uuid.NewString()
	}
	if _, dup := ls.index[id]; dup {
		return id
	}
	ls.effects[layer] = append(ls.effects[layer], effect)
	ls.index[id] = layer
	return id
}

// Apply resets the snapshot and runs every relevant effect layer by layer.
func (ls *LayerSystem) Apply(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	snapshot.Reset()
	for _, layer := range layerOrder {
		for _, effect := range ls.effects[layer] {
			if effect.AppliesTo(snapshot) {
				effect.Apply(snapshot)
			}
		}
	}
}

// EffectsFor returns the effects that would modify snapshot, in application order.
func (ls *LayerSystem) EffectsFor(snapshot *Snapshot) []ContinuousEffect {
	var out []ContinuousEffect
	for _, layer := range layerOrder {
		for _, effect := range ls.effects[layer] {
			if effect.AppliesTo(snapshot) {
				out = append(out, effect)
			}
		}
	}
	return out
}
