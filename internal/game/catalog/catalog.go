package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrCardNotFound is returned when a card id cannot be resolved.
	ErrCardNotFound = errors.New("card not found")
	// ErrLeaderNotFound is returned when a leader id cannot be resolved.
	ErrLeaderNotFound = errors.New("leader not found")
	// ErrDeckNotFound is returned when a player has no registered deck.
	ErrDeckNotFound = errors.New("deck not found")
)

// Catalog resolves static definitions by id. Implementations are read-only.
type Catalog interface {
	Card(id string) (CardDefinition, error)
	Leader(id string) (LeaderDefinition, error)
}

// DeckSource resolves a player's registered deck list.
type DeckSource interface {
	Deck(playerID string) (DeckSnapshot, error)
}

// MemoryCatalog is a pre-loaded, in-memory catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	cards   map[string]CardDefinition
	leaders map[string]LeaderDefinition
	decks   map[string]DeckSnapshot
}

// NewMemoryCatalog builds a catalog from definition lists. Later duplicates win.
func NewMemoryCatalog(cards []CardDefinition, leaders []LeaderDefinition, decks []DeckSnapshot) *MemoryCatalog {
	c := &MemoryCatalog{
		cards:   make(map[string]CardDefinition, len(cards)),
		leaders: make(map[string]LeaderDefinition, len(leaders)),
		decks:   make(map[string]DeckSnapshot, len(decks)),
	}
	for _, card := range cards {
		c.cards[card.ID] = card
	}
	for _, leader := range leaders {
		if leader.CardType == "" {
			leader.CardType = CardTypeLeader
		}
		c.leaders[leader.ID] = leader
	}
	for _, deck := range decks {
		c.decks[deck.PlayerID] = deck
	}
	return c
}

// Card returns the card definition for id.
func (c *MemoryCatalog) Card(id string) (CardDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[id]
	if !ok {
		return CardDefinition{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return card, nil
}

// Leader returns the leader definition for id.
func (c *MemoryCatalog) Leader(id string) (LeaderDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	leader, ok := c.leaders[id]
	if !ok {
		return LeaderDefinition{}, fmt.Errorf("%w: %s", ErrLeaderNotFound, id)
	}
	return leader, nil
}

// Deck returns the deck registered for playerID.
func (c *MemoryCatalog) Deck(playerID string) (DeckSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deck, ok := c.decks[playerID]
	if !ok {
		return DeckSnapshot{}, fmt.Errorf("%w: %s", ErrDeckNotFound, playerID)
	}
	deck.Leaders = append([]string(nil), deck.Leaders...)
	deck.Cards = append([]string(nil), deck.Cards...)
	return deck, nil
}

// Export returns the catalog contents sorted by id.
func (c *MemoryCatalog) Export() File {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var f File
	for _, card := range c.cards {
		f.Cards = append(f.Cards, card)
	}
	for _, leader := range c.leaders {
		f.Leaders = append(f.Leaders, leader)
	}
	for _, deck := range c.decks {
		f.Decks = append(f.Decks, deck)
	}
	sort.Slice(f.Cards, func(i, j int) bool { return f.Cards[i].ID < f.Cards[j].ID })
	sort.Slice(f.Leaders, func(i, j int) bool { return f.Leaders[i].ID < f.Leaders[j].ID })
	sort.Slice(f.Decks, func(i, j int) bool { return f.Decks[i].PlayerID < f.Decks[j].PlayerID })
	return f
}

// Size returns the number of cards and leaders loaded.
func (c *MemoryCatalog) Size() (cards, leaders int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards), len(c.leaders)
}
