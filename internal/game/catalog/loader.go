package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a catalog file.
type File struct {
	Cards   []CardDefinition   `json:"cards" yaml:"cards"`
	Leaders []LeaderDefinition `json:"leaders" yaml:"leaders"`
	Decks   []DeckSnapshot     `json:"decks" yaml:"decks"`
}

// Parse decodes catalog YAML (JSON documents are accepted too).
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// LoadFile reads and parses a catalog file into a MemoryCatalog.
func LoadFile(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Catalog(), nil
}

// Catalog builds a MemoryCatalog from the file contents.
func (f File) Catalog() *MemoryCatalog {
	return NewMemoryCatalog(f.Cards, f.Leaders, f.Decks)
}

// Validate checks ids and deck references.
func (f File) Validate() error {
	cards := make(map[string]struct{}, len(f.Cards))
	for i, card := range f.Cards {
		if card.ID == "" {
			return fmt.Errorf("card %d has no id", i)
		}
		switch card.CardType {
		case CardTypeCharacter, CardTypeHelp, CardTypeSP:
		default:
			return fmt.Errorf("card %s has unsupported type %q", card.ID, card.CardType)
		}
		cards[card.ID] = struct{}{}
	}
	leaders := make(map[string]struct{}, len(f.Leaders))
	for i, leader := range f.Leaders {
		if leader.ID == "" {
			return fmt.Errorf("leader %d has no id", i)
		}
		leaders[leader.ID] = struct{}{}
	}
	for _, deck := range f.Decks {
		for _, id := range deck.Cards {
			if _, ok := cards[id]; !ok {
				return fmt.Errorf("deck for %s references %w", deck.PlayerID, fmt.Errorf("%w: %s", ErrCardNotFound, id))
			}
		}
		for _, id := range deck.Leaders {
			if _, ok := leaders[id]; !ok {
				return fmt.Errorf("deck for %s references %w", deck.PlayerID, fmt.Errorf("%w: %s", ErrLeaderNotFound, id))
			}
		}
	}
	return nil
}
