package game

import (
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// prepareDeck shuffles a deck list into playable piles: at most roster leaders and an
// opening hand drawn from the shuffled cards.
func prepareDeck(snap catalog.DeckSnapshot, settings Settings, rng effects.Random) state.Deck {
	leaders := append([]string(nil), snap.Leaders...)
	shuffle(rng, leaders)
	if settings.LeaderRoster > 0 && len(leaders) > settings.LeaderRoster {
		leaders = leaders[:settings.LeaderRoster]
	}

	cards := append([]string(nil), snap.Cards...)
	shuffle(rng, cards)

	p := &state.PlayerState{Deck: state.Deck{Hand: []string{}, MainDeck: cards, Leaders: leaders}}
	effects.DrawCards(p, settings.StartingHand)
	return p.Deck
}

// redraw returns the hand to the main deck, reshuffles and draws the same number of cards.
func redraw(p *state.PlayerState, rng effects.Random) {
	n := len(p.Deck.Hand)
	pile := append(p.Deck.MainDeck, p.Deck.Hand...)
	shuffle(rng, pile)
	p.Deck.Hand = []string{}
	p.Deck.MainDeck = pile
	effects.DrawCards(p, n)
}

func shuffle(rng effects.Random, ids []string) {
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}
