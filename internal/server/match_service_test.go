package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/ai"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/scoring"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

const adminPassword = "let-me-in"

func testCatalog() *catalog.MemoryCatalog {
	zones := make(map[rules.Zone][]string)
	for _, zone := range rules.AllZones() {
		zones[zone] = []string{catalog.WildcardToken}
	}
	cards := []catalog.CardDefinition{
		{ID: "knight", Name: "Knight", CardType: catalog.CardTypeCharacter, Power: 40, Traits: []string{"armored"}, GameType: "x"},
		{ID: "archer", Name: "Archer", CardType: catalog.CardTypeCharacter, Power: 25, Traits: []string{"ranged"}, GameType: "y"},
		{ID: "banner", Name: "Banner", CardType: catalog.CardTypeHelp},
	}
	leaders := []catalog.LeaderDefinition{
		{ID: "marshal", Name: "Marshal", InitialPoint: 120, ZoneCompatibility: zones},
		{ID: "scout", Name: "Scout", InitialPoint: 90, ZoneCompatibility: zones},
	}
	decks := []catalog.DeckSnapshot{
		{PlayerID: "alice", Leaders: []string{"marshal"}, Cards: []string{"knight", "archer", "banner", "knight", "archer", "knight"}},
		{PlayerID: "bob", Leaders: []string{"scout"}, Cards: []string{"knight", "archer", "banner", "archer", "archer", "knight"}},
	}
	return catalog.NewMemoryCatalog(cards, leaders, decks)
}

type testServer struct {
	client  *MatchServiceClient
	manager *game.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cat := testCatalog()

	settings := game.DefaultSettings()
	settings.StartingHand = 4
	engine := game.NewEngine(cat, logger, game.WithRand(game.NewRand(9)), game.WithSettings(settings))
	manager := game.NewManager(engine, game.NewMemoryStore(logger), logger,
		game.WithDeckSource(cat),
		game.WithAdvisor(ai.NewSearcher(engine, logger, ai.WithDepth(1), ai.WithSeed(9))),
		game.WithReplays(game.NewReplayRecorder(logger, "")),
	)
	t.Cleanup(manager.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(ChainUnaryInterceptors(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
		AdminInterceptor(string(hash), logger, MethodInjectState, MethodDeleteMatch),
	)))
	RegisterMatchService(srv, NewMatchServer(manager, logger))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{client: NewMatchServiceClient(conn), manager: manager}
}

func (ts *testServer) call(t *testing.T, method string, req interface{}) (*state.MatchState, error) {
	t.Helper()
	resp, err := ts.client.Call(context.Background(), method, req)
	if err != nil {
		return nil, err
	}
	return Match(resp)
}

// started creates a match between alice and bob and answers both redraw prompts.
func (ts *testServer) started(t *testing.T) *state.MatchState {
	t.Helper()
	m, err := ts.call(t, MethodCreateMatch, map[string]interface{}{"players": []string{"alice", "bob"}})
	require.NoError(t, err)
	require.Equal(t, rules.PhaseStartRedraw, m.Phase)

	for _, player := range []string{"alice", "bob"} {
		m, err = ts.call(t, MethodSubmitRedraw, map[string]interface{}{"matchId": m.MatchID, "playerId": player, "redraw": false})
		require.NoError(t, err)
	}
	require.Equal(t, rules.PhaseMain, m.Phase)
	return m
}

func TestMatchServiceLifecycle(t *testing.T) {
	ts := newTestServer(t)
	m := ts.started(t)
	assert.Equal(t, state.PlayerID("alice"), m.CurrentPlayerID)
	assert.Len(t, m.Players["alice"].Deck.Hand, 5)

	resp, err := ts.client.Call(context.Background(), MethodSuggestAction, map[string]interface{}{"matchId": m.MatchID, "playerId": "alice"})
	require.NoError(t, err)
	var action game.Action
	require.NoError(t, decodeField(resp, "action", &action))
	assert.Equal(t, game.ActionPlayCard, action.Type)

	next, err := ts.call(t, MethodApplyAction, map[string]interface{}{"matchId": m.MatchID, "playerId": "alice", "action": action})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Players["alice"].Field.Count())
	assert.Equal(t, state.PlayerID("bob"), next.CurrentPlayerID)
	assert.Equal(t, 40, next.Players["alice"].PlayerPoint)

	resp, err = ts.client.Call(context.Background(), MethodGetMatch, map[string]interface{}{"matchId": m.MatchID})
	require.NoError(t, err)
	got, err := Match(resp)
	require.NoError(t, err)
	assert.Equal(t, next.UpdateID, got.UpdateID)
	var scores map[state.PlayerID]scoring.PlayerScore
	require.NoError(t, decodeField(resp, "scores", &scores))
	require.Len(t, scores["alice"].Characters, 1)
	assert.Equal(t, "knight", scores["alice"].Characters[0].CardID)
	assert.Equal(t, 40, scores["alice"].Total)

	resp, err = ts.client.Call(context.Background(), MethodGetReplay, map[string]interface{}{"matchId": m.MatchID})
	require.NoError(t, err)
	assert.Len(t, resp.GetFields()["states"].GetListValue().GetValues(), 4)
}

func TestMatchServiceCreateFromDecks(t *testing.T) {
	ts := newTestServer(t)
	m, err := ts.call(t, MethodCreateMatch, map[string]interface{}{"decks": []catalog.DeckSnapshot{
		{PlayerID: "p1", Leaders: []string{"scout"}, Cards: []string{"knight", "archer", "banner", "knight"}},
		{PlayerID: "p2", Leaders: []string{"marshal"}, Cards: []string{"knight", "archer", "banner", "knight"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, m.FirstPlayerIndex)
	assert.Equal(t, state.PlayerID("p2"), m.CurrentPlayerID)
}

func TestMatchServiceErrorCodes(t *testing.T) {
	ts := newTestServer(t)
	m := ts.started(t)

	tests := []struct {
		name   string
		method string
		req    map[string]interface{}
		code   codes.Code
	}{
		{"unknown match", MethodGetMatch, map[string]interface{}{"matchId": "nope"}, codes.NotFound},
		{"missing match id", MethodGetMatch, map[string]interface{}{}, codes.InvalidArgument},
		{"unknown deck", MethodCreateMatch, map[string]interface{}{"players": []string{"alice", "carol"}}, codes.NotFound},
		{"bad deck list", MethodCreateMatch, map[string]interface{}{"decks": []interface{}{}}, codes.InvalidArgument},
		{"missing action", MethodApplyAction, map[string]interface{}{"matchId": m.MatchID, "playerId": "alice"}, codes.InvalidArgument},
		{"hand index out of range", MethodApplyAction, map[string]interface{}{
			"matchId": m.MatchID, "playerId": "alice",
			"action": game.Action{Type: game.ActionPlayCard, CardIndexInHand: 99, ZoneIndex: 0},
		}, codes.InvalidArgument},
		{"out of turn", MethodApplyAction, map[string]interface{}{
			"matchId": m.MatchID, "playerId": "bob",
			"action": game.Action{Type: game.ActionPlayCard, CardIndexInHand: 0, ZoneIndex: 0},
		}, codes.FailedPrecondition},
		{"redraw after start", MethodSubmitRedraw, map[string]interface{}{"matchId": m.MatchID, "playerId": "alice"}, codes.FailedPrecondition},
		{"no replay", MethodGetReplay, map[string]interface{}{"matchId": "nope"}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.client.Call(context.Background(), tt.method, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}

	unchanged, err := ts.call(t, MethodGetMatch, map[string]interface{}{"matchId": m.MatchID})
	require.NoError(t, err)
	assert.Equal(t, m.UpdateID, unchanged.UpdateID)
}

func TestInjectStateRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	m := ts.started(t)
	m.Players["alice"].VictoryPoints = 30
	req := map[string]interface{}{"match": m}

	_, err := ts.client.Call(context.Background(), MethodInjectState, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	wrong := metadata.AppendToOutgoingContext(context.Background(), AdminPasswordHeader, "guess")
	_, err = ts.client.Call(wrong, MethodInjectState, req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	admin := metadata.AppendToOutgoingContext(context.Background(), AdminPasswordHeader, adminPassword)
	resp, err := ts.client.Call(admin, MethodInjectState, req)
	require.NoError(t, err)
	injected, err := Match(resp)
	require.NoError(t, err)
	assert.Equal(t, 30, injected.Players["alice"].VictoryPoints)

	broken := m.Clone()
	broken.PlayerOrder = broken.PlayerOrder[:1]
	_, err = ts.client.Call(admin, MethodInjectState, map[string]interface{}{"match": broken})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeleteMatchRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	m := ts.started(t)
	req := map[string]interface{}{"matchId": m.MatchID}

	_, err := ts.client.Call(context.Background(), MethodDeleteMatch, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	admin := metadata.AppendToOutgoingContext(context.Background(), AdminPasswordHeader, adminPassword)
	resp, err := ts.client.Call(admin, MethodDeleteMatch, req)
	require.NoError(t, err)
	assert.Equal(t, m.MatchID, resp.GetFields()["matchId"].GetStringValue())

	_, err = ts.call(t, MethodGetMatch, req)
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = ts.client.Call(context.Background(), MethodGetReplay, req)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
