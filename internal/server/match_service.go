package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// MatchServiceName is the fully qualified gRPC service name.
const MatchServiceName = "leaderbattle.v1.MatchService"

// Full method names, as seen by interceptors.
const (
	MethodCreateMatch   = "/" + MatchServiceName + "/CreateMatch"
	MethodSubmitRedraw  = "/" + MatchServiceName + "/SubmitRedraw"
	MethodApplyAction   = "/" + MatchServiceName + "/ApplyAction"
	MethodSuggestAction = "/" + MatchServiceName + "/SuggestAction"
	MethodGetMatch      = "/" + MatchServiceName + "/GetMatch"
	MethodGetReplay     = "/" + MatchServiceName + "/GetReplay"
	MethodInjectState   = "/" + MatchServiceName + "/InjectState"
	MethodDeleteMatch   = "/" + MatchServiceName + "/DeleteMatch"
)

// MatchServiceServer is the server API. Payloads are JSON-shaped structpb messages:
//
//	CreateMatch   {players:[id,id]} or {decks:[{playerId,leaders,cards}]} -> {match}
//	SubmitRedraw  {matchId, playerId, redraw}                              -> {match}
//	ApplyAction   {matchId, playerId, action}                              -> {match}
//	SuggestAction {matchId, playerId}                                      -> {action}
//	GetMatch      {matchId}                                                -> {match, scores}
//	GetReplay     {matchId}                                                -> {matchId, states}
//	InjectState   {match}                                                  -> {match}  (admin)
//	DeleteMatch   {matchId}                                                -> {matchId} (admin)
type MatchServiceServer interface {
	CreateMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitRedraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SuggestAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReplay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InjectState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type serviceCall func(MatchServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call serviceCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MatchServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MatchServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func methodDesc(fullMethod string, call serviceCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: fullMethod[strings.LastIndex(fullMethod, "/")+1:],
		Handler:    unaryHandler(fullMethod, call),
	}
}

// MatchServiceDesc describes the service for grpc.Server.RegisterService.
var MatchServiceDesc = grpc.ServiceDesc{
	ServiceName: MatchServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodCreateMatch, MatchServiceServer.CreateMatch),
		methodDesc(MethodSubmitRedraw, MatchServiceServer.SubmitRedraw),
		methodDesc(MethodApplyAction, MatchServiceServer.ApplyAction),
		methodDesc(MethodSuggestAction, MatchServiceServer.SuggestAction),
		methodDesc(MethodGetMatch, MatchServiceServer.GetMatch),
		methodDesc(MethodGetReplay, MatchServiceServer.GetReplay),
		methodDesc(MethodInjectState, MatchServiceServer.InjectState),
		methodDesc(MethodDeleteMatch, MatchServiceServer.DeleteMatch),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leaderbattle/v1/match.proto",
}

// RegisterMatchService registers srv on s.
func RegisterMatchService(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&MatchServiceDesc, srv)
}

// matchServer implements MatchServiceServer on top of a game.Manager.
type matchServer struct {
	manager *game.Manager
	logger  *zap.Logger
}

// NewMatchServer creates the gRPC match service.
func NewMatchServer(manager *game.Manager, logger *zap.Logger) MatchServiceServer {
	return &matchServer{manager: manager, logger: logger}
}

func (s *matchServer) CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var m *state.MatchState
	var err error

	if players := stringList(req, "players"); len(players) > 0 {
		m, err = s.manager.CreateMatchForPlayers(ctx, players)
	} else {
		var decks []catalog.DeckSnapshot
		if err := decodeField(req, "decks", &decks); err != nil {
			return nil, err
		}
		m, err = s.manager.CreateMatch(ctx, decks)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return matchResponse(m)
}

func (s *matchServer) SubmitRedraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, player, err := matchAndPlayer(req)
	if err != nil {
		return nil, err
	}
	redraw := req.GetFields()["redraw"].GetBoolValue()
	m, err := s.manager.SubmitRedraw(ctx, matchID, player, redraw)
	if err != nil {
		return nil, toStatus(err)
	}
	return matchResponse(m)
}

func (s *matchServer) ApplyAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, player, err := matchAndPlayer(req)
	if err != nil {
		return nil, err
	}
	var action game.Action
	if err := decodeField(req, "action", &action); err != nil {
		return nil, err
	}
	if action.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "action.type is required")
	}
	m, err := s.manager.ApplyAction(ctx, matchID, player, action)
	if err != nil {
		return nil, toStatus(err)
	}
	return matchResponse(m)
}

func (s *matchServer) SuggestAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, player, err := matchAndPlayer(req)
	if err != nil {
		return nil, err
	}
	action, err := s.manager.SuggestAction(ctx, matchID, player)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"action": action})
}

func (s *matchServer) GetMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requiredString(req, "matchId")
	if err != nil {
		return nil, err
	}
	m, err := s.manager.GetMatch(ctx, matchID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{
		"match":  m,
		"scores": s.manager.Engine().Score(m),
	})
}

func (s *matchServer) GetReplay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requiredString(req, "matchId")
	if err != nil {
		return nil, err
	}
	replay, ok := s.manager.Replay(matchID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no replay recorded for match %s", matchID)
	}
	states := make([]*state.MatchState, 0, replay.Size())
	for i := 0; i < replay.Size(); i++ {
		states = append(states, replay.GetStateAt(i))
	}
	return encode(map[string]interface{}{"matchId": matchID, "states": states})
}

func (s *matchServer) InjectState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var m state.MatchState
	if err := decodeField(req, "match", &m); err != nil {
		return nil, err
	}
	next, err := s.manager.InjectState(ctx, &m)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Warn("match state injected over grpc", zap.String("match_id", next.MatchID))
	return matchResponse(next)
}

func (s *matchServer) DeleteMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requiredString(req, "matchId")
	if err != nil {
		return nil, err
	}
	if err := s.manager.DeleteMatch(ctx, matchID); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"matchId": matchID})
}

// ==================== Payload helpers ====================

func matchResponse(m *state.MatchState) (*structpb.Struct, error) {
	return encode(map[string]interface{}{"match": m})
}

// encode converts a JSON-serialisable value into a structpb.Struct.
func encode(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// decodeField unmarshals req[key] into out through its JSON form.
func decodeField(req *structpb.Struct, key string, out interface{}) error {
	v, ok := req.GetFields()[key]
	if !ok {
		return status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	data, err := protojson.Marshal(v)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed %s: %v", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed %s: %v", key, err)
	}
	return nil
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	v := strings.TrimSpace(req.GetFields()[key].GetStringValue())
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func matchAndPlayer(req *structpb.Struct) (string, state.PlayerID, error) {
	matchID, err := requiredString(req, "matchId")
	if err != nil {
		return "", "", err
	}
	player, err := requiredString(req, "playerId")
	if err != nil {
		return "", "", err
	}
	return matchID, state.PlayerID(player), nil
}

func stringList(req *structpb.Struct, key string) []string {
	var out []string
	for _, v := range req.GetFields()[key].GetListValue().GetValues() {
		if s := strings.TrimSpace(v.GetStringValue()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ==================== Client ====================

// MatchServiceClient calls the match service over conn.
type MatchServiceClient struct {
	conn grpc.ClientConnInterface
}

// NewMatchServiceClient creates a client.
func NewMatchServiceClient(conn grpc.ClientConnInterface) *MatchServiceClient {
	return &MatchServiceClient{conn: conn}
}

// Call invokes fullMethod with any JSON-serialisable request and returns the raw response.
func (c *MatchServiceClient) Call(ctx context.Context, fullMethod string, req interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	in := new(structpb.Struct)
	if err := protojson.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Match decodes the "match" field of a response.
func Match(resp *structpb.Struct) (*state.MatchState, error) {
	var m state.MatchState
	if err := decodeField(resp, "match", &m); err != nil {
		return nil, err
	}
	return &m, nil
}
