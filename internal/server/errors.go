package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
)

// toStatus maps engine and store errors onto gRPC codes. Rejection reasons are passed
// through unchanged so clients can show them.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch game.KindOf(err) {
	case game.KindInvalidAction, game.KindIllegalPlacement:
		return status.Error(codes.InvalidArgument, err.Error())
	case game.KindOutOfTurn:
		return status.Error(codes.FailedPrecondition, err.Error())
	case game.KindCardNotFound:
		return status.Error(codes.NotFound, err.Error())
	}

	switch {
	case errors.Is(err, game.ErrMatchNotFound), errors.Is(err, catalog.ErrDeckNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, game.ErrNoAdvisor):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
