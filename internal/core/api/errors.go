package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/cdiscengine/internal/types"
)

// statusFromError maps engine errors to gRPC status codes.
// Configuration errors map to INVALID_ARGUMENT.
// Lookup misses map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED.
// Everything else maps to INTERNAL.
func statusFromError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrInvalidRule),
		errors.Is(err, types.ErrUnknownOperation),
		errors.Is(err, types.ErrInvalidCondition):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrDomainNotFound),
		errors.Is(err, types.ErrColumnNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
