package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/parley/internal/chat"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus converts a domain error into a gRPC status error. Errors that
// already carry a status pass through unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var failure *chat.AuthFailure
	switch {
	case errors.As(err, &failure):
		switch failure.Reason {
		case chat.ReasonRateLimited:
			return status.Error(codes.ResourceExhausted, string(failure.Reason))
		case chat.ReasonProviderUnavailable:
			return status.Error(codes.Unavailable, string(failure.Reason))
		}
		return status.Error(codes.Unauthenticated, string(failure.Reason))
	case errors.Is(err, chat.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, chat.ErrConflictExisting):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, chat.ErrInvalidParticipants):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chat.ErrTransportUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus maps a gRPC status error back onto the domain sentinels so
// callers can use errors.Is and errors.As.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		reason := chat.AuthReason(msg)
		switch reason {
		case chat.ReasonInvalidCredentials, chat.ReasonProviderRejected:
		default:
			reason = chat.ReasonInvalidCredentials
		}
		return &chat.AuthFailure{Reason: reason, Err: err}
	case codes.ResourceExhausted:
		return &chat.AuthFailure{Reason: chat.ReasonRateLimited, Err: err}
	case codes.NotFound:
		return fmt.Errorf("%w: %s", chat.ErrNotFound, msg)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", chat.ErrConflictExisting, msg)
	case codes.Unavailable:
		if chat.AuthReason(msg) == chat.ReasonProviderUnavailable {
			return &chat.AuthFailure{Reason: chat.ReasonProviderUnavailable, Err: err}
		}
		return fmt.Errorf("%w: %s", chat.ErrTransportUnavailable, msg)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", chat.ErrTransportUnavailable, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("%s: %w", msg, context.Canceled)
	}
	return err
}
