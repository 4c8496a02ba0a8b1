package api

import (
	"errors"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrEmailTaken):
		return grpcstatus.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, store.ErrEmptyMessage),
		errors.Is(err, store.ErrGroupName),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingFields):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrUnknownProvider):
		return grpcstatus.Error(codes.NotFound, err.Error())
	}
	return rpc.ToStatus(err)
}
