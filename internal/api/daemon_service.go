package api

import (
	"context"
	"time"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/store"
)

// DaemonService implements parley.v1.DaemonService.
type DaemonService struct {
	profile   string
	startedAt time.Time
	db        *store.DB
	auth      *auth.Authenticator
}

// NewDaemonService creates the status service of one daemon profile.
func NewDaemonService(profile string, db *store.DB, a *auth.Authenticator) *DaemonService {
	return &DaemonService{profile: profile, startedAt: time.Now(), db: db, auth: a}
}

func (s *DaemonService) Status(ctx context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	resp := &rpc.StatusResponse{
		Profile:  s.profile,
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.auth != nil {
		resp.Providers = s.auth.OAuth().Providers()
	}
	if s.db != nil {
		if n, err := s.db.UserCount(ctx); err == nil {
			resp.Users = n
		}
		if n, err := s.db.ConversationCount(ctx); err == nil {
			resp.Conversations = n
		}
		if n, err := s.db.MessageCount(ctx); err == nil {
			resp.Messages = n
		}
	}
	return resp, nil
}
