package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/rpcapi"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/validate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrDuplicateUser):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrUnknownRecipient), errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toMessage(m *models.Message) *rpcapi.Message {
	return &rpcapi.Message{ID: m.ID, From: m.FromUser, To: m.ToUser, Content: m.Content, SentAt: m.SentAt}
}

func (s *GRPCServer) Register(ctx context.Context, req *rpcapi.RegisterRequest) (*rpcapi.RegisterResponse, error) {

	username, err := validate.Username(req.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := validate.RegisterPassword(req.Password); err != nil {
		return nil, toStatus(err)
	}
	email, err := validate.Email(req.Email)
	if err != nil {
		return nil, toStatus(err)
	}

	u, err := s.users.Register(ctx, username, req.Password, email)
	if err != nil {
		if !errors.Is(err, common.ErrDuplicateUser) {
			s.logger.Error(ctx, "registration failed", "error", err)
		}
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "username", u.UserName)
	return &rpcapi.RegisterResponse{Username: u.UserName}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpcapi.LoginRequest) (*rpcapi.LoginResponse, error) {

	username, err := validate.Username(req.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := validate.LoginPassword(req.Password); err != nil {
		return nil, toStatus(err)
	}

	token, err := s.users.Login(ctx, username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpcapi.LoginResponse{AccessToken: token.Raw, ExpiresAt: token.ExpiresAt}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *rpcapi.LogoutRequest) (*rpcapi.LogoutResponse, error) {

	raw, _ := ctx.Value(rawTokenKey).(string)
	if err := s.users.Logout(ctx, raw); err != nil {
		s.logger.Error(ctx, "logout failed", "error", err)
		return nil, toStatus(err)
	}

	return &rpcapi.LogoutResponse{}, nil
}

func (s *GRPCServer) Inbox(ctx context.Context, _ *rpcapi.InboxRequest) (*rpcapi.InboxResponse, error) {

	id := identityFrom(ctx)
	msgs := s.messages.ListForRecipient(ctx, id.Username)

	resp := &rpcapi.InboxResponse{Messages: make([]*rpcapi.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessage(m))
	}
	return resp, nil
}

func (s *GRPCServer) GetMessage(ctx context.Context, req *rpcapi.GetMessageRequest) (*rpcapi.GetMessageResponse, error) {

	id := identityFrom(ctx)
	m, err := s.messages.GetByID(ctx, id.Username, req.ID)
	if err != nil {
		return nil, status.Error(codes.NotFound, common.ErrNotFound.Error())
	}

	return &rpcapi.GetMessageResponse{Message: toMessage(m)}, nil
}

func (s *GRPCServer) Send(ctx context.Context, req *rpcapi.SendRequest) (*rpcapi.SendResponse, error) {

	id := identityFrom(ctx)

	content, err := validate.Content(req.Content)
	if err != nil {
		return nil, toStatus(err)
	}
	to, err := validate.Recipient(ctx, req.To, s.users.UserExists)
	if err != nil {
		if !errors.Is(err, common.ErrValidation) {
			s.logger.Error(ctx, "recipient lookup failed", "error", err)
		}
		return nil, toStatus(err)
	}

	m, err := s.messages.Send(ctx, id.Username, to, content)
	if err != nil {
		if !errors.Is(err, common.ErrUnknownRecipient) {
			s.logger.Error(ctx, "send failed", "error", err)
		}
		return nil, toStatus(err)
	}

	return &rpcapi.SendResponse{ID: m.ID, SentAt: m.SentAt}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *rpcapi.PingRequest) (*rpcapi.PingResponse, error) {

	return &rpcapi.PingResponse{Status: "OK"}, nil

}
