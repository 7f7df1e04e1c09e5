package presence_sdk

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cydxin/presence-sdk/cons"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/message"
	"go.uber.org/zap"
)

var errNotProjectMember = errors.New("not a member of this project")

// handleMessage routes one inbound frame. Every failure except an
// authentication failure is answered with a non-fatal error event.
func (s *WsServer) handleMessage(c *Client, data []byte) {
	var in message.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.emit(cons.EventError, message.ErrorResp{Error: "malformed message"})
		return
	}

	switch in.Type {
	case message.WsTypeAuthenticate:
		s.onAuthenticate(c, in.Token)
	case message.WsTypeJoinProject:
		s.onJoinProject(c, in)
	case message.WsTypeJoinMedia:
		s.onRoom(c, in.Type, hub.MediaRoom(in.MediaID), true)
	case message.WsTypeLeaveMedia:
		s.onRoom(c, in.Type, hub.MediaRoom(in.MediaID), false)
	default:
		c.emit(cons.EventError, message.ErrorResp{Request: in.Type, Error: "unknown message type"})
	}
}

func (s *WsServer) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.AuthTimeout)
}

// onAuthenticate binds the connection to a user. A rejected credential ends
// the connection after an authentication_error event.
func (s *WsServer) onAuthenticate(c *Client, token string) {
	ctx, cancel := s.requestContext()
	defer cancel()

	id, err := s.registry.Authenticate(ctx, c.ID, token)
	var authErr *hub.AuthError
	switch {
	case err == nil:
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		c.emit(cons.EventAuthenticated, id)
	case errors.As(err, &authErr):
		s.logger.Info("authentication rejected", zap.String("conn", c.ID), zap.Error(err))
		c.emit(cons.EventAuthenticationError, message.AuthErrorResp{Reason: authErr.Reason})
		c.Close()
	case errors.Is(err, hub.ErrAlreadyAuthenticated):
		c.emit(cons.EventError, message.ErrorResp{Request: message.WsTypeAuthenticate, Error: err.Error()})
	default:
		c.Close()
	}
}

func (s *WsServer) onJoinProject(c *Client, in message.Inbound) {
	userID, err := s.registry.UserOf(c.ID)
	if err == nil && userID == "" {
		err = hub.ErrNotAuthenticated
	}
	if err == nil && in.ProjectID == "" {
		err = hub.ErrInvalidRoom
	}
	if err == nil {
		err = s.checkMember(in.ProjectID, userID)
	}
	if err != nil {
		c.emit(cons.EventError, message.ErrorResp{Request: in.Type, Error: err.Error()})
		return
	}
	s.onRoom(c, in.Type, hub.ProjectRoom(in.ProjectID), true)
}

func (s *WsServer) checkMember(projectID, userID string) error {
	if s.members == nil {
		return errNotProjectMember
	}
	ctx, cancel := s.requestContext()
	defer cancel()
	ok, err := s.members.IsMember(ctx, projectID, userID)
	if err != nil {
		s.logger.Warn("membership check failed",
			zap.String("project", projectID), zap.String("user", userID), zap.Error(err))
		return errors.New("membership check failed")
	}
	if !ok {
		return errNotProjectMember
	}
	return nil
}

func (s *WsServer) onRoom(c *Client, request, room string, join bool) {
	var err error
	event := cons.EventJoined
	if join {
		err = s.registry.JoinRoom(c.ID, room)
	} else {
		event = cons.EventLeft
		err = s.registry.LeaveRoom(c.ID, room)
	}
	if err != nil {
		c.emit(cons.EventError, message.ErrorResp{Request: request, Error: err.Error()})
		return
	}
	c.emit(event, message.RoomResp{Room: room})
}
