package client

import (
	"context"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
)

// LoadSnapshot returns every conversation of the signed-in user. userID
// must be the session's user; the daemon derives it from the token.
func (c *Client) LoadSnapshot(ctx context.Context, _ string) ([]*chat.Conversation, error) {
	resp, err := c.convs.Snapshot(c.authed(ctx), &rpc.SnapshotRequest{})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Conversations, nil
}

// CreateDirectConversation asks the daemon for the pair's conversation. If
// it already existed the result is a *chat.ConflictError carrying it.
func (c *Client) CreateDirectConversation(ctx context.Context, _, otherID string) (*chat.Conversation, error) {
	resp, err := c.convs.CreateDirect(c.authed(ctx), &rpc.CreateDirectRequest{UserID: otherID})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if !resp.Created {
		return nil, &chat.ConflictError{Existing: resp.Conversation}
	}
	return resp.Conversation, nil
}

// CreateGroup creates a named group with the caller and members.
func (c *Client) CreateGroup(ctx context.Context, name string, members []string) (*chat.Conversation, error) {
	resp, err := c.convs.CreateGroup(c.authed(ctx), &rpc.CreateGroupRequest{Name: name, Members: members})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Conversation, nil
}

// Conversation fetches one conversation with its messages.
func (c *Client) Conversation(ctx context.Context, id string) (*chat.Conversation, error) {
	resp, err := c.convs.Get(c.authed(ctx), &rpc.GetConversationRequest{ID: id})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Conversation, nil
}

// DeleteConversation deletes a conversation the caller participates in.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	_, err := c.convs.Delete(c.authed(ctx), &rpc.DeleteConversationRequest{ID: id})
	return rpc.FromStatus(err)
}

// ListUsers returns every other user.
func (c *Client) ListUsers(ctx context.Context) ([]chat.User, error) {
	resp, err := c.convs.ListUsers(c.authed(ctx), &rpc.ListUsersRequest{})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Users, nil
}

// SendMessage stores a message and returns it as the daemon saved it.
func (c *Client) SendMessage(ctx context.Context, conversationID, body, image string) (*chat.Message, error) {
	resp, err := c.msgs.Send(c.authed(ctx), &rpc.SendRequest{ConversationID: conversationID, Body: body, Image: image})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Message, nil
}

// MarkSeen marks the latest message of a conversation as seen by the caller.
func (c *Client) MarkSeen(ctx context.Context, conversationID string) error {
	_, err := c.msgs.MarkSeen(c.authed(ctx), &rpc.MarkSeenRequest{ConversationID: conversationID})
	return rpc.FromStatus(err)
}

// ListMessages pages backwards through a conversation. A zero cursor
// starts from the newest message.
func (c *Client) ListMessages(ctx context.Context, conversationID string, before chat.Cursor, limit int) ([]*chat.Message, bool, error) {
	resp, err := c.msgs.List(c.authed(ctx), &rpc.ListMessagesRequest{ConversationID: conversationID, Before: before, Limit: limit})
	if err != nil {
		return nil, false, rpc.FromStatus(err)
	}
	return resp.Messages, resp.HasMore, nil
}
