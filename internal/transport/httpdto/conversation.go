package httpdto

import (
	"time"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/services"
)

// OpenConversationRequest is used for POST /v1/conversations
type OpenConversationRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

// ConversationDTO represents a conversation view in API responses
type ConversationDTO struct {
	Key         string      `json:"key"`
	Peer        PeerDTO     `json:"peer"`
	LastMessage *MessageDTO `json:"last_message,omitempty"`
}

// PeerDTO is the counterpart participant as exposed to API consumers
type PeerDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// SummaryDTO is one row of the conversation list
type SummaryDTO struct {
	Key          string      `json:"key"`
	PeerID       string      `json:"peer_id"`
	PeerName     string      `json:"peer_name"`
	LastMessage  *MessageDTO `json:"last_message,omitempty"`
	UnreadCount  int         `json:"unread_count"`
	LastActivity time.Time   `json:"last_activity"`
}

// ListConversationsResponse is returned when listing conversations
type ListConversationsResponse struct {
	Conversations []SummaryDTO `json:"conversations"`
}

// ResolveConversationResponse is returned by GET /v1/conversations/resolve
type ResolveConversationResponse struct {
	Key string `json:"key"`
}

func FromView(v services.View) ConversationDTO {
	dto := ConversationDTO{
		Key: v.Key,
		Peer: PeerDTO{
			ID:          v.Peer.ID.String(),
			DisplayName: v.Peer.DisplayName,
			Role:        v.Peer.Role,
		},
	}
	if v.LastMessage != nil {
		m := FromMessage(*v.LastMessage)
		dto.LastMessage = &m
	}
	return dto
}

func FromSummary(s conversation.Summary) SummaryDTO {
	dto := SummaryDTO{
		Key:          s.Key,
		PeerID:       s.PeerID.String(),
		PeerName:     s.PeerName,
		UnreadCount:  s.UnreadCount,
		LastActivity: s.LastActivity,
	}
	if s.LastMessage != nil {
		m := FromMessage(*s.LastMessage)
		dto.LastMessage = &m
	}
	return dto
}

func FromSummarySlice(items []conversation.Summary) []SummaryDTO {
	out := make([]SummaryDTO, 0, len(items))
	for _, s := range items {
		out = append(out, FromSummary(s))
	}
	return out
}
