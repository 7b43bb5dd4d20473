package events

// Event type constants follow the format domain.action

// Message events
const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageDeleted = "message.deleted"
)

// Receipt events
const (
	EventTypeReceiptRead = "receipt.read"
)

// Typing events (real-time only, not persisted)
const (
	EventTypeTypingStarted = "typing.started"
	EventTypeTypingStopped = "typing.stopped"
)

// Conversation events
const (
	EventTypeConversationCreated           = "conversation.created"
	EventTypeConversationUpdated           = "conversation.updated"
	EventTypeConversationInviteLinkCreated = "conversation.invite_link_created"
	EventTypeConversationInviteLinkUpdated = "conversation.invite_link_updated"
)

// Participant events
const (
	EventTypeParticipantAdded       = "participant.added"
	EventTypeParticipantRemoved     = "participant.removed"
	EventTypeParticipantLeft        = "participant.left"
	EventTypeParticipantRoleChanged = "participant.role_changed"
)

// Message request events
const (
	EventTypeRequestCreated  = "message_request.created"
	EventTypeRequestUpdated  = "message_request.updated"
	EventTypeRequestResolved = "message_request.resolved"
)

// Aggregate types
const (
	AggregateMessage      = "message"
	AggregateConversation = "conversation"
	AggregateRequest      = "message_request"
)
