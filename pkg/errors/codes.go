package errors

type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeLimitReached     Code = "LIMIT_REACHED"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"
)

// Reason is a stable machine-readable discriminator inside a Code.
// Clients switch on it to render request/limit/blocked UI.
type Reason string

const (
	ReasonBlocked              Reason = "blocked"
	ReasonRestricted           Reason = "restricted"
	ReasonRequestMustAccept    Reason = "request_must_accept"
	ReasonRequestRejected      Reason = "request_rejected"
	ReasonNotResponder         Reason = "not_responder"
	ReasonNotMember            Reason = "not_member"
	ReasonRequestLimitReached  Reason = "request_limit_reached"
	ReasonConversationNotFound Reason = "conversation_not_found"
	ReasonNotDirect            Reason = "not_direct"
	ReasonNoPendingRequest     Reason = "no_pending_request"
	ReasonConversationBusy     Reason = "conversation_busy"
	ReasonInvalidParticipants  Reason = "invalid_participants"
	ReasonEmptyMessage         Reason = "empty_message"
	ReasonSelfTarget           Reason = "self_target"
	ReasonUserNotFound         Reason = "user_not_found"
	ReasonInvalidCursor        Reason = "invalid_cursor"
	ReasonInvalidName          Reason = "invalid_name"
)
