package errors

var (
	// Direct-request gating
	ErrBlocked             = Forbidden(ReasonBlocked, "messaging between these users is blocked")
	ErrRestricted          = Forbidden(ReasonRestricted, "messaging between these users is restricted")
	ErrMustAcceptFirst     = Forbidden(ReasonRequestMustAccept, "accept the message request before replying")
	ErrRequestRejected     = Forbidden(ReasonRequestRejected, "message request was rejected")
	ErrNotResponder        = Forbidden(ReasonNotResponder, "only the recipient of the request can respond to it")
	ErrRequestLimitReached = New(CodeLimitReached, ReasonRequestLimitReached, "message request limit reached, wait for a reply")
	ErrNoPendingRequest    = InvalidState(ReasonNoPendingRequest, "conversation has no pending message request")

	// Conversations
	ErrConversationNotFound = NotFound(ReasonConversationNotFound, "conversation not found")
	ErrNotMember            = Forbidden(ReasonNotMember, "you are not a member of this conversation")
	ErrNotDirect            = InvalidState(ReasonNotDirect, "operation requires a direct conversation")
	ErrInvalidParticipants  = InvalidArg(ReasonInvalidParticipants, "conversation requires distinct participants")
	ErrEmptyMessage         = InvalidArg(ReasonEmptyMessage, "message needs content or an attachment")
	ErrSelfTarget           = InvalidArg(ReasonSelfTarget, "cannot target yourself")
	ErrConversationBusy     = New(CodeConflict, ReasonConversationBusy, "conversation is being updated, retry the request")
	ErrInvalidCursor        = InvalidArg(ReasonInvalidCursor, "pagination cursor does not belong to this conversation")
	ErrGroupName            = InvalidArg(ReasonInvalidName, "group name must be 1 to 100 characters")

	// Users
	ErrUserNotFound = NotFound(ReasonUserNotFound, "user not found")
)
