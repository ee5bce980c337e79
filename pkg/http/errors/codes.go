package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeLoginFailed            = "login_failed"
	ErrCodeAdminDisabled          = "admin_disabled"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidQuestion  = "invalid_question"
	ErrCodeInvalidName      = "invalid_name"
	ErrCodeInvalidOption    = "invalid_option"

	// Resource errors
	ErrCodeNotFound         = "not_found"
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodePlayerNotFound   = "player_not_found"
	ErrCodeQuestionNotFound = "question_not_found"

	// Game flow errors
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodeNoQuestions         = "no_questions"
	ErrCodeDuplicateSubmission = "duplicate_submission"
	ErrCodeAnswerWindowClosed  = "answer_window_closed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeNotJoined          = "not_joined"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Question bank errors
	ErrCodeImportFailed = "import_failed"
	ErrCodeExportFailed = "export_failed"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed   = "leaderboard_fetch_failed"
	ErrCodeUnknownLeaderboardWindow = "unknown_leaderboard_window"
)
