package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionLogin             = "login"
	ActionLogout            = "logout"
	ActionSendRequest       = "send_request"
	ActionRetryRequest      = "retry_request"
	ActionRefreshPoll       = "refresh_poll"
	ActionCallAccepted      = "call_accepted"
	ActionTaxiLocation      = "taxi_location_changed"
	ActionCallCompleted     = "call_completed"
	ActionSequenceViolation = "sequence_violation"
	ActionEnqueue           = "enqueue_request"
	ActionFindTaxi          = "find_taxi"
	ActionPushListen        = "push_listen"
)
