package infra

// QueueName enumerates the RabbitMQ queues this service publishes to.
type QueueName string

const (
	// QueueNameOrders carries confirmed orders for downstream processing.
	QueueNameOrders QueueName = "orders_queue"

	// QueueNameNotifications mirrors customer notifications the dispatcher
	// has delivered, for downstream consumers.
	QueueNameNotifications QueueName = "notifications_queue"
)

func (qn QueueName) String() string {
	return string(qn)
}

// GetAllQueueNames returns every queue declared at startup.
func GetAllQueueNames() []QueueName {
	return []QueueName{
		QueueNameOrders,
		QueueNameNotifications,
	}
}
