package kafka

type Topic struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
	ConfigEntries     map[string]string
}

// Admin manages the edge topics of a run. CreateTopics treats existing topics as created.
type Admin interface {
	CreateTopics(topics []*Topic) error
	DeleteTopics(topics []string) error
	Close()
}
