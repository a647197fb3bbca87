package kafka

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ryxhub/flowengine/pkg/events"
)

// partitionKey routes all events of one workflow to the same partition.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}
