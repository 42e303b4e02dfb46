package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/samber/do"
	"github.com/serroba/message-ratelimiter/internal/messaging"
	"go.uber.org/zap"
)

// Broker is the publisher and subscriber pair carrying decision events.
// With the memory broker both sides are the same go-channel.
type Broker struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// BrokerPackage provides the broker selected by Options.Broker and the
// publisher group that closes its publisher on shutdown.
func BrokerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Broker, error) {
		opts := do.MustInvoke[*Options](i)
		logger := messaging.NewZapLoggerAdapter(do.MustInvoke[*zap.Logger](i))

		switch opts.Broker {
		case messaging.BrokerMemory, "":
			pubSub := messaging.NewMemoryPubSub(logger)

			return &Broker{Publisher: pubSub, Subscriber: pubSub}, nil
		case messaging.BrokerRedis:
			client := do.MustInvoke[*Redis](i)

			publisher, err := messaging.NewRedisPublisher(client.Client, logger)
			if err != nil {
				return nil, err
			}

			// Every server instance pushes every decision to its own observers.
			subscriber, err := messaging.NewRedisSubscriber(client.Client, "", logger)
			if err != nil {
				_ = publisher.Close()

				return nil, err
			}

			return &Broker{Publisher: publisher, Subscriber: subscriber}, nil
		default:
			return nil, fmt.Errorf("unknown broker %q", opts.Broker)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		broker, err := do.Invoke[*Broker](i)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(broker.Publisher), nil
	})
}
