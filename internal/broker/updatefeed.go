package broker

type feedPublication[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

type feedSubscription[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

// UpdateFeed broadcasts payloads to every subscriber of an ID. Subscribers that cannot
// keep up miss payloads instead of blocking the publisher; the feed carries change
// notifications, and a missed notification is recovered by reading persisted state.
//
// This kind of feed is useful for pushing reconciliation results through SSE. The producer
// is the background goroutine that finished applying updates, the subscribers are the open
// event streams of the game's players.
type UpdateFeed[TID comparable, TPayload any] struct {
	stopChannel        chan struct{}
	publishChannel     chan feedPublication[TID, TPayload]
	subscribeChannel   chan feedSubscription[TID, TPayload]
	unsubscribeChannel chan feedSubscription[TID, TPayload]
}

// NewUpdateFeed creates the feed. Call Start in a goroutine and Stop to tear it down.
func NewUpdateFeed[TID comparable, TPayload any]() *UpdateFeed[TID, TPayload] {
	feed := UpdateFeed[TID, TPayload]{
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan feedPublication[TID, TPayload]),
		subscribeChannel:   make(chan feedSubscription[TID, TPayload]),
		unsubscribeChannel: make(chan feedSubscription[TID, TPayload]),
	}
	return &feed
}

// Start listening for publish, subscribe, and unsubscribe events. This function blocks until
// Stop() is called, so it should be called in a goroutine.
func (f *UpdateFeed[TID, TPayload]) Start() {
	subscriberLists := map[TID][]chan TPayload{}
	for {
		select {
		case <-f.stopChannel:
			for _, subscribers := range subscriberLists {
				for _, subscriber := range subscribers {
					close(subscriber)
				}
			}
			return

		case subscription := <-f.subscribeChannel:
			subscriberLists[subscription.ID] = append(subscriberLists[subscription.ID], subscription.Channel)

		case subscription := <-f.unsubscribeChannel:
			subscribers := subscriberLists[subscription.ID]
			for index, subscriber := range subscribers {
				if subscriber == subscription.Channel {
					subscriberLists[subscription.ID] = append(subscribers[:index], subscribers[index+1:]...)
					close(subscriber)
					break
				}
			}
			if len(subscriberLists[subscription.ID]) == 0 {
				delete(subscriberLists, subscription.ID)
			}

		case publication := <-f.publishChannel:
			for _, subscriber := range subscriberLists[publication.ID] {
				select {
				case subscriber <- publication.Payload:
				default:
					// Slow subscriber, it catches up from persisted state.
				}
			}
		}
	}
}

// Stop the goroutine that handles the feed and close all subscriber channels.
func (f *UpdateFeed[TID, TPayload]) Stop() {
	close(f.stopChannel)
}

// Subscribe to payloads published under the ID. The returned cancel function must be called
// when the subscriber is done, it closes the returned channel.
func (f *UpdateFeed[TID, TPayload]) Subscribe(id TID) (chan TPayload, func()) {
	channel := make(chan TPayload, 1)
	subscription := feedSubscription[TID, TPayload]{
		ID:      id,
		Channel: channel,
	}
	f.subscribeChannel <- subscription
	return channel, func() {
		select {
		case f.unsubscribeChannel <- subscription:
		case <-f.stopChannel:
		}
	}
}

// Publish a payload to every current subscriber of the ID.
func (f *UpdateFeed[TID, TPayload]) Publish(id TID, payload TPayload) {
	select {
	case f.publishChannel <- feedPublication[TID, TPayload]{ID: id, Payload: payload}:
	case <-f.stopChannel:
	}
}
