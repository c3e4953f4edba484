// Package pubsub multiplexes logical topics over a single polling loop
// against the relay network.
//
// A Dispatcher owns one relay filter (and the key imported for it) per
// subscribed topic. Any number of listeners may attach to a topic; the
// filter is created with the first listener and deleted with the last.
//
// Lifecycle
//
//	Running -> ShutdownRequested -> Terminated
//
// Start launches the poll loop. Each iteration drains every filter, hands
// the messages to the topic's listeners in arrival order, then sleeps for
// the poll interval. Shutdown asks the loop to stop after the current
// iteration; Close also cancels any relay call in flight and tears down the
// remaining filters.
//
// Errors
//
// Relay failures caused by cancellation end the loop silently. Any other
// relay failure is logged and the loop continues. A listener error only
// affects the message being delivered and is passed to the ErrorHandler.
package pubsub
