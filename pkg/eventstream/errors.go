package eventstream

import "errors"

// ErrNilEvent indicates a nil event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil event")

// ErrNoBrokers indicates a broker-backed publisher was configured without
// any bootstrap brokers.
var ErrNoBrokers = errors.New("no brokers configured")

// ErrNoTopic indicates a broker-backed publisher was configured without a
// destination topic.
var ErrNoTopic = errors.New("no topic configured")
