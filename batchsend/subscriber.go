package batchsend

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                     chan struct{}
	sendStartedHandler       func(SendStarted)
	approvalRequiredHandler  func(ApprovalRequired)
	approvalConfirmedHandler func(ApprovalConfirmed)
	batchPlannedHandler      func(BatchPlanned)
	batchSimulatedHandler    func(BatchSimulated)
	batchConfirmedHandler    func(BatchConfirmed)
	sendDoneHandler          func(SendDone)
	sendFailedHandler        func(SendFailed)
}

// OnSendStarted sets the handler for SendStarted events
func OnSendStarted(fn func(SendStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.sendStartedHandler = fn }
}

// OnApprovalRequired sets the handler for ApprovalRequired events
func OnApprovalRequired(fn func(ApprovalRequired)) func(*Subscriber) {
	return func(s *Subscriber) { s.approvalRequiredHandler = fn }
}

// OnApprovalConfirmed sets the handler for ApprovalConfirmed events
func OnApprovalConfirmed(fn func(ApprovalConfirmed)) func(*Subscriber) {
	return func(s *Subscriber) { s.approvalConfirmedHandler = fn }
}

// OnBatchPlanned sets the handler for BatchPlanned events
func OnBatchPlanned(fn func(BatchPlanned)) func(*Subscriber) {
	return func(s *Subscriber) { s.batchPlannedHandler = fn }
}

// OnBatchSimulated sets the handler for BatchSimulated events
func OnBatchSimulated(fn func(BatchSimulated)) func(*Subscriber) {
	return func(s *Subscriber) { s.batchSimulatedHandler = fn }
}

// OnBatchConfirmed sets the handler for BatchConfirmed events
func OnBatchConfirmed(fn func(BatchConfirmed)) func(*Subscriber) {
	return func(s *Subscriber) { s.batchConfirmedHandler = fn }
}

// OnSendDone sets the handler for SendDone events
func OnSendDone(fn func(SendDone)) func(*Subscriber) {
	return func(s *Subscriber) { s.sendDoneHandler = fn }
}

// OnSendFailed sets the handler for SendFailed events
func OnSendFailed(fn func(SendFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.sendFailedHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	closer := batchsend.NewSubscriber(events,
//	  batchsend.OnBatchConfirmed(func(e BatchConfirmed) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                     make(chan struct{}),
		sendStartedHandler:       func(SendStarted) {},       // nop by default
		approvalRequiredHandler:  func(ApprovalRequired) {},  // nop by default
		approvalConfirmedHandler: func(ApprovalConfirmed) {}, // nop by default
		batchPlannedHandler:      func(BatchPlanned) {},      // nop by default
		batchSimulatedHandler:    func(BatchSimulated) {},    // nop by default
		batchConfirmedHandler:    func(BatchConfirmed) {},    // nop by default
		sendDoneHandler:          func(SendDone) {},          // nop by default
		sendFailedHandler:        func(SendFailed) {},        // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case SendStarted:
				s.sendStartedHandler(e)
			case ApprovalRequired:
				s.approvalRequiredHandler(e)
			case ApprovalConfirmed:
				s.approvalConfirmedHandler(e)
			case BatchPlanned:
				s.batchPlannedHandler(e)
			case BatchSimulated:
				s.batchSimulatedHandler(e)
			case BatchConfirmed:
				s.batchConfirmedHandler(e)
			case SendDone:
				s.sendDoneHandler(e)
			case SendFailed:
				s.sendFailedHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
