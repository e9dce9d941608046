package swarm

import "time"

// parkBackoffMin is the sleep a worker takes when it finds nothing runnable
// anywhere, per spec.md §4.5 "park with a short backoff." A fixed short
// sleep rather than a growing one is deliberate: workers are expected to be
// busy most of the time in a loaded system, and a fixed sleep keeps wake-up
// latency bounded when work does arrive.
const parkBackoffMin = 50 * time.Microsecond

// workerLoop is one worker's run-to-completion-of-quantum loop
// (spec.md §4.5): pop an actor from the local queue, the high-priority
// global queue, the ordinary global queue, or steal one from a peer; drain
// its mailbox for one quantum; resubmit it if it still has pending work.
func (s *scheduler) workerLoop(id int) {
	defer s.wg.Done()

	local := s.locals[id]

	for s.running.Load() {
		actor, ok := local.tryPop()
		if !ok {
			actor, ok = s.globalHi.tryPop()
		}
		if !ok {
			actor, ok = s.global.tryPop()
		}
		if !ok && s.cfg.EnableWorkStealing {
			actor, ok = s.steal(id)
		}

		if !ok {
			s.idleCycles.Add(1)
			time.Sleep(parkBackoffMin)
			continue
		}

		more := actor.runQuantum(s.cfg.MaxMessagesPerQuantum, s.cfg.QuantumBudget)
		if more {
			s.resubmit(actor)
			continue
		}

		actor.scheduled.Store(false)
		// A control message sent while this worker still held the flag
		// (e.g. the supervisor's Stop or Restart for an actor that just
		// failed) found the schedule CAS taken; pick it up here.
		if actor.mailbox.ControlPending() || (actor.currentState() == StateRunning && !actor.mailbox.IsEmpty()) {
			s.schedule(actor, false)
		}
	}
}
