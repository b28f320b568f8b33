// Package queue carries commands from the command listener to the
// supervisor's control loop.
//
// There is one queue per category ("command" and "schedule"). The
// in-memory backend is the default; the Redis backend keeps queued
// commands across a supervisor restart and lets another process enqueue.
//
//	q, err := queue.Open(ctx, cfg.Queue, queue.NameCommand)
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
package queue
