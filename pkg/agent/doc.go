// Package agent runs the bounded tool-calling loop behind every channel.
//
// Invariants:
//   - Runs are serialized per session key through commandqueue.
//   - The system prompt is rebuilt on every run and never persisted.
//   - A session is saved once, at the end of a run, and only when every model
//     call inside the iteration budget succeeded.
//   - Tool failures never fail a run; they are fed back to the model as text.
//
// Usage:
//
//	loop, _ := agent.NewLoop(agent.Config{
//		Client:    client,
//		Tools:     registry,
//		Sessions:  sessions,
//		Context:   contextStore,
//		Bootstrap: bootstrap,
//		Logger:    logger,
//	})
//	answer, err := loop.Run(ctx, "cli", "hello")
package agent
